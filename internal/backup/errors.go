package backup

import "errors"

// Failure classes for a backup session. Per-file fetch failures are
// absorbed and counted; everything else is fatal for the session but
// never corrupts already-finalized archives.
var (
	// ErrCancelled is the internal walk-stop sentinel for a requested
	// cancellation.
	ErrCancelled = errors.New("backup: session cancelled")

	// ErrArchiveIO wraps archive write failures. Fatal: the disk is the
	// one resource the pipeline cannot route around.
	ErrArchiveIO = errors.New("backup: archive write failed")

	// ErrAuth wraps credential failures. Fatal: the user must
	// re-authenticate.
	ErrAuth = errors.New("backup: credential rejected")
)
