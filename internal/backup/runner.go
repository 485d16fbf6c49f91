package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/jkarvonen/driveback/internal/archive"
	"github.com/jkarvonen/driveback/internal/drive"
)

// Lister pages through the remote file index. *drive.Client implements it.
type Lister interface {
	Walk(ctx context.Context, pageSize int, fn func(drive.FileRecord) error) error
}

// Fetcher streams one file's content. *drive.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, file drive.FileRecord, w io.Writer) (int64, error)
}

// ArchiveWriter consumes entry streams into rotated archives.
// *archive.Writer implements it.
type ArchiveWriter interface {
	WriteEntry(name string, size int64, r io.Reader) (int64, error)
	Close() error
	Archives() []string
	BytesWritten() int64
}

// Runner drives one backup session to a terminal state: walk the file
// index, fetch each file, write it into the rotating archive, and publish
// progress after every file. One Runner runs in one background goroutine;
// sessions never wait on each other.
type Runner struct {
	session  *Session
	lister   Lister
	fetcher  Fetcher
	writer   ArchiveWriter
	pageSize int
	spoolDir string
	logger   *slog.Logger
}

// NewRunner assembles a runner for one session. spoolDir holds the
// temporary per-file spool; using the session's output directory keeps
// the spool on the same filesystem as the archives.
func NewRunner(
	session *Session,
	lister Lister,
	fetcher Fetcher,
	writer ArchiveWriter,
	pageSize int,
	spoolDir string,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		session:  session,
		lister:   lister,
		fetcher:  fetcher,
		writer:   writer,
		pageSize: pageSize,
		spoolDir: spoolDir,
		logger:   logger,
	}
}

// Run executes the session to completion. It always leaves the session in
// a terminal state and finalizes the open archive on every exit path, so
// archives written before any failure remain independently valid.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("backup started",
		slog.String("session_id", r.session.ID),
		slog.String("job_id", r.session.JobID()),
	)

	r.session.setState(StateListing)

	walkErr := r.lister.Walk(ctx, r.pageSize, func(file drive.FileRecord) error {
		return r.processFile(ctx, file)
	})

	closeErr := r.writer.Close()

	state, errMsg := r.terminalOutcome(walkErr, closeErr)

	r.session.finish(state, errMsg, r.writer.BytesWritten(), r.writer.Archives())

	r.logger.Info("backup finished",
		slog.String("session_id", r.session.ID),
		slog.String("state", string(state)),
		slog.Int("archives", len(r.writer.Archives())),
		slog.String("bytes_written", humanize.Bytes(uint64(r.writer.BytesWritten()))),
	)
}

// processFile handles one file: spool the content to a temp file, then
// stream the spool into the archive. Fetch failures skip the file;
// archive failures abort the session. The cancellation flag is checked
// here — between files, never mid-stream.
func (r *Runner) processFile(ctx context.Context, file drive.FileRecord) error {
	if r.session.CancelRequested() {
		return ErrCancelled
	}

	if ctx.Err() != nil {
		// Server shutdown behaves like a cancellation request.
		return ErrCancelled
	}

	r.session.setState(StateTransferring)
	r.session.beginFile(file.Name)

	if !file.CanDownload {
		r.logger.Warn("file not downloadable, skipping",
			slog.String("file_id", file.ID),
			slog.String("name", file.Name),
		)
		r.session.fileSkipped(file.Name, "not downloadable")

		return nil
	}

	fetched, err := r.spoolAndArchive(ctx, file)
	if err != nil {
		if errors.Is(err, ErrArchiveIO) || drive.IsAuthError(err) {
			return err
		}

		// Per-file failure: record and move on.
		r.logger.Warn("file fetch failed, skipping",
			slog.String("file_id", file.ID),
			slog.String("name", file.Name),
			slog.String("error", err.Error()),
		)
		r.session.fileSkipped(file.Name, err.Error())

		return nil
	}

	r.session.fileDone(fetched, r.writer.BytesWritten(), r.writer.Archives())

	return nil
}

// spoolAndArchive fetches one file into a temporary spool file, then
// writes the spool into the archive under the entry name. Spooling keeps
// a mid-stream fetch failure out of the archive: the archive only ever
// sees complete entries, which is what keeps the byte-conservation
// invariant exact.
func (r *Runner) spoolAndArchive(ctx context.Context, file drive.FileRecord) (int64, error) {
	spool, err := os.CreateTemp(r.spoolDir, ".fetch-*")
	if err != nil {
		return 0, fmt.Errorf("%w: creating spool file: %w", ErrArchiveIO, err)
	}

	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	n, err := r.fetcher.Fetch(ctx, file, spool)
	if err != nil {
		return 0, err
	}

	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("%w: rewinding spool file: %w", ErrArchiveIO, err)
	}

	written, err := r.writer.WriteEntry(entryName(file), n, spool)
	if err != nil {
		return written, fmt.Errorf("%w: %w", ErrArchiveIO, err)
	}

	return n, nil
}

// terminalOutcome maps the walk and close results to the session's
// terminal state and user-visible error message.
func (r *Runner) terminalOutcome(walkErr, closeErr error) (State, string) {
	switch {
	case errors.Is(walkErr, ErrCancelled):
		return StateCancelled, ""
	case walkErr != nil && drive.IsAuthError(walkErr):
		return StateFailed, fmt.Sprintf("%v: %v", ErrAuth, walkErr)
	case errors.Is(walkErr, ErrArchiveIO):
		return StateFailed, walkErr.Error()
	case walkErr != nil:
		// Anything else out of the walk is a listing failure.
		return StateFailed, fmt.Sprintf("backup: listing failed: %v", walkErr)
	case closeErr != nil:
		return StateFailed, fmt.Sprintf("%v: %v", ErrArchiveIO, closeErr)
	default:
		return StateCompleted, ""
	}
}

// entryName derives the archive entry name for a file: the display name,
// with the export extension appended for format-converted native docs.
// Sanitization happens in the archive writer.
func entryName(file drive.FileRecord) string {
	if target, ok := drive.ExportTarget(file.MimeType); ok {
		return archive.EnsureExtension(file.Name, drive.ExportExtension(target))
	}

	return file.Name
}
