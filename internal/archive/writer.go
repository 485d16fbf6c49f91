// Package archive implements the size-rotated zip output of a backup
// session: entries stream into the currently open archive, and a new
// archive file with the next sequence number is opened whenever the
// running size passes the configured budget.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

// partialSuffix marks an archive that has not been finalized yet. The
// rename on finalize is atomic, so a *.zip file is always independently
// openable even if the process dies between entries.
const partialSuffix = ".partial"

// archivePattern names output files: backup_001.zip, backup_002.zip, …
const archivePattern = "backup_%03d.zip"

// dirPerms is used when creating the session's output directory.
const dirPerms = 0o755

// ErrClosed is returned by WriteEntry after Close.
var ErrClosed = errors.New("archive: writer is closed")

// countingWriter wraps an io.Writer and counts bytes written through it.
// It tracks the on-disk (compressed) size of the open archive.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)

	return n, err
}

// Writer packs entries into sequentially numbered zip archives under one
// directory, rotating when the size budget is reached. A Writer is owned
// by a single backup session and is not safe for concurrent use.
type Writer struct {
	dir    string
	budget int64
	logger *slog.Logger

	seq       int
	zw        *zip.Writer
	file      *os.File
	counter   *countingWriter
	names     map[string]int
	finalized []string
	closed    bool

	bytesWritten int64 // uncompressed entry bytes, across all archives
}

// NewWriter creates the output directory and returns a Writer with the
// given per-archive size budget in bytes. No archive file is created until
// the first entry arrives.
func NewWriter(dir string, budget int64, logger *slog.Logger) (*Writer, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("archive: budget must be positive, got %d", budget)
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return nil, fmt.Errorf("archive: creating output directory: %w", err)
	}

	return &Writer{
		dir:    dir,
		budget: budget,
		logger: logger,
		names:  make(map[string]int),
	}, nil
}

// WriteEntry streams r into the open archive under the sanitized entry
// name, using deflate compression. size is the expected uncompressed
// length, or a negative value if unknown; a known size lets the writer
// rotate *before* an entry that would blow the budget. An entry is never
// split across archives — a single entry larger than the budget yields one
// oversized archive, which is documented behavior.
//
// Returns the number of uncompressed bytes consumed from r. Any error
// leaves the open archive in an undefined state; callers must treat write
// errors as fatal for the session (already finalized archives are
// unaffected).
func (w *Writer) WriteEntry(name string, size int64, r io.Reader) (int64, error) {
	if w.closed {
		return 0, ErrClosed
	}

	// Known-size pre-check: rotate early rather than overflow, but never
	// rotate an empty archive (an oversized entry goes in as-is).
	if w.zw != nil && size >= 0 && w.counter.n > 0 && w.counter.n+size > w.budget {
		if err := w.finalizeCurrent(); err != nil {
			return 0, err
		}
	}

	if w.zw == nil {
		if err := w.openNext(); err != nil {
			return 0, err
		}
	}

	entryName := w.uniqueName(SafeName(name))

	ew, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     entryName,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("archive: creating entry %q: %w", entryName, err)
	}

	n, err := io.Copy(ew, r)
	if err != nil {
		return n, fmt.Errorf("archive: writing entry %q: %w", entryName, err)
	}

	w.bytesWritten += n

	// Flush so the counter reflects this entry's compressed bytes before
	// the budget check.
	if err := w.zw.Flush(); err != nil {
		return n, fmt.Errorf("archive: flushing entry %q: %w", entryName, err)
	}

	w.logger.Debug("entry written",
		slog.String("entry", entryName),
		slog.Int64("bytes", n),
		slog.Int("archive_seq", w.seq),
	)

	// Post-entry check catches unknown-size entries that crossed the
	// budget: rotation was deferred until the entry completed.
	if w.counter.n >= w.budget {
		if err := w.finalizeCurrent(); err != nil {
			return n, err
		}
	}

	return n, nil
}

// Close finalizes the currently open archive, if any. Safe to call when no
// archive is open (for example, a session with zero files).
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true

	if w.zw == nil {
		return nil
	}

	return w.finalizeCurrent()
}

// Archives returns the base names of all finalized archive files, in
// sequence order. The currently open archive is not included until it
// is finalized.
func (w *Writer) Archives() []string {
	out := make([]string, len(w.finalized))
	copy(out, w.finalized)

	return out
}

// Sequence returns the sequence number of the most recently opened
// archive, or 0 if none has been opened.
func (w *Writer) Sequence() int {
	return w.seq
}

// BytesWritten returns the total uncompressed bytes written across all
// archives. This equals the bytes successfully fetched for the session.
func (w *Writer) BytesWritten() int64 {
	return w.bytesWritten
}

// openNext creates the next archive file with an incremented sequence
// number. The file carries a .partial suffix until finalized.
func (w *Writer) openNext() error {
	w.seq++

	name := fmt.Sprintf(archivePattern, w.seq)

	f, err := os.Create(filepath.Join(w.dir, name+partialSuffix))
	if err != nil {
		w.seq--
		return fmt.Errorf("archive: creating %s: %w", name, err)
	}

	w.file = f
	w.counter = &countingWriter{w: f}
	w.zw = zip.NewWriter(w.counter)

	w.logger.Info("opened archive",
		slog.String("archive", name),
		slog.Int("seq", w.seq),
	)

	return nil
}

// finalizeCurrent closes the open archive and atomically renames it from
// its .partial name to the final name.
func (w *Writer) finalizeCurrent() error {
	name := fmt.Sprintf(archivePattern, w.seq)

	if err := w.zw.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("archive: closing %s: %w", name, err)
	}

	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return fmt.Errorf("archive: syncing %s: %w", name, err)
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("archive: closing file %s: %w", name, err)
	}

	partial := filepath.Join(w.dir, name+partialSuffix)
	final := filepath.Join(w.dir, name)

	if err := os.Rename(partial, final); err != nil {
		return fmt.Errorf("archive: finalizing %s: %w", name, err)
	}

	w.logger.Info("finalized archive",
		slog.String("archive", name),
		slog.String("size", humanize.Bytes(uint64(w.counter.n))),
	)

	w.finalized = append(w.finalized, name)
	w.zw = nil
	w.file = nil
	w.counter = nil

	return nil
}

// uniqueName de-duplicates entry names within the session by appending a
// numeric suffix before the extension: "a.txt", "a (2).txt", "a (3).txt".
func (w *Writer) uniqueName(name string) string {
	w.names[name]++
	count := w.names[name]

	if count == 1 {
		return name
	}

	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]

	return fmt.Sprintf("%s (%d)%s", base, count, ext)
}
