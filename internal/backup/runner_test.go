package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkarvonen/driveback/internal/archive"
	"github.com/jkarvonen/driveback/internal/drive"
)

// fakeLister serves canned pages. pageErr aborts the walk before the
// given 1-based page is delivered, mimicking a listing failure mid-walk.
type fakeLister struct {
	pages   [][]drive.FileRecord
	pageErr map[int]error
}

func (l *fakeLister) Walk(ctx context.Context, pageSize int, fn func(drive.FileRecord) error) error {
	for i, page := range l.pages {
		if err, ok := l.pageErr[i+1]; ok {
			return err
		}

		for _, file := range page {
			if err := fn(file); err != nil {
				return err
			}
		}
	}

	return nil
}

// fakeFetcher serves canned content keyed by file ID. onFetch, if set,
// runs after each successful fetch.
type fakeFetcher struct {
	content map[string][]byte
	errs    map[string]error
	fetches int
	onFetch func(fetches int)
}

func (f *fakeFetcher) Fetch(ctx context.Context, file drive.FileRecord, w io.Writer) (int64, error) {
	if err, ok := f.errs[file.ID]; ok {
		return 0, err
	}

	n, err := w.Write(f.content[file.ID])
	if err != nil {
		return int64(n), err
	}

	f.fetches++
	if f.onFetch != nil {
		f.onFetch(f.fetches)
	}

	return int64(n), nil
}

// failWriter fails every entry write.
type failWriter struct{}

func (failWriter) WriteEntry(name string, size int64, r io.Reader) (int64, error) {
	return 0, errors.New("disk full")
}

func (failWriter) Close() error        { return nil }
func (failWriter) Archives() []string  { return nil }
func (failWriter) BytesWritten() int64 { return 0 }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testBlob returns incompressible content so zip sizes track input sizes.
func testBlob(seed int64, n int) []byte {
	buf := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(buf)

	return buf
}

// filePages builds n single-blob files split into pages of perPage, and
// the fetcher content map to serve them.
func filePages(n, perPage, blobSize int) ([][]drive.FileRecord, map[string][]byte) {
	var pages [][]drive.FileRecord

	content := make(map[string][]byte, n)

	var page []drive.FileRecord

	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("f%d", i)
		content[id] = testBlob(int64(i), blobSize)
		page = append(page, drive.FileRecord{
			ID:          id,
			Name:        fmt.Sprintf("file-%d.bin", i),
			MimeType:    "application/octet-stream",
			Size:        int64(blobSize),
			CanDownload: true,
		})

		if len(page) == perPage {
			pages = append(pages, page)
			page = nil
		}
	}

	if len(page) > 0 {
		pages = append(pages, page)
	}

	return pages, content
}

func newTestRunner(t *testing.T, budget int64, lister Lister, fetcher Fetcher) (*Runner, *Session, string) {
	t.Helper()

	dir := t.TempDir()

	writer, err := archive.NewWriter(dir, budget, testLogger())
	require.NoError(t, err)

	sess := newSession("test-session")
	require.True(t, sess.BeginJob("test-job", dir))

	return NewRunner(sess, lister, fetcher, writer, 100, dir, testLogger()), sess, dir
}

// readArchives extracts every entry across the finalized archives,
// returning name -> content in encounter order.
func readArchives(t *testing.T, dir string, names []string) map[string][]byte {
	t.Helper()

	out := make(map[string][]byte)

	for _, name := range names {
		zr, err := zip.OpenReader(filepath.Join(dir, name))
		require.NoError(t, err)

		for _, entry := range zr.File {
			rc, err := entry.Open()
			require.NoError(t, err)

			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())

			out[entry.Name] = data
		}

		require.NoError(t, zr.Close())
	}

	return out
}

func TestRunnerCompletesAcrossPages(t *testing.T) {
	pages, content := filePages(10, 2, 4096)
	fetcher := &fakeFetcher{content: content}

	runner, sess, dir := newTestRunner(t, 64<<20, &fakeLister{pages: pages}, fetcher)
	runner.Run(context.Background())

	snap := sess.Snapshot()
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, 10, snap.TotalFiles)
	assert.Equal(t, 10, snap.ProcessedFiles)
	assert.Zero(t, snap.SkippedFiles)
	assert.Empty(t, snap.Errors)
	assert.Empty(t, snap.Error)
	assert.Empty(t, snap.CurrentFile)
	assert.False(t, sess.Running())

	assert.Equal(t, int64(10*4096), snap.BytesFetched)
	assert.Equal(t, int64(10*4096), snap.BytesWritten)

	require.Len(t, snap.Archives, 1)

	entries := readArchives(t, dir, snap.Archives)
	require.Len(t, entries, 10)
	assert.Equal(t, content["f1"], entries["file-1.bin"])
	assert.Equal(t, content["f10"], entries["file-10.bin"])
}

func TestRunnerByteConservationWithRotation(t *testing.T) {
	pages, content := filePages(6, 3, 20<<10)
	fetcher := &fakeFetcher{content: content}

	// Budget fits roughly three 20 KiB entries per archive.
	runner, sess, dir := newTestRunner(t, 64<<10, &fakeLister{pages: pages}, fetcher)
	runner.Run(context.Background())

	snap := sess.Snapshot()
	require.Equal(t, StateCompleted, snap.State)
	assert.Greater(t, len(snap.Archives), 1)

	entries := readArchives(t, dir, snap.Archives)
	require.Len(t, entries, 6)

	var total int64
	for id, want := range content {
		name := fmt.Sprintf("file-%s.bin", id[1:])
		assert.True(t, bytes.Equal(want, entries[name]), "content mismatch for %s", name)
		total += int64(len(want))
	}

	assert.Equal(t, total, snap.BytesWritten)
	assert.Equal(t, total, snap.BytesFetched)
}

func TestRunnerSkipsFailedFetch(t *testing.T) {
	pages, content := filePages(10, 5, 1024)
	fetcher := &fakeFetcher{
		content: content,
		errs:    map[string]error{"f3": fmt.Errorf("fetching file f3: %w", drive.ErrServerError)},
	}

	runner, sess, dir := newTestRunner(t, 64<<20, &fakeLister{pages: pages}, fetcher)
	runner.Run(context.Background())

	snap := sess.Snapshot()
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, 10, snap.TotalFiles)
	assert.Equal(t, 10, snap.ProcessedFiles)
	assert.Equal(t, 1, snap.SkippedFiles)
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "file-3.bin")

	entries := readArchives(t, dir, snap.Archives)
	assert.Len(t, entries, 9)
	_, ok := entries["file-3.bin"]
	assert.False(t, ok)
}

func TestRunnerSkipsNotDownloadable(t *testing.T) {
	pages := [][]drive.FileRecord{{
		{ID: "f1", Name: "a.bin", Size: 4, CanDownload: true},
		{ID: "f2", Name: "locked.bin", Size: 4, CanDownload: false},
	}}
	fetcher := &fakeFetcher{content: map[string][]byte{"f1": []byte("data")}}

	runner, sess, dir := newTestRunner(t, 64<<20, &fakeLister{pages: pages}, fetcher)
	runner.Run(context.Background())

	snap := sess.Snapshot()
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, 1, snap.SkippedFiles)
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "locked.bin: not downloadable", snap.Errors[0])

	entries := readArchives(t, dir, snap.Archives)
	assert.Len(t, entries, 1)
}

func TestRunnerAuthFailureDuringListing(t *testing.T) {
	pages, content := filePages(4, 2, 1024)
	lister := &fakeLister{
		pages:   pages,
		pageErr: map[int]error{2: fmt.Errorf("listing files (page 2): %w", drive.ErrUnauthorized)},
	}
	fetcher := &fakeFetcher{content: content}

	runner, sess, dir := newTestRunner(t, 64<<20, lister, fetcher)
	runner.Run(context.Background())

	snap := sess.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Contains(t, snap.Error, "credential rejected")
	assert.Equal(t, 2, snap.ProcessedFiles)

	// Work done before the failure survives as a valid archive.
	require.Len(t, snap.Archives, 1)
	entries := readArchives(t, dir, snap.Archives)
	assert.Len(t, entries, 2)
	assert.Equal(t, content["f1"], entries["file-1.bin"])
}

func TestRunnerListingFailure(t *testing.T) {
	lister := &fakeLister{
		pages:   [][]drive.FileRecord{{{ID: "f1", Name: "a.bin", CanDownload: true}}},
		pageErr: map[int]error{1: fmt.Errorf("listing files (page 1): %w", drive.ErrServerError)},
	}

	runner, sess, _ := newTestRunner(t, 64<<20, lister, &fakeFetcher{})
	runner.Run(context.Background())

	snap := sess.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Contains(t, snap.Error, "listing failed")
	assert.Zero(t, snap.ProcessedFiles)
	assert.Empty(t, snap.Archives)
}

func TestRunnerArchiveFailureFatal(t *testing.T) {
	pages, content := filePages(3, 3, 512)
	fetcher := &fakeFetcher{content: content}

	sess := newSession("test-session")
	require.True(t, sess.BeginJob("test-job", t.TempDir()))

	runner := NewRunner(sess, &fakeLister{pages: pages}, fetcher, failWriter{}, 100, t.TempDir(), testLogger())
	runner.Run(context.Background())

	snap := sess.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Contains(t, snap.Error, "archive write failed")
	assert.Equal(t, 1, snap.TotalFiles)
	assert.Zero(t, snap.ProcessedFiles)
}

func TestRunnerCancelBetweenFiles(t *testing.T) {
	pages, content := filePages(10, 5, 1024)

	var sess *Session

	fetcher := &fakeFetcher{
		content: content,
		onFetch: func(fetches int) {
			if fetches == 4 {
				sess.RequestCancel()
			}
		},
	}

	runner, s, dir := newTestRunner(t, 64<<20, &fakeLister{pages: pages}, fetcher)
	sess = s

	runner.Run(context.Background())

	snap := sess.Snapshot()
	assert.Equal(t, StateCancelled, snap.State)
	assert.Empty(t, snap.Error)
	assert.Equal(t, 4, snap.ProcessedFiles)

	// Everything archived before the cancel stays readable.
	require.Len(t, snap.Archives, 1)
	entries := readArchives(t, dir, snap.Archives)
	assert.Len(t, entries, 4)
}

func TestRunnerContextCancelled(t *testing.T) {
	pages, content := filePages(3, 3, 512)
	fetcher := &fakeFetcher{content: content}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner, sess, _ := newTestRunner(t, 64<<20, &fakeLister{pages: pages}, fetcher)
	runner.Run(ctx)

	snap := sess.Snapshot()
	assert.Equal(t, StateCancelled, snap.State)
	assert.Zero(t, snap.ProcessedFiles)
}

func TestRunnerExportedDocEntryName(t *testing.T) {
	pages := [][]drive.FileRecord{{
		{ID: "d1", Name: "Notes", MimeType: drive.MimeDocument, Size: drive.SizeUnknown, CanDownload: true},
	}}
	fetcher := &fakeFetcher{content: map[string][]byte{"d1": []byte("exported-doc")}}

	runner, sess, dir := newTestRunner(t, 64<<20, &fakeLister{pages: pages}, fetcher)
	runner.Run(context.Background())

	snap := sess.Snapshot()
	require.Equal(t, StateCompleted, snap.State)

	entries := readArchives(t, dir, snap.Archives)
	require.Len(t, entries, 1)
	assert.Equal(t, []byte("exported-doc"), entries["Notes.docx"])
}
