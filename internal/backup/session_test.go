package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestSessionInitialSnapshot(t *testing.T) {
	sess := newSession("abc")

	snap := sess.Snapshot()
	assert.Equal(t, StateCreated, snap.State)
	assert.False(t, snap.Authenticated)
	assert.Empty(t, snap.JobID)
	assert.Zero(t, snap.TotalFiles)
	assert.Zero(t, snap.BytesWritten)
	assert.Empty(t, snap.Archives)
	assert.Empty(t, snap.Error)
}

func TestSessionAuthenticated(t *testing.T) {
	sess := newSession("abc")
	assert.False(t, sess.Snapshot().Authenticated)

	sess.SetToken(&oauth2.Token{AccessToken: "tok"})
	assert.True(t, sess.Snapshot().Authenticated)
	require.NotNil(t, sess.Token())
	assert.Equal(t, "tok", sess.Token().AccessToken)
}

func TestSessionBeginJobRejectsWhileRunning(t *testing.T) {
	sess := newSession("abc")

	require.True(t, sess.BeginJob("job-1", "/tmp/job-1"))
	assert.True(t, sess.Running())
	assert.Equal(t, "job-1", sess.JobID())
	assert.Equal(t, "/tmp/job-1", sess.OutputDir())

	// Second start while the first runner is still active.
	assert.False(t, sess.BeginJob("job-2", "/tmp/job-2"))
	assert.Equal(t, "job-1", sess.JobID())
}

func TestSessionBeginJobResetsProgress(t *testing.T) {
	sess := newSession("abc")

	require.True(t, sess.BeginJob("job-1", "/tmp/job-1"))
	sess.beginFile("a.txt")
	sess.fileDone(10, 10, []string{"backup_001.zip"})
	sess.RequestCancel()
	sess.finish(StateCancelled, "", 10, []string{"backup_001.zip"})

	require.True(t, sess.BeginJob("job-2", "/tmp/job-2"))

	snap := sess.Snapshot()
	assert.Equal(t, StateCreated, snap.State)
	assert.Zero(t, snap.TotalFiles)
	assert.Zero(t, snap.ProcessedFiles)
	assert.Zero(t, snap.BytesWritten)
	assert.Empty(t, snap.Archives)
	assert.False(t, sess.CancelRequested())
}

func TestSessionDoneClosedWithoutJob(t *testing.T) {
	sess := newSession("abc")

	select {
	case <-sess.Done():
	default:
		t.Fatal("Done channel should be closed when no job has run")
	}
}

func TestSessionDoneClosesOnFinish(t *testing.T) {
	sess := newSession("abc")
	require.True(t, sess.BeginJob("job-1", "/tmp/job-1"))

	select {
	case <-sess.Done():
		t.Fatal("Done channel closed before the runner finished")
	default:
	}

	sess.finish(StateCompleted, "", 0, nil)

	select {
	case <-sess.Done():
	case <-time.After(time.Second):
		t.Fatal("Done channel not closed after finish")
	}

	assert.False(t, sess.Running())
}

func TestSessionFileCounters(t *testing.T) {
	sess := newSession("abc")
	require.True(t, sess.BeginJob("job-1", "/tmp/job-1"))

	sess.beginFile("a.txt")
	sess.fileDone(100, 100, []string{"backup_001.zip"})

	sess.beginFile("b.txt")
	sess.fileSkipped("b.txt", "not downloadable")

	snap := sess.Snapshot()
	assert.Equal(t, 2, snap.TotalFiles)
	assert.Equal(t, 2, snap.ProcessedFiles)
	assert.Equal(t, 1, snap.SkippedFiles)
	assert.Equal(t, int64(100), snap.BytesFetched)
	assert.Equal(t, []string{"backup_001.zip"}, snap.Archives)
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "b.txt: not downloadable", snap.Errors[0])
}

func TestSessionSnapshotIsACopy(t *testing.T) {
	sess := newSession("abc")
	require.True(t, sess.BeginJob("job-1", "/tmp/job-1"))
	sess.beginFile("a.txt")
	sess.fileDone(10, 10, []string{"backup_001.zip"})

	snap := sess.Snapshot()
	snap.Archives[0] = "mutated"

	assert.Equal(t, []string{"backup_001.zip"}, sess.Snapshot().Archives)
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.False(t, StateCreated.Terminal())
	assert.False(t, StateListing.Terminal())
	assert.False(t, StateTransferring.Terminal())
}
