// Package backup implements the backup pipeline: per-user sessions, the
// session registry, and the runner that drives listing, fetching, and
// archive writing for one session.
package backup

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
)

// State is the lifecycle state of a backup session.
type State string

const (
	StateCreated      State = "created"
	StateListing      State = "listing"
	StateTransferring State = "transferring"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
	StateCancelled    State = "cancelled"
)

// Terminal reports whether the state is an end state: no further progress
// updates will occur.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Session is one backup run: the credential, the lifecycle counters, and
// the cancellation flag. The runner goroutine is the only writer; the web
// layer reads concurrently through Snapshot. All session state lives in
// process memory and is lost on restart.
type Session struct {
	ID        string
	CreatedAt time.Time

	cancelRequested atomic.Bool

	mu           sync.Mutex
	authState    string // OAuth2 state parameter for the pending login
	token        *oauth2.Token
	jobID        string
	outputDir    string
	running      bool
	done         chan struct{}
	state        State
	totalFiles   int
	processed    int
	skipped      int
	currentFile  string
	bytesFetched int64
	bytesWritten int64
	archives     []string
	fileErrors   []string
	errMsg       string
}

// Snapshot is a point-in-time copy of a session's progress, safe to
// serialize while the runner keeps going.
type Snapshot struct {
	State          State    `json:"state"`
	Authenticated  bool     `json:"authenticated"`
	JobID          string   `json:"job_id,omitempty"`
	TotalFiles     int      `json:"total_files"`
	ProcessedFiles int      `json:"processed_files"`
	SkippedFiles   int      `json:"skipped_files"`
	CurrentFile    string   `json:"current_file,omitempty"`
	BytesFetched   int64    `json:"bytes_fetched"`
	BytesWritten   int64    `json:"bytes_written"`
	Archives       []string `json:"archives"`
	Errors         []string `json:"errors,omitempty"`
	Error          string   `json:"error,omitempty"`
}

func newSession(id string) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		state:     StateCreated,
	}
}

// Snapshot returns a copy of the session's current progress counters.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:          s.state,
		Authenticated:  s.token != nil,
		JobID:          s.jobID,
		TotalFiles:     s.totalFiles,
		ProcessedFiles: s.processed,
		SkippedFiles:   s.skipped,
		CurrentFile:    s.currentFile,
		BytesFetched:   s.bytesFetched,
		BytesWritten:   s.bytesWritten,
		Archives:       make([]string, len(s.archives)),
		Errors:         make([]string, len(s.fileErrors)),
		Error:          s.errMsg,
	}

	copy(snap.Archives, s.archives)
	copy(snap.Errors, s.fileErrors)

	return snap
}

// SetAuthState stores the OAuth2 state parameter issued at login start.
func (s *Session) SetAuthState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authState = state
}

// AuthState returns the OAuth2 state parameter for callback validation.
func (s *Session) AuthState() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.authState
}

// SetToken attaches the exchanged credential to the session.
func (s *Session) SetToken(tok *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
}

// Token returns the session's credential, or nil if not authenticated.
func (s *Session) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token
}

// JobID returns the identifier of the current backup job, if any.
func (s *Session) JobID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.jobID
}

// OutputDir returns the directory holding this session's archives.
func (s *Session) OutputDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.outputDir
}

// RequestCancel marks the session for cancellation. The runner checks the
// flag between files, never mid-stream, so the in-flight file completes
// and the open archive is finalized before the session terminates.
func (s *Session) RequestCancel() {
	s.cancelRequested.Store(true)
}

// CancelRequested reports whether cancellation has been requested.
func (s *Session) CancelRequested() bool {
	return s.cancelRequested.Load()
}

// BeginJob resets counters and transitions to Created for a new run.
// Returns false if a runner is already active for this session.
func (s *Session) BeginJob(jobID, outputDir string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}

	s.cancelRequested.Store(false)
	s.jobID = jobID
	s.outputDir = outputDir
	s.running = true
	s.done = make(chan struct{})
	s.state = StateCreated
	s.totalFiles = 0
	s.processed = 0
	s.skipped = 0
	s.currentFile = ""
	s.bytesFetched = 0
	s.bytesWritten = 0
	s.archives = nil
	s.fileErrors = nil
	s.errMsg = ""

	return true
}

// Done returns a channel closed when the runner for the current job
// exits. Returns a closed channel if no job has been started.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		closed := make(chan struct{})
		close(closed)

		return closed
	}

	return s.done
}

// Running reports whether a runner is currently active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// setState transitions the lifecycle state. Runner-only.
func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// beginFile records the file about to be processed. Runner-only.
func (s *Session) beginFile(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalFiles++
	s.currentFile = name
}

// fileDone records a successfully archived file. Runner-only.
func (s *Session) fileDone(fetched, totalWritten int64, archives []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
	s.bytesFetched += fetched
	s.bytesWritten = totalWritten
	s.archives = archives
}

// fileSkipped records a per-file failure: counted, remembered, and moved
// past. Runner-only.
func (s *Session) fileSkipped(name, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
	s.skipped++
	s.fileErrors = append(s.fileErrors, name+": "+reason)
}

// finish sets the terminal state and releases the running flag. errMsg is
// empty for Completed and Cancelled. Runner-only.
func (s *Session) finish(state State, errMsg string, totalWritten int64, archives []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	s.errMsg = errMsg
	s.currentFile = ""
	s.bytesWritten = totalWritten
	s.archives = archives
	s.running = false

	if s.done != nil {
		close(s.done)
	}
}
