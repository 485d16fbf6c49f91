package backup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry owns the session table: creation, lookup, and TTL-based expiry.
// It is passed by reference to both the web layer and the cleanup loop —
// there is no ambient global session state. Safe for concurrent use.
type Registry struct {
	rootDir string
	ttl     time.Duration
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose sessions expire after ttl. rootDir
// is the backup root; each session's archives live in rootDir/<job-id>/.
func NewRegistry(rootDir string, ttl time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		rootDir:  rootDir,
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// RootDir returns the backup root directory.
func (r *Registry) RootDir() string {
	return r.rootDir
}

// Create registers a new session with a random opaque identifier.
func (r *Registry) Create() *Session {
	sess := newSession(uuid.NewString())

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	r.logger.Info("session created", slog.String("session_id", sess.ID))

	return sess
}

// Get looks up a session by identifier.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]

	return sess, ok
}

// Remove deletes a session and its output directory. A still-running
// runner is asked to cancel; its output directory is removed regardless,
// matching the expiry semantics (archives are transient downloads, not
// durable state).
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return
	}

	sess.RequestCancel()

	if dir := sess.OutputDir(); dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			r.logger.Warn("removing session output directory",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	r.logger.Info("session removed", slog.String("session_id", id))
}

// Sweep expires sessions older than the TTL. Running sessions are asked
// to cancel and collected on a later sweep once their runner has exited.
// Returns the number of sessions removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.RLock()

	var expired []*Session

	for _, sess := range r.sessions {
		if now.Sub(sess.CreatedAt) > r.ttl {
			expired = append(expired, sess)
		}
	}

	r.mu.RUnlock()

	removed := 0

	for _, sess := range expired {
		if sess.Running() {
			sess.RequestCancel()
			continue
		}

		r.Remove(sess.ID)
		removed++
	}

	if removed > 0 {
		r.logger.Info("expired sessions swept", slog.Int("removed", removed))
	}

	return removed
}

// RunCleanup periodically sweeps expired sessions until ctx is canceled.
// Intended to run in its own goroutine for the life of the server.
func (r *Registry) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// OutputDir returns the output directory path for a job under the backup
// root.
func (r *Registry) OutputDir(jobID string) string {
	return filepath.Join(r.rootDir, jobID)
}
