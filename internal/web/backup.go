package web

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jkarvonen/driveback/internal/archive"
	"github.com/jkarvonen/driveback/internal/backup"
	"github.com/jkarvonen/driveback/internal/drive"
)

// wsPushInterval is how often the websocket endpoint pushes a snapshot.
const wsPushInterval = 500 * time.Millisecond

// startBackup registers a new job for the session and spawns its runner.
func (s *Server) startBackup(c *gin.Context) {
	sess := sessionFromContext(c)

	token := sess.Token()
	if token == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	jobID := uuid.NewString()
	outputDir := s.registry.OutputDir(jobID)

	writer, err := archive.NewWriter(outputDir, s.opts.ArchiveBudget, s.logger)
	if err != nil {
		s.logger.Error("creating archive writer",
			slog.String("dir", outputDir),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not prepare output directory"})

		return
	}

	if !sess.BeginJob(jobID, outputDir) {
		writer.Close()
		os.RemoveAll(outputDir)
		c.JSON(http.StatusConflict, gin.H{"error": "backup already running"})

		return
	}

	// The credential is bound to the runner here; token refreshes happen
	// inside the oauth2 token source for the life of the job.
	bridge := drive.NewBridge(s.oauth.TokenSource(s.baseCtx, token), s.logger)
	client := drive.NewClient(s.opts.DriveBaseURL, nil, bridge, s.logger)
	runner := backup.NewRunner(sess, client, client, writer, s.opts.PageSize, outputDir, s.logger)

	go runner.Run(s.baseCtx)

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// progress returns the session's current progress snapshot.
func (s *Server) progress(c *gin.Context) {
	c.JSON(http.StatusOK, sessionFromContext(c).Snapshot())
}

// progressWS pushes progress snapshots over a websocket until the session
// reaches a terminal state or the client goes away. Polling remains the
// canonical interface; this is a convenience for dashboards.
func (s *Server) progressWS(c *gin.Context) {
	sess := sessionFromContext(c)

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	ctx := c.Request.Context()

	ticker := time.NewTicker(wsPushInterval)
	defer ticker.Stop()

	for {
		snap := sess.Snapshot()
		if err := wsjson.Write(ctx, conn, snap); err != nil {
			return
		}

		if snap.State.Terminal() {
			conn.Close(websocket.StatusNormalClosure, "backup finished")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-sess.Done():
			// Push the terminal snapshot on the next loop iteration.
		case <-ticker.C:
		}
	}
}

// cancelBackup requests cancellation. The runner notices between files,
// finishes the in-flight file, and finalizes the open archive.
func (s *Server) cancelBackup(c *gin.Context) {
	sess := sessionFromContext(c)

	if !sess.Running() {
		c.JSON(http.StatusConflict, gin.H{"error": "no backup in progress"})
		return
	}

	sess.RequestCancel()
	s.logger.Info("cancellation requested", slog.String("session_id", sess.ID))

	c.JSON(http.StatusOK, gin.H{"status": "cancel_requested"})
}

type archiveInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// listArchives returns the finalized archives for the session's job.
// Archives appear here as soon as they are finalized, including while the
// backup is still running.
func (s *Server) listArchives(c *gin.Context) {
	sess := sessionFromContext(c)
	snap := sess.Snapshot()

	infos := make([]archiveInfo, 0, len(snap.Archives))

	for _, name := range snap.Archives {
		info := archiveInfo{Name: name, URL: "/backup/download/" + name}

		if st, err := os.Stat(filepath.Join(sess.OutputDir(), name)); err == nil {
			info.Size = st.Size()
		}

		infos = append(infos, info)
	}

	c.JSON(http.StatusOK, gin.H{"state": snap.State, "archives": infos})
}

// downloadArchive serves one finalized archive. Only names the session's
// job actually produced are served, which also rules out path traversal.
func (s *Server) downloadArchive(c *gin.Context) {
	sess := sessionFromContext(c)
	snap := sess.Snapshot()

	name := c.Param("name")
	if !slices.Contains(snap.Archives, name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such archive"})
		return
	}

	path := filepath.Join(sess.OutputDir(), filepath.Base(name))
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "archive no longer available"})
		return
	}

	c.Header("Content-Type", "application/zip")
	c.FileAttachment(path, name)
}
