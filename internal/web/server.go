// Package web is the HTTP surface: OAuth2 login flow, backup control
// endpoints, progress reporting, and archive downloads. Handlers read
// session state through snapshots and never touch runner internals.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/jkarvonen/driveback/internal/backup"
)

// sessionCookie is the HttpOnly cookie carrying the web session id.
const sessionCookie = "driveback_session"

const sessionContextKey = "driveback_backup_session"

// Options carries the tunables the server needs beyond its collaborators.
type Options struct {
	// DriveBaseURL is the Drive API endpoint. Tests point it at a fake.
	DriveBaseURL string

	// PageSize is the listing page size passed to the runner.
	PageSize int

	// ArchiveBudget is the per-archive size budget in bytes.
	ArchiveBudget int64

	// CookieMaxAge bounds the session cookie lifetime.
	CookieMaxAge time.Duration
}

// Server wires the HTTP routes to the session registry and the OAuth2
// configuration. baseCtx is the server's lifetime context: runners are
// started under it so shutdown cancels in-flight backups.
type Server struct {
	registry *backup.Registry
	oauth    *oauth2.Config
	opts     Options
	baseCtx  context.Context
	logger   *slog.Logger
}

// NewServer assembles the HTTP layer.
func NewServer(
	baseCtx context.Context,
	registry *backup.Registry,
	oauthCfg *oauth2.Config,
	opts Options,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		registry: registry,
		oauth:    oauthCfg,
		opts:     opts,
		baseCtx:  baseCtx,
		logger:   logger,
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/", s.landingPage)
	router.POST("/auth/login", s.login)
	router.GET("/auth/callback", s.callback)
	router.GET("/dashboard", s.dashboardPage)

	api := router.Group("/backup")
	api.Use(s.requireSession())
	api.POST("/start", s.startBackup)
	api.GET("/progress", s.progress)
	api.GET("/progress/ws", s.progressWS)
	api.POST("/cancel", s.cancelBackup)
	api.GET("/archives", s.listArchives)
	api.GET("/download/:name", s.downloadArchive)

	return router
}

// requireSession resolves the session cookie to a live session and stores
// it in the request context. API routes only; page routes redirect instead.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := s.sessionFromCookie(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
			return
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// sessionFromCookie looks up the session named by the request cookie.
func (s *Server) sessionFromCookie(c *gin.Context) (*backup.Session, bool) {
	id, err := c.Cookie(sessionCookie)
	if err != nil || id == "" {
		return nil, false
	}

	return s.registry.Get(id)
}

// sessionFromContext retrieves the session stored by requireSession.
func sessionFromContext(c *gin.Context) *backup.Session {
	return c.MustGet(sessionContextKey).(*backup.Session)
}

// setSessionCookie issues the HttpOnly session cookie.
func (s *Server) setSessionCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, int(s.opts.CookieMaxAge.Seconds()), "/", "", false, true)
}

// requestLogger logs one line per request at debug, errors at warn.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request failed", attrs...)
		} else {
			s.logger.Debug("request", attrs...)
		}
	}
}
