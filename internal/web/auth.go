package web

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/jkarvonen/driveback/internal/drive"
)

// login creates a web session, issues the session cookie, and returns the
// Google authorization URL for the client to navigate to.
func (s *Server) login(c *gin.Context) {
	state, err := drive.GenerateState()
	if err != nil {
		s.logger.Error("generating oauth state", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start login"})

		return
	}

	// Reuse an existing session so a second login attempt does not orphan
	// the first; a fresh browser gets a fresh session.
	sess, ok := s.sessionFromCookie(c)
	if !ok {
		sess = s.registry.Create()
	}

	sess.SetAuthState(state)
	s.setSessionCookie(c, sess.ID)

	c.JSON(http.StatusOK, gin.H{"auth_url": drive.AuthCodeURL(s.oauth, state)})
}

// callback completes the authorization code flow: validate state, exchange
// the code, store the credential. Every failure redirects back to the
// landing page with an error query parameter.
func (s *Server) callback(c *gin.Context) {
	if errCode := c.Query("error"); errCode != "" {
		s.logger.Warn("oauth consent denied", slog.String("error", errCode))
		redirectWithError(c, errCode)

		return
	}

	sess, ok := s.sessionFromCookie(c)
	if !ok {
		redirectWithError(c, "no_session")
		return
	}

	state := c.Query("state")
	if state == "" || state != sess.AuthState() {
		s.logger.Warn("oauth state mismatch", slog.String("session_id", sess.ID))
		redirectWithError(c, "state_mismatch")

		return
	}

	// States are single use.
	sess.SetAuthState("")

	code := c.Query("code")
	if code == "" {
		redirectWithError(c, "missing_code")
		return
	}

	token, err := s.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		s.logger.Warn("oauth code exchange failed", slog.String("error", err.Error()))
		redirectWithError(c, "token_exchange_failed")

		return
	}

	sess.SetToken(token)
	s.logger.Info("session authenticated", slog.String("session_id", sess.ID))

	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func redirectWithError(c *gin.Context, code string) {
	c.Redirect(http.StatusSeeOther, "/?error="+url.QueryEscape(code))
}
