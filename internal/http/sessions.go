package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jkoudys/daybook/internal/auth"
)

// SessionController lets users inspect and revoke their login sessions.
type SessionController struct {
	sessions   *auth.SessionService
	middleware *auth.Middleware
}

// NewSessionController creates a new SessionController.
func NewSessionController(sessions *auth.SessionService, mw *auth.Middleware) *SessionController {
	return &SessionController{sessions: sessions, middleware: mw}
}

// List returns the caller's sessions, most recently active first. The
// session matching the presented cookie is flagged so the UI can mark
// "this device".
func (sc *SessionController) List(c *gin.Context) {
	ctx := auth.GetAuthContext(c)

	sessions, err := sc.sessions.ListByUser(ctx.UserID())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}

	currentID := ""
	if ctx.Kind == auth.ContextSession {
		currentID = ctx.Session.Session.ID
	}

	type sessionView struct {
		ID           string `json:"id"`
		Current      bool   `json:"current"`
		ExpiresAt    string `json:"expires_at"`
		LastActiveAt string `json:"last_active_at"`
		IPAddress    string `json:"ip_address,omitempty"`
		Browser      string `json:"browser,omitempty"`
		OS           string `json:"os,omitempty"`
		Device       string `json:"device,omitempty"`
		Mobile       bool   `json:"mobile"`
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:           s.ID,
			Current:      s.ID == currentID,
			ExpiresAt:    s.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			LastActiveAt: s.LastActiveAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			IPAddress:    s.IPAddress,
			Browser:      s.Browser,
			OS:           s.OS,
			Device:       s.Device,
			Mobile:       s.Mobile,
		})
	}

	c.JSON(http.StatusOK, gin.H{"sessions": views})
}

// Delete revokes one of the caller's sessions. Revoking the current one
// also clears the cookie, so the client knows it just logged itself out.
func (sc *SessionController) Delete(c *gin.Context) {
	ctx := auth.GetAuthContext(c)
	sessionID := c.Param("id")

	sessions, err := sc.sessions.ListByUser(ctx.UserID())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up sessions"})
		return
	}

	owned := false
	for _, s := range sessions {
		if s.ID == sessionID {
			owned = true
			break
		}
	}
	if !owned {
		// Idempotent from the caller's perspective: nothing of theirs to
		// delete.
		c.JSON(http.StatusOK, gin.H{"deleted": false, "current": false})
		return
	}

	if err := sc.sessions.DeleteByID(sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return
	}

	current := ctx.Kind == auth.ContextSession && ctx.Session.Session.ID == sessionID
	if current {
		sc.middleware.ClearSessionCookie(c)
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true, "current": current})
}
