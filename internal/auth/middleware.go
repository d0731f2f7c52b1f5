package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jkoudys/daybook/internal/config"
	"github.com/jkoudys/daybook/internal/entities"
)

// SessionCookieName is the HTTP-only cookie carrying the session token.
const SessionCookieName = "daybook_session"

// Internal headers set by the network edge. The edge reads the standard
// forwarding headers once (first value wins) and parses the user agent;
// past that point these are internally trusted, advisory metadata. They are
// never authorization inputs and are never re-derived from
// client-controllable headers here.
const (
	HeaderClientIP   = "X-Client-Ip"
	HeaderDeviceInfo = "X-Device-Info"
	HeaderAPIKey     = "X-Api-Key"
)

// ContextKind tags the resolved auth context.
type ContextKind string

const (
	ContextNone     ContextKind = "none"
	ContextSession  ContextKind = "session"
	ContextAPIToken ContextKind = "api_token"
)

// contextKeyAuth is the gin context key holding the resolved AuthContext.
const contextKeyAuth = "auth_context"

// SessionPrincipal is the payload of a session-resolved context.
type SessionPrincipal struct {
	User    *entities.User
	Session *entities.Session
	Fresh   bool
}

// TokenPrincipal is the payload of an API-token-resolved context.
type TokenPrincipal struct {
	TokenID string
	UserID  *string // nil for system tokens
	Scopes  []string
}

// AuthContext is the single authorization decision for a request: exactly
// one of none, session, or api_token, with a payload per case. Handlers
// consume this and never re-derive identity from raw request data.
type AuthContext struct {
	Kind    ContextKind
	Session *SessionPrincipal
	Token   *TokenPrincipal
}

// Authenticated reports whether any credential resolved.
func (a *AuthContext) Authenticated() bool {
	return a.Kind != ContextNone
}

// UserID returns the resolved user's ID, or "" for anonymous requests and
// system tokens.
func (a *AuthContext) UserID() string {
	switch a.Kind {
	case ContextSession:
		return a.Session.User.ID
	case ContextAPIToken:
		if a.Token.UserID != nil {
			return *a.Token.UserID
		}
	}
	return ""
}

// Middleware resolves the auth context for every request.
type Middleware struct {
	users    *Service
	sessions *SessionService
	tokens   *TokenService
	cfg      config.Auth
}

// NewMiddleware creates the resolver middleware.
func NewMiddleware(users *Service, sessions *SessionService, tokens *TokenService, cfg config.Auth) *Middleware {
	return &Middleware{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		cfg:      cfg,
	}
}

// Handler resolves the request's credentials once and stores the result.
// API-token auth is attempted first (Authorization: Bearer, then X-Api-Key);
// absent or invalid bearer credentials fall back to the session cookie.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := m.resolve(c)
		c.Set(contextKeyAuth, ctx)

		// A fresh session means the expiry slid forward; re-issue the
		// cookie so the client deadline matches.
		if ctx.Kind == ContextSession && ctx.Session.Fresh {
			m.setSessionCookie(c, ctx.Session.Session)
		}

		c.Next()
	}
}

func (m *Middleware) resolve(c *gin.Context) *AuthContext {
	if secret := bearerSecret(c); secret != "" {
		if token, err := m.tokens.Validate(secret); err == nil {
			return &AuthContext{
				Kind: ContextAPIToken,
				Token: &TokenPrincipal{
					TokenID: token.ID,
					UserID:  token.UserID,
					Scopes:  token.ScopeList(),
				},
			}
		}
	}

	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		if check, err := m.sessions.Validate(cookie); err == nil {
			if user, err := m.users.GetUserByID(check.Session.UserID); err == nil {
				return &AuthContext{
					Kind: ContextSession,
					Session: &SessionPrincipal{
						User:    user,
						Session: check.Session,
						Fresh:   check.Fresh,
					},
				}
			}
		}
	}

	return &AuthContext{Kind: ContextNone}
}

// bearerSecret extracts an API token secret from the Authorization header
// or the X-Api-Key fallback.
func bearerSecret(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.GetHeader(HeaderAPIKey)
}

// setSessionCookie issues the session cookie with the session's current
// expiry: HTTP-only, SameSite=Lax, Secure in production.
func (m *Middleware) setSessionCookie(c *gin.Context, session *entities.Session) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   m.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// IssueSessionCookie sets the cookie for a newly created session.
func (m *Middleware) IssueSessionCookie(c *gin.Context, session *entities.Session) {
	m.setSessionCookie(c, session)
}

// ClearSessionCookie expires the session cookie.
func (m *Middleware) ClearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireAuth aborts unauthenticated requests with 401.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetAuthContext(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}
		c.Next()
	}
}

// RequireScopes enforces scope-based access. API tokens must carry every
// required scope; sessions are first-party credentials and pass scope
// checks outright. Anonymous requests get 401.
func (m *Middleware) RequireScopes(required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := GetAuthContext(c)
		switch ctx.Kind {
		case ContextSession:
			c.Next()
		case ContextAPIToken:
			if !HasAllScopes(ctx.Token.Scopes, required) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "insufficient scope",
				})
				return
			}
			c.Next()
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
		}
	}
}

// RequireSession restricts a route to cookie-session callers, e.g. viewing
// token secrets.
func (m *Middleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetAuthContext(c).Kind != ContextSession {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "session authentication required",
			})
			return
		}
		c.Next()
	}
}

// GetAuthContext retrieves the resolved auth context. Requests that never
// passed through the resolver read as anonymous.
func GetAuthContext(c *gin.Context) *AuthContext {
	if v, exists := c.Get(contextKeyAuth); exists {
		if ctx, ok := v.(*AuthContext); ok {
			return ctx
		}
	}
	return &AuthContext{Kind: ContextNone}
}

// ClientIP returns the edge-normalized client IP, if the edge supplied one.
func ClientIP(c *gin.Context) string {
	return c.GetHeader(HeaderClientIP)
}

// DeviceInfo decodes the edge-supplied device descriptor. Advisory only:
// malformed input yields nil rather than an error.
func DeviceInfo(c *gin.Context) *entities.DeviceInfo {
	raw := c.GetHeader(HeaderDeviceInfo)
	if raw == "" {
		return nil
	}
	var info entities.DeviceInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil
	}
	return &info
}
