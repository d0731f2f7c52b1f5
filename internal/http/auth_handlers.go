package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jkoudys/daybook/internal/auth"
)

// AuthController handles login, logout and sign-up.
type AuthController struct {
	users       *auth.Service
	sessions    *auth.SessionService
	middleware  *auth.Middleware
	rateLimiter *auth.RateLimiter
}

// NewAuthController creates a new AuthController.
func NewAuthController(users *auth.Service, sessions *auth.SessionService, mw *auth.Middleware, rl *auth.RateLimiter) *AuthController {
	return &AuthController{
		users:       users,
		sessions:    sessions,
		middleware:  mw,
		rateLimiter: rl,
	}
}

type credentialsRequest struct {
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	DisplayName string `json:"display_name" form:"display_name"`
}

// SignUp creates a user account and logs it in.
func (ac *AuthController) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := ac.users.SignUp(req.Email, req.DisplayName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong),
			errors.Is(err, auth.ErrEmailInvalid), errors.Is(err, auth.ErrEmailRequired),
			errors.Is(err, auth.ErrPasswordRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		}
		return
	}

	ac.startSession(c, user.ID)
}

// Login authenticates credentials and issues a session cookie.
func (ac *AuthController) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ip := clientIP(c)

	user, err := ac.users.Authenticate(req.Email, req.Password)
	if err != nil {
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(ip, req.Email)
		}
		if errors.Is(err, auth.ErrAccountLocked) {
			c.JSON(http.StatusForbidden, gin.H{"error": "account temporarily locked"})
			return
		}
		// Same answer for unknown user and bad password.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(ip, req.Email)
	}

	ac.startSession(c, user.ID)
}

// Logout deletes the current session and clears the cookie.
func (ac *AuthController) Logout(c *gin.Context) {
	if cookie, err := c.Cookie(auth.SessionCookieName); err == nil && cookie != "" {
		if err := ac.sessions.DeleteByToken(cookie); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to end session"})
			return
		}
	}
	ac.middleware.ClearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (ac *AuthController) startSession(c *gin.Context, userID string) {
	session, err := ac.sessions.Create(userID, clientIP(c), auth.DeviceInfo(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	ac.middleware.IssueSessionCookie(c, session)
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"expires_at": session.ExpiresAt,
	})
}

func clientIP(c *gin.Context) string {
	if ip := auth.ClientIP(c); ip != "" {
		return ip
	}
	return c.ClientIP()
}
