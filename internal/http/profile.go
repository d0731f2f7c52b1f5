package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jkoudys/daybook/internal/auth"
)

// ProfileController handles user profile operations.
type ProfileController struct {
	users      *auth.Service
	middleware *auth.Middleware
}

// NewProfileController creates a new ProfileController.
func NewProfileController(users *auth.Service, mw *auth.Middleware) *ProfileController {
	return &ProfileController{users: users, middleware: mw}
}

// Profile returns the caller's account.
func (pc *ProfileController) Profile(c *gin.Context) {
	user, err := pc.users.GetUserByID(auth.GetAuthContext(c).UserID())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"url_token":    user.URLToken,
		"created_at":   user.CreatedAt,
	})
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
}

// UpdateProfile changes the display name.
func (pc *ProfileController) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := pc.users.UpdateProfile(auth.GetAuthContext(c).UserID(), req.DisplayName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword updates the caller's password.
func (pc *ProfileController) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := pc.users.ChangePassword(auth.GetAuthContext(c).UserID(), req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidPassword):
			c.JSON(http.StatusForbidden, gin.H{"error": "current password is incorrect"})
		case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change password"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password changed"})
}

// RegenerateURLToken replaces the caller's URL-routing token. Old share
// links stop resolving immediately.
func (pc *ProfileController) RegenerateURLToken(c *gin.Context) {
	token, err := pc.users.RegenerateURLToken(auth.GetAuthContext(c).UserID())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to regenerate url token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url_token": token})
}

// DeleteAccount removes the caller's account, sessions and tokens, then
// clears the cookie.
func (pc *ProfileController) DeleteAccount(c *gin.Context) {
	if err := pc.users.DeleteUser(auth.GetAuthContext(c).UserID()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete account"})
		return
	}
	pc.middleware.ClearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "account deleted"})
}
