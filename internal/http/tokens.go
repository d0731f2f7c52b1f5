package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jkoudys/daybook/internal/auth"
	"github.com/jkoudys/daybook/internal/entities"
)

// TokenController manages API tokens for the authenticated user.
type TokenController struct {
	tokens *auth.TokenService
}

// NewTokenController creates a new TokenController.
func NewTokenController(tokens *auth.TokenService) *TokenController {
	return &TokenController{tokens: tokens}
}

type issueTokenRequest struct {
	Name    string   `json:"name"`
	Scopes  []string `json:"scopes"`
	TTLDays int      `json:"ttl_days"`
}

type updateTokenRequest struct {
	Name    string   `json:"name"`
	Scopes  []string `json:"scopes"`
	TTLDays *int     `json:"ttl_days"`
}

// Issue creates a new API token owned by the caller. The raw secret
// appears in this response and nowhere else.
func (tc *TokenController) Issue(c *gin.Context) {
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token name is required"})
		return
	}

	userID := auth.GetAuthContext(c).UserID()
	issued, err := tc.tokens.Issue(req.Name, req.Scopes, &userID, req.TTLDays)
	if err != nil {
		if errors.Is(err, auth.ErrEmptyScopes) || errors.Is(err, auth.ErrUnknownScope) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":  tokenView(issued.Token),
		"secret": issued.Secret,
	})
}

// List returns the caller's tokens, never including secrets.
func (tc *TokenController) List(c *gin.Context) {
	tokens, err := tc.tokens.ListByUser(auth.GetAuthContext(c).UserID())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tokens"})
		return
	}

	views := make([]gin.H, 0, len(tokens))
	for i := range tokens {
		views = append(views, tokenView(&tokens[i]))
	}
	c.JSON(http.StatusOK, gin.H{"tokens": views})
}

// Update renames, rescopes, or re-expires one of the caller's tokens.
func (tc *TokenController) Update(c *gin.Context) {
	token, ok := tc.ownedToken(c)
	if !ok {
		return
	}

	var req updateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ttlDays := -1 // leave expiry unchanged unless provided
	if req.TTLDays != nil {
		ttlDays = *req.TTLDays
	}

	updated, err := tc.tokens.Update(token.ID, req.Name, req.Scopes, ttlDays)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmptyScopes), errors.Is(err, auth.ErrUnknownScope):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, auth.ErrTokenNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update token"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": tokenView(updated)})
}

// Revoke marks the token revoked. Terminal; repeated revocations are
// harmless.
func (tc *TokenController) Revoke(c *gin.Context) {
	token, ok := tc.ownedToken(c)
	if !ok {
		return
	}

	if err := tc.tokens.Revoke(token.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

// Delete hard-deletes the token record.
func (tc *TokenController) Delete(c *gin.Context) {
	token, ok := tc.ownedToken(c)
	if !ok {
		return
	}

	if err := tc.tokens.Delete(token.ID); err != nil {
		if errors.Is(err, auth.ErrTokenNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// View returns the token's original secret, decrypted on demand. Limited
// to session callers by the route guard; the service re-checks ownership.
func (tc *TokenController) View(c *gin.Context) {
	secret, err := tc.tokens.View(c.Param("id"), auth.GetAuthContext(c).UserID())
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		case errors.Is(err, auth.ErrNotTokenOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not your token"})
		case errors.Is(err, auth.ErrNotViewable):
			c.JSON(http.StatusGone, gin.H{"error": "secret not stored for viewing"})
		case errors.Is(err, auth.ErrEnvelopeInvalid), errors.Is(err, auth.ErrDecryptFailed):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "stored secret unrecoverable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to view token"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"secret": secret})
}

// ownedToken loads the token in the path and verifies the caller owns it.
func (tc *TokenController) ownedToken(c *gin.Context) (*entities.APIToken, bool) {
	token, err := tc.tokens.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, auth.ErrTokenNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load token"})
		}
		return nil, false
	}

	userID := auth.GetAuthContext(c).UserID()
	if token.UserID == nil || *token.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your token"})
		return nil, false
	}
	return token, true
}

func tokenView(t *entities.APIToken) gin.H {
	view := gin.H{
		"id":         t.ID,
		"name":       t.Name,
		"prefix":     t.Prefix,
		"scopes":     t.ScopeList(),
		"viewable":   t.Viewable,
		"created_at": t.CreatedAt,
	}
	if t.ExpiresAt != nil {
		view["expires_at"] = t.ExpiresAt
	}
	if t.LastUsedAt != nil {
		view["last_used_at"] = t.LastUsedAt
	}
	if t.RevokedAt != nil {
		view["revoked_at"] = t.RevokedAt
	}
	return view
}
