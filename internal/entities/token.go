package entities

import (
	"strings"
	"time"
)

// APIToken is a long-lived, scope-restricted bearer credential. Only the
// bcrypt hash of the secret is searchable; the non-secret Prefix narrows
// validation to a small candidate bucket. A nil UserID marks a system token
// owned by no single user.
type APIToken struct {
	ID     string  `gorm:"primaryKey;size:36" json:"id"`
	UserID *string `gorm:"index;size:36" json:"user_id,omitempty"`

	Name      string `gorm:"size:100" json:"name"`
	TokenHash string `gorm:"uniqueIndex;size:255" json:"-"`
	Prefix    string `gorm:"index;size:16" json:"prefix"`
	Scopes    string `gorm:"size:512" json:"scopes"` // space-separated

	// EncryptedSecret holds the JSON-marshalled encryption envelope for the
	// original secret, present only while Viewable is set.
	EncryptedSecret string `gorm:"type:text" json:"-"`
	Viewable        bool   `json:"viewable"`

	ExpiresAt  *time.Time `gorm:"index" json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `gorm:"index" json:"revoked_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (APIToken) TableName() string {
	return "api_tokens"
}

// ScopeList splits the stored scope string into its individual scopes.
func (t *APIToken) ScopeList() []string {
	if t.Scopes == "" {
		return nil
	}
	return strings.Fields(t.Scopes)
}

// SetScopes stores the given scopes as the canonical space-separated form.
func (t *APIToken) SetScopes(scopes []string) {
	t.Scopes = strings.Join(scopes, " ")
}

// Revoked reports whether the token has been revoked. Revocation is terminal.
func (t *APIToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Expired reports whether the token is past its expiry at the given instant.
// Tokens without an expiry never expire by clock.
func (t *APIToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// Active reports whether the token can still authenticate at the given
// instant: not revoked and not expired.
func (t *APIToken) Active(now time.Time) bool {
	return !t.Revoked() && !t.Expired(now)
}
