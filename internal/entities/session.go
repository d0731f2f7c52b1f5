package entities

import (
	"time"
)

// DeviceInfo is the edge-parsed device descriptor attached to a session.
// It is advisory metadata only and never an authorization input.
type DeviceInfo struct {
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Device  string `json:"device,omitempty"`
	Mobile  bool   `json:"mobile,omitempty"`
}

// Session is the proof of a past successful login. The bearer token is
// stored as-is (not hashed): first-party session cookies carry a lower
// threat model than long-lived API tokens.
type Session struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	UserID string `gorm:"index;size:36" json:"user_id"`

	Token        string    `gorm:"uniqueIndex;size:64" json:"-"`
	ExpiresAt    time.Time `gorm:"index" json:"expires_at"`
	LastActiveAt time.Time `gorm:"index" json:"last_active_at"`

	IPAddress string `gorm:"size:45" json:"ip_address,omitempty"`
	Browser   string `gorm:"size:64" json:"browser,omitempty"`
	OS        string `gorm:"size:64" json:"os,omitempty"`
	Device    string `gorm:"size:64" json:"device,omitempty"`
	Mobile    bool   `json:"mobile"`

	CreatedAt time.Time `json:"created_at"`
}

func (Session) TableName() string {
	return "sessions"
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
