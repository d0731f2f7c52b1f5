package entities

import (
	"time"
)

// User is the identity anchor. Sessions and API tokens hang off it and are
// removed when the user is deleted.
type User struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Email        string `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	DisplayName  string `gorm:"size:100" json:"display_name"`

	// URLToken is the opaque, unguessable token embedded in shareable URLs.
	// Immutable once set, except through explicit regeneration.
	URLToken string `gorm:"uniqueIndex;size:64" json:"-"`

	FailedLoginCount int        `json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	Sessions []Session  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Tokens   []APIToken `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
