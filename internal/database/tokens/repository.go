// Package tokens provides database operations for API token records.
package tokens

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkoudys/daybook/internal/entities"
)

// ErrAlreadyRevoked is returned when revoking a token that is already
// revoked. Revocation is monotonic; the first timestamp wins.
var ErrAlreadyRevoked = errors.New("token already revoked")

// Repository handles all API token database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new tokens repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new token record with a generated ID.
func (r *Repository) Create(token *entities.APIToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	return r.db.Create(token).Error
}

// GetByID retrieves a token by ID.
func (r *Repository) GetByID(id string) (*entities.APIToken, error) {
	var token entities.APIToken
	err := r.db.Where("id = ?", id).First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// FindByPrefix returns every token sharing the given visible prefix. The
// prefix is a bucket, not a unique key: collisions are expected and callers
// verify each candidate's hash. Oldest first, so scan order is stable.
func (r *Repository) FindByPrefix(prefix string) ([]entities.APIToken, error) {
	var tokens []entities.APIToken
	err := r.db.
		Where("prefix = ?", prefix).
		Order("created_at ASC, id ASC").
		Find(&tokens).Error
	return tokens, err
}

// ListByUser returns the tokens owned by a user, newest first.
func (r *Repository) ListByUser(userID string) ([]entities.APIToken, error) {
	var tokens []entities.APIToken
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

// ListSystem returns ownerless (system) tokens, newest first.
func (r *Repository) ListSystem() ([]entities.APIToken, error) {
	var tokens []entities.APIToken
	err := r.db.
		Where("user_id IS NULL").
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

// Update applies the given column updates to a token.
// Returns gorm.ErrRecordNotFound if no row was affected.
func (r *Repository) Update(id string, updates map[string]any) error {
	result := r.db.Model(&entities.APIToken{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Revoke stamps the token revoked. The guarded WHERE keeps the transition
// monotonic: a second revocation never moves the timestamp.
func (r *Repository) Revoke(id string, at time.Time) error {
	result := r.db.Model(&entities.APIToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var token entities.APIToken
		if err := r.db.Where("id = ?", id).First(&token).Error; err != nil {
			return err
		}
		return ErrAlreadyRevoked
	}
	return nil
}

// TouchLastUsed records a successful validation. Best-effort bookkeeping;
// callers dispatch it off the request path.
func (r *Repository) TouchLastUsed(id string, at time.Time) error {
	return r.db.Model(&entities.APIToken{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

// Delete hard-deletes a token. Independent of revocation.
func (r *Repository) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&entities.APIToken{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PurgeStale hard-deletes tokens that have been revoked or expired since
// before the cutoff. Re-runnable; returns the number of rows removed.
func (r *Repository) PurgeStale(cutoff time.Time) (int64, error) {
	result := r.db.
		Where("revoked_at IS NOT NULL AND revoked_at <= ?", cutoff).
		Or("expires_at IS NOT NULL AND expires_at <= ?", cutoff).
		Delete(&entities.APIToken{})
	return result.RowsAffected, result.Error
}
