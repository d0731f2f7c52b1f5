// Package sessions provides database operations for login session records.
package sessions

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkoudys/daybook/internal/entities"
)

// Repository handles all session database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new sessions repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new session record with a generated ID.
func (r *Repository) Create(session *entities.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	return r.db.Create(session).Error
}

// GetByToken retrieves a session by exact bearer-token match.
// Returns nil (no error) when no session carries the token.
func (r *Repository) GetByToken(token string) (*entities.Session, error) {
	var session entities.Session
	err := r.db.Where("token = ?", token).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// ListByUser returns a user's sessions ranked most-recently-active first.
// The ordering is total: activity, then creation time, then ID.
func (r *Repository) ListByUser(userID string) ([]entities.Session, error) {
	var sessions []entities.Session
	err := r.db.
		Where("user_id = ?", userID).
		Order("last_active_at DESC, created_at DESC, id DESC").
		Find(&sessions).Error
	return sessions, err
}

// DeleteByID removes a session by ID. Deleting a nonexistent session is not
// an error.
func (r *Repository) DeleteByID(id string) error {
	return r.db.Where("id = ?", id).Delete(&entities.Session{}).Error
}

// DeleteByToken removes a session by its bearer token. Idempotent.
func (r *Repository) DeleteByToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&entities.Session{}).Error
}

// DeleteByIDs removes the given sessions in one statement.
func (r *Repository) DeleteByIDs(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Where("id IN ?", ids).Delete(&entities.Session{}).Error
}

// Extend pushes a session's expiry and activity timestamps forward.
func (r *Repository) Extend(id string, expiresAt, lastActiveAt time.Time) error {
	return r.db.Model(&entities.Session{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"expires_at":     expiresAt,
			"last_active_at": lastActiveAt,
		}).Error
}

// DeleteExpired removes every session whose expiry is at or before now.
// Safe to call repeatedly; returns the number of rows removed.
func (r *Repository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Where("expires_at <= ?", now).Delete(&entities.Session{})
	return result.RowsAffected, result.Error
}

// DeleteIdleSince removes sessions with no activity since the cutoff,
// independent of their expiry.
func (r *Repository) DeleteIdleSince(cutoff time.Time) (int64, error) {
	result := r.db.Where("last_active_at <= ?", cutoff).Delete(&entities.Session{})
	return result.RowsAffected, result.Error
}

// CountByUser returns the number of sessions held by a user.
func (r *Repository) CountByUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Session{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
