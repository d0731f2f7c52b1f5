// Package users provides database operations for user records.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByEmail(email)
package users

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkoudys/daybook/internal/entities"
)

// URLTokenBytes is the random byte length of a user's URL-routing token.
// The hex form (32 chars) is deliberately shorter than a session bearer
// token (64 chars), so the two namespaces never overlap.
const URLTokenBytes = 16

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user with a generated ID and URL-routing token.
func (r *Repository) Create(email, displayName, passwordHash string) (*entities.User, error) {
	urlToken, err := generateURLToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate url token: %w", err)
	}

	user := &entities.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		URLToken:     urlToken,
	}

	if err := r.db.Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(id string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (r *Repository) GetByEmail(email string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByURLToken retrieves a user by their URL-routing token.
func (r *Repository) GetByURLToken(token string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("url_token = ?", token).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update applies the given column updates to a user.
// Returns gorm.ErrRecordNotFound if no row was affected.
func (r *Repository) Update(id string, updates map[string]any) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RegenerateURLToken replaces the user's URL-routing token with a fresh one.
func (r *Repository) RegenerateURLToken(id string) (string, error) {
	token, err := generateURLToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate url token: %w", err)
	}
	if err := r.Update(id, map[string]any{"url_token": token}); err != nil {
		return "", err
	}
	return token, nil
}

// Delete removes a user. Sessions and API tokens owned by the user are
// removed explicitly as well, so the cascade does not depend on the SQLite
// connection having foreign keys enabled.
func (r *Repository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&entities.Session{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&entities.APIToken{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entities.User{}).Error
	})
}

// Count returns the number of users.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}

func generateURLToken() (string, error) {
	bytes := make([]byte, URLTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
