package auth

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"gorm.io/gorm"

	"github.com/jkoudys/daybook/internal/config"
	"github.com/jkoudys/daybook/internal/database/users"
	"github.com/jkoudys/daybook/internal/entities"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Service handles user accounts: sign-up, password authentication with
// lockout, profile changes, and deletion (which cascades to sessions and
// owned tokens).
type Service struct {
	repo *users.Repository
	cfg  config.Auth
}

// NewService creates a new user service.
func NewService(repo *users.Repository, cfg config.Auth) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// SignUp creates a new user with password authentication and a generated
// URL-routing token.
func (s *Service) SignUp(email, displayName, password string) (*entities.User, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	// Validate email format and length (RFC 5321 limit is 254)
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return nil, ErrEmailInvalid
	}

	if _, err := s.repo.GetByEmail(email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(email, displayName, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate validates credentials and returns the user.
// Implements account lockout after too many failed attempts.
func (s *Service) Authenticate(email, password string) (*entities.User, error) {
	user, err := s.repo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(user)
		return nil, err
	}

	// Successful login - reset failed attempts and update last login
	now := time.Now()
	if err := s.repo.Update(user.ID, map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	}); err != nil {
		// Counters are bookkeeping; the login still succeeds.
		log.Printf("failed to reset login counters for %s: %v", user.ID, err)
	}

	return user, nil
}

// recordFailedLogin increments the failed login counter and locks the
// account once the threshold is reached.
func (s *Service) recordFailedLogin(user *entities.User) {
	user.FailedLoginCount++

	updates := map[string]any{
		"failed_login_count": user.FailedLoginCount,
	}

	maxAttempts := s.cfg.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if user.FailedLoginCount >= maxAttempts {
		lockoutDuration := s.cfg.LockoutDuration
		if lockoutDuration == 0 {
			lockoutDuration = 30 * time.Minute
		}
		updates["locked_until"] = time.Now().Add(lockoutDuration)
	}

	_ = s.repo.Update(user.ID, updates)
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id string) (*entities.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetUserByURLToken retrieves a user by their URL-routing token.
func (s *Service) GetUserByURLToken(token string) (*entities.User, error) {
	user, err := s.repo.GetByURLToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile changes the user's display name.
func (s *Service) UpdateProfile(id, displayName string) error {
	err := s.repo.Update(id, map[string]any{"display_name": displayName})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}

// RegenerateURLToken replaces the user's URL-routing token. The old token
// stops resolving immediately.
func (s *Service) RegenerateURLToken(id string) (string, error) {
	token, err := s.repo.RegenerateURLToken(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}
	return token, err
}

// ChangePassword updates a user's password after verifying the old one.
func (s *Service) ChangePassword(id, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(id)
	if err != nil {
		return err
	}

	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		return err
	}

	newHash, err := HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	return s.repo.Update(id, map[string]any{"password_hash": newHash})
}

// DeleteUser removes the user along with all their sessions and tokens.
func (s *Service) DeleteUser(id string) error {
	return s.repo.Delete(id)
}
