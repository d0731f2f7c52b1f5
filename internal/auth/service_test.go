package auth

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jkoudys/daybook/internal/config"
	"github.com/jkoudys/daybook/internal/database/users"
	"github.com/jkoudys/daybook/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&entities.User{}, &entities.Session{}, &entities.APIToken{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// timeFixed returns a stable instant for deterministic token and session
// scenarios.
func timeFixed() time.Time {
	return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}

func newUserService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	repo := users.NewRepository(db)
	return NewService(repo, config.Auth{
		BcryptCost:       testBcryptCost,
		MaxLoginAttempts: 3,
		LockoutDuration:  30 * time.Minute,
	}), db
}

func TestService_SignUp(t *testing.T) {
	svc, _ := newUserService(t)

	tests := []struct {
		name        string
		email       string
		displayName string
		password    string
		wantErr     error
	}{
		{
			name:        "valid user",
			email:       "alice@example.com",
			displayName: "Alice",
			password:    "password12345",
			wantErr:     nil,
		},
		{
			name:     "missing email",
			email:    "",
			password: "password12345",
			wantErr:  ErrEmailRequired,
		},
		{
			name:     "missing password",
			email:    "bob@example.com",
			password: "",
			wantErr:  ErrPasswordRequired,
		},
		{
			name:     "invalid email",
			email:    "not-an-email",
			password: "password12345",
			wantErr:  ErrEmailInvalid,
		},
		{
			name:     "password too short",
			email:    "bob@example.com",
			password: "short",
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "duplicate email",
			email:    "alice@example.com",
			password: "password12345",
			wantErr:  ErrUserExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.SignUp(tt.email, tt.displayName, tt.password)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("SignUp() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("SignUp() unexpected error = %v", err)
			}
			if user.Email != tt.email {
				t.Errorf("user.Email = %v, want %v", user.Email, tt.email)
			}
			if user.PasswordHash == "" || user.PasswordHash == tt.password {
				t.Error("password not hashed")
			}
			if len(user.URLToken) != 32 {
				t.Errorf("len(user.URLToken) = %d, want 32", len(user.URLToken))
			}
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	svc, _ := newUserService(t)

	created, err := svc.SignUp("alice@example.com", "Alice", "password12345")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	t.Run("correct password", func(t *testing.T) {
		user, err := svc.Authenticate("alice@example.com", "password12345")
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if user.ID != created.ID {
			t.Errorf("user.ID = %v, want %v", user.ID, created.ID)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate("alice@example.com", "wrongpassword")
		if !errors.Is(err, ErrInvalidPassword) {
			t.Errorf("Authenticate() error = %v, want ErrInvalidPassword", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Authenticate("nobody@example.com", "password12345")
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("Authenticate() error = %v, want ErrUserNotFound", err)
		}
	})
}

func TestService_Authenticate_Lockout(t *testing.T) {
	svc, _ := newUserService(t)

	if _, err := svc.SignUp("alice@example.com", "Alice", "password12345"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	// Three failures hits the configured threshold
	for i := 0; i < 3; i++ {
		if _, err := svc.Authenticate("alice@example.com", "wrongpassword"); err == nil {
			t.Fatal("Authenticate() succeeded with wrong password")
		}
	}

	// Even the correct password is refused while locked
	if _, err := svc.Authenticate("alice@example.com", "password12345"); !errors.Is(err, ErrAccountLocked) {
		t.Errorf("Authenticate() error = %v, want ErrAccountLocked", err)
	}
}

func TestService_Authenticate_SuccessResetsCounters(t *testing.T) {
	svc, _ := newUserService(t)

	created, err := svc.SignUp("alice@example.com", "Alice", "password12345")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	// Two failures, one short of lockout
	for i := 0; i < 2; i++ {
		_, _ = svc.Authenticate("alice@example.com", "wrongpassword")
	}

	if _, err := svc.Authenticate("alice@example.com", "password12345"); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	user, err := svc.GetUserByID(created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if user.FailedLoginCount != 0 {
		t.Errorf("FailedLoginCount = %d after successful login, want 0", user.FailedLoginCount)
	}
	if user.LastLoginAt == nil {
		t.Error("LastLoginAt not set after successful login")
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc, _ := newUserService(t)

	created, err := svc.SignUp("alice@example.com", "Alice", "password12345")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	t.Run("wrong old password", func(t *testing.T) {
		err := svc.ChangePassword(created.ID, "wrongpassword", "newpassword12345")
		if !errors.Is(err, ErrInvalidPassword) {
			t.Errorf("ChangePassword() error = %v, want ErrInvalidPassword", err)
		}
	})

	t.Run("correct old password", func(t *testing.T) {
		if err := svc.ChangePassword(created.ID, "password12345", "newpassword12345"); err != nil {
			t.Fatalf("ChangePassword() error = %v", err)
		}
		if _, err := svc.Authenticate("alice@example.com", "newpassword12345"); err != nil {
			t.Errorf("Authenticate() with new password error = %v", err)
		}
	})
}

func TestService_RegenerateURLToken(t *testing.T) {
	svc, _ := newUserService(t)

	created, err := svc.SignUp("alice@example.com", "Alice", "password12345")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	fresh, err := svc.RegenerateURLToken(created.ID)
	if err != nil {
		t.Fatalf("RegenerateURLToken() error = %v", err)
	}
	if fresh == created.URLToken {
		t.Error("regenerated token equals the old one")
	}

	// Old token stops resolving immediately
	if _, err := svc.GetUserByURLToken(created.URLToken); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUserByURLToken(old) error = %v, want ErrUserNotFound", err)
	}
	user, err := svc.GetUserByURLToken(fresh)
	if err != nil {
		t.Fatalf("GetUserByURLToken(fresh) error = %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("user.ID = %v, want %v", user.ID, created.ID)
	}
}

func TestService_DeleteUser(t *testing.T) {
	db := setupTestDB(t)
	repo := users.NewRepository(db)
	svc := NewService(repo, config.Auth{BcryptCost: testBcryptCost})

	created, err := svc.SignUp("alice@example.com", "Alice", "password12345")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	// Hang a session and a token off the user
	db.Create(&entities.Session{ID: "s1", UserID: created.ID, Token: "tok"})
	db.Create(&entities.APIToken{ID: "t1", UserID: &created.ID, TokenHash: "hash"})

	if err := svc.DeleteUser(created.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	if _, err := svc.GetUserByID(created.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrUserNotFound", err)
	}

	var sessions, tokens int64
	db.Model(&entities.Session{}).Where("user_id = ?", created.ID).Count(&sessions)
	db.Model(&entities.APIToken{}).Where("user_id = ?", created.ID).Count(&tokens)
	if sessions != 0 || tokens != 0 {
		t.Errorf("orphaned rows after delete: %d sessions, %d tokens", sessions, tokens)
	}
}
