package auth

import (
	"errors"
	"strings"
	"testing"
)

const testBcryptCost = 4 // Low cost for faster tests

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "valid password",
			password: "correcthorsebattery",
			wantErr:  nil,
		},
		{
			name:     "minimum length",
			password: "exactly12chs",
			wantErr:  nil,
		},
		{
			name:     "too short",
			password: "short",
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "empty",
			password: "",
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "too long",
			password: strings.Repeat("a", 73),
			wantErr:  ErrPasswordTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, testBcryptCost)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("HashPassword() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("HashPassword() unexpected error = %v", err)
			}
			if hash == tt.password {
				t.Error("HashPassword() returned the plaintext")
			}
			if err := CheckPassword(tt.password, hash); err != nil {
				t.Errorf("CheckPassword() on fresh hash = %v", err)
			}
		})
	}
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	h1, err := HashPassword("correcthorsebattery", testBcryptCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	h2, err := HashPassword("correcthorsebattery", testBcryptCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password are identical")
	}
}

func TestCheckPassword_Mismatch(t *testing.T) {
	hash, err := HashPassword("correcthorsebattery", testBcryptCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if err := CheckPassword("wronghorsebattery", hash); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("CheckPassword() error = %v, want ErrInvalidPassword", err)
	}
}

func TestHashSecret(t *testing.T) {
	// Secrets skip the human-password length rules entirely.
	hash, err := HashSecret("x", testBcryptCost)
	if err != nil {
		t.Fatalf("HashSecret() error = %v", err)
	}
	if !CheckSecret("x", hash) {
		t.Error("CheckSecret() = false for matching secret")
	}
	if CheckSecret("y", hash) {
		t.Error("CheckSecret() = true for non-matching secret")
	}
}

func TestHashSecret_GeneratedShape(t *testing.T) {
	secret, prefix, err := generateTokenSecret(timeFixed())
	if err != nil {
		t.Fatalf("generateTokenSecret() error = %v", err)
	}

	hash, err := HashSecret(secret, testBcryptCost)
	if err != nil {
		t.Fatalf("HashSecret() error = %v", err)
	}
	if !CheckSecret(secret, hash) {
		t.Error("CheckSecret() = false for generated secret")
	}
	if !strings.HasPrefix(secret, prefix) {
		t.Errorf("secret %q does not start with prefix %q", secret, prefix)
	}
}
