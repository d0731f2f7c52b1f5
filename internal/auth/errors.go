package auth

import "errors"

// Credential and authorization errors. Validation-style operations return
// these as structured results; callers map them to user-facing statuses.
var (
	ErrNoCredential      = errors.New("no credential presented")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpired           = errors.New("credential expired")
	ErrRevoked           = errors.New("token revoked")
	ErrScopeDenied       = errors.New("missing required scope")
	ErrUnknownScope      = errors.New("scope not in recognized vocabulary")
	ErrEmptyScopes       = errors.New("token requires at least one scope")
	ErrTokenNotFound     = errors.New("token not found")
	ErrNotTokenOwner     = errors.New("token belongs to another user")
	ErrNotViewable       = errors.New("token secret was not stored for viewing")
)

// Encryption errors. Envelope structure problems and authentication
// failures at decrypt time are reported differently.
var (
	ErrEnvelopeInvalid      = errors.New("encryption envelope structurally invalid")
	ErrDecryptFailed        = errors.New("decryption failed: authentication error")
	ErrEncryptionKeyMissing = errors.New("encryption key not configured")
	ErrInvalidKeySize       = errors.New("encryption key must be 32 bytes hex-encoded")
)

// User service errors.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
)
