package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jkoudys/daybook/internal/config"
	"github.com/jkoudys/daybook/internal/database/tokens"
	"github.com/jkoudys/daybook/internal/entities"
)

const (
	// TokenLiteralPrefix opens every API token secret.
	TokenLiteralPrefix = "dbk_"

	// tokenTimeChars is the width of the base36 time component. Zero-padded;
	// wide enough for any plausible epoch second.
	tokenTimeChars = 8

	// TokenPrefixLength is the length of the visible prefix: the literal
	// prefix plus the time component, never any secret bytes.
	TokenPrefixLength = len(TokenLiteralPrefix) + tokenTimeChars

	// tokenRandomBytes sizes the secret's random component (192 bits).
	tokenRandomBytes = 24
)

// IssuedToken pairs a stored token record with its raw secret. The secret
// is surfaced exactly once, here.
type IssuedToken struct {
	Token  *entities.APIToken
	Secret string
}

// TokenService is the authority over API tokens: issuance, prefix-bucketed
// validation, scope checks, revocation, and viewing.
type TokenService struct {
	repo  *tokens.Repository
	codec *SecretCodec
	cfg   config.Auth
	now   func() time.Time
}

// NewTokenService creates a token service.
func NewTokenService(repo *tokens.Repository, codec *SecretCodec, cfg config.Auth) *TokenService {
	return &TokenService{
		repo:  repo,
		codec: codec,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Issue creates a new API token. Scopes must be a non-empty subset of the
// recognized vocabulary. ttlDays > 0 sets an expiry; anything else means the
// token never expires by clock. ownerID nil issues a system token.
//
// The raw secret is returned once and persisted only as a bcrypt hash plus
// an authenticated-encryption envelope for later viewing.
func (s *TokenService) Issue(name string, scopes []string, ownerID *string, ttlDays int) (*IssuedToken, error) {
	if err := ValidateScopes(scopes); err != nil {
		return nil, err
	}

	now := s.now()
	secret, prefix, err := generateTokenSecret(now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token secret: %w", err)
	}

	hash, err := HashSecret(secret, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash token secret: %w", err)
	}

	envelope, err := s.codec.Encrypt(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt token secret: %w", err)
	}
	stored, err := envelope.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	token := &entities.APIToken{
		UserID:          ownerID,
		Name:            name,
		TokenHash:       hash,
		Prefix:          prefix,
		EncryptedSecret: stored,
		Viewable:        true,
	}
	token.SetScopes(scopes)
	if ttlDays > 0 {
		expiry := now.AddDate(0, 0, ttlDays)
		token.ExpiresAt = &expiry
	}

	if err := s.repo.Create(token); err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &IssuedToken{Token: token, Secret: secret}, nil
}

// Validate checks a presented secret. Malformed secrets are rejected
// outright; otherwise the visible prefix narrows the search to a bucket of
// candidates whose hashes are verified sequentially, first match wins.
//
// Active candidates are scanned first so the hot path skips revoked and
// expired rows without hashing. If none match, the dead candidates are
// scanned too, so a matching-but-revoked token reports Revoked rather than
// a generic credential failure.
//
// On success the last-used timestamp update is dispatched and forgotten: a
// failed bookkeeping write never fails a valid authentication.
func (s *TokenService) Validate(secret string) (*entities.APIToken, error) {
	if secret == "" {
		return nil, ErrNoCredential
	}
	if !strings.HasPrefix(secret, TokenLiteralPrefix) || len(secret) <= TokenPrefixLength {
		return nil, ErrInvalidCredential
	}

	prefix := secret[:TokenPrefixLength]
	bucket, err := s.repo.FindByPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token bucket: %w", err)
	}

	now := s.now()
	var dead []entities.APIToken
	for i := range bucket {
		candidate := &bucket[i]
		if !candidate.Active(now) {
			dead = append(dead, *candidate)
			continue
		}
		if CheckSecret(secret, candidate.TokenHash) {
			s.touchLastUsed(candidate.ID, now)
			return candidate, nil
		}
	}

	for i := range dead {
		candidate := &dead[i]
		if !CheckSecret(secret, candidate.TokenHash) {
			continue
		}
		if candidate.Revoked() {
			return nil, ErrRevoked
		}
		return nil, ErrExpired
	}

	return nil, ErrInvalidCredential
}

// Authorize reports whether the token's scopes satisfy every required
// scope.
func (s *TokenService) Authorize(token *entities.APIToken, required ...string) error {
	if !HasAllScopes(token.ScopeList(), required) {
		return ErrScopeDenied
	}
	return nil
}

// Update renames, rescopes, or re-expires a token. New scopes face the same
// vocabulary check as issuance. Pass nil scopes to leave them unchanged and
// ttlDays < 0 to leave expiry unchanged; ttlDays == 0 clears it.
func (s *TokenService) Update(id string, name string, scopes []string, ttlDays int) (*entities.APIToken, error) {
	updates := make(map[string]any)
	if name != "" {
		updates["name"] = name
	}
	if scopes != nil {
		if err := ValidateScopes(scopes); err != nil {
			return nil, err
		}
		updates["scopes"] = strings.Join(scopes, " ")
	}
	if ttlDays == 0 {
		updates["expires_at"] = nil
	} else if ttlDays > 0 {
		updates["expires_at"] = s.now().AddDate(0, 0, ttlDays)
	}

	if len(updates) > 0 {
		if err := s.repo.Update(id, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTokenNotFound
			}
			return nil, fmt.Errorf("failed to update token: %w", err)
		}
	}
	return s.Get(id)
}

// Revoke marks the token revoked at the current instant. Terminal: already
// revoked tokens keep their original timestamp.
func (s *TokenService) Revoke(id string) error {
	err := s.repo.Revoke(id, s.now())
	if err != nil {
		if errors.Is(err, tokens.ErrAlreadyRevoked) {
			return nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Delete hard-deletes a token. Reserved for explicit administrative purge;
// revocation is the normal way to kill a credential.
func (s *TokenService) Delete(id string) error {
	if err := s.repo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Get retrieves a token by ID.
func (s *TokenService) Get(id string) (*entities.APIToken, error) {
	token, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return token, nil
}

// ListByUser returns the tokens owned by a user.
func (s *TokenService) ListByUser(userID string) ([]entities.APIToken, error) {
	return s.repo.ListByUser(userID)
}

// View decrypts and returns the token's original secret. The envelope must
// be structurally valid and decrypt under the current key, and an owned
// token is only viewable by its owner. Ownerless (system) tokens pass the
// ownership check for any requester; the route layer restricts who may ask.
func (s *TokenService) View(id, requesterID string) (string, error) {
	token, err := s.Get(id)
	if err != nil {
		return "", err
	}
	if token.UserID != nil && *token.UserID != requesterID {
		return "", ErrNotTokenOwner
	}
	if !token.Viewable || token.EncryptedSecret == "" {
		return "", ErrNotViewable
	}

	envelope, err := ParseEnvelope(token.EncryptedSecret)
	if err != nil {
		return "", err
	}
	return s.codec.Decrypt(envelope)
}

// PurgeStale hard-deletes tokens revoked or expired since before the given
// age. Used by background cleanup.
func (s *TokenService) PurgeStale(olderThan time.Duration) (int64, error) {
	return s.repo.PurgeStale(s.now().Add(-olderThan))
}

func (s *TokenService) touchLastUsed(id string, at time.Time) {
	go func() {
		if err := s.repo.TouchLastUsed(id, at); err != nil {
			log.Printf("failed to record token last_used for %s: %v", id, err)
		}
	}()
}

// generateTokenSecret builds a secret from the literal prefix, a compact
// base36 time component, and 24 random bytes. The returned prefix (literal
// plus time component only) is what gets indexed for bucketed lookup.
func generateTokenSecret(now time.Time) (secret, prefix string, err error) {
	ts := strconv.FormatInt(now.Unix(), 36)
	if len(ts) > tokenTimeChars {
		ts = ts[len(ts)-tokenTimeChars:]
	}
	prefix = TokenLiteralPrefix + fmt.Sprintf("%0*s", tokenTimeChars, ts)

	random := make([]byte, tokenRandomBytes)
	if _, err := rand.Read(random); err != nil {
		return "", "", err
	}

	return prefix + hex.EncodeToString(random), prefix, nil
}
