package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/jkoudys/daybook/internal/config"
	"github.com/jkoudys/daybook/internal/database/sessions"
	"github.com/jkoudys/daybook/internal/entities"
)

// SessionTokenBytes is the random byte length of a session bearer token.
// The 64-char hex form shares no namespace with the 32-char user URL token.
const SessionTokenBytes = 32

// SessionCheck is the structured result of validating a session token.
// Fresh means the expiry was just extended and the caller should re-issue
// the cookie with the new deadline.
type SessionCheck struct {
	Session *entities.Session
	Fresh   bool
}

// SessionService is the authority over login sessions: creation under the
// per-user cap, sliding-window validation, revocation, and cleanup.
type SessionService struct {
	repo *sessions.Repository
	cfg  config.Auth
	now  func() time.Time
}

// NewSessionService creates a session service.
func NewSessionService(repo *sessions.Repository, cfg config.Auth) *SessionService {
	return &SessionService{
		repo: repo,
		cfg:  cfg,
		now:  time.Now,
	}
}

// Create issues a new session for the user. Before inserting it evicts the
// least-recently-active sessions down to cap-1 so the new one fits.
//
// The cap is a soft bound: two concurrent logins can both observe cap-1
// sessions and each insert one, briefly exceeding the cap. The next create
// or cleanup converges back under it. This is accepted rather than fixed
// with a transaction the storage contract does not require.
func (s *SessionService) Create(userID, ip string, device *entities.DeviceInfo) (*entities.Session, error) {
	if s.cfg.MaxSessionsPerUser > 0 {
		if err := s.LimitSessions(userID, s.cfg.MaxSessionsPerUser-1); err != nil {
			return nil, fmt.Errorf("failed to enforce session cap: %w", err)
		}
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := s.now()
	session := &entities.Session{
		UserID:       userID,
		Token:        token,
		ExpiresAt:    now.Add(s.cfg.SessionTTL),
		LastActiveAt: now,
		IPAddress:    ip,
	}
	if device != nil {
		session.Browser = device.Browser
		session.OS = device.OS
		session.Device = device.Device
		session.Mobile = device.Mobile
	}

	if err := s.repo.Create(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Validate looks a session up by exact token match and applies the sliding
// expiration policy: expired sessions are reaped eagerly; sessions with
// less than half the TTL remaining are extended to now + full TTL and
// marked fresh; anything else is returned unchanged.
func (s *SessionService) Validate(token string) (*SessionCheck, error) {
	if token == "" {
		return nil, ErrNoCredential
	}

	session, err := s.repo.GetByToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil {
		return nil, ErrInvalidCredential
	}

	now := s.now()
	if session.Expired(now) {
		// Lazy reaping: delete on sight, idempotent on retry.
		if err := s.repo.DeleteByID(session.ID); err != nil {
			log.Printf("failed to reap expired session %s: %v", session.ID, err)
		}
		return nil, ErrExpired
	}

	remaining := session.ExpiresAt.Sub(now)
	if remaining < s.cfg.SessionTTL/2 {
		session.ExpiresAt = now.Add(s.cfg.SessionTTL)
		session.LastActiveAt = now
		if err := s.repo.Extend(session.ID, session.ExpiresAt, session.LastActiveAt); err != nil {
			// Best-effort: a failed extension must not fail a valid login.
			log.Printf("failed to extend session %s: %v", session.ID, err)
			return &SessionCheck{Session: session}, nil
		}
		return &SessionCheck{Session: session, Fresh: true}, nil
	}

	return &SessionCheck{Session: session}, nil
}

// DeleteByID removes one session. Idempotent.
func (s *SessionService) DeleteByID(id string) error {
	return s.repo.DeleteByID(id)
}

// DeleteByToken removes the session carrying the token. Idempotent; used at
// logout, where the caller also clears the cookie.
func (s *SessionService) DeleteByToken(token string) error {
	if token == "" {
		return nil
	}
	return s.repo.DeleteByToken(token)
}

// ListByUser returns the user's sessions, most recently active first.
func (s *SessionService) ListByUser(userID string) ([]entities.Session, error) {
	return s.repo.ListByUser(userID)
}

// LimitSessions deletes every session beyond maxKeep, keeping the most
// recently active ones. The ranking is total (activity, creation, id), so
// equal-activity ties break deterministically.
func (s *SessionService) LimitSessions(userID string, maxKeep int) error {
	if maxKeep < 0 {
		maxKeep = 0
	}
	ranked, err := s.repo.ListByUser(userID)
	if err != nil {
		return err
	}
	if len(ranked) <= maxKeep {
		return nil
	}

	var evict []string
	for _, session := range ranked[maxKeep:] {
		evict = append(evict, session.ID)
	}
	return s.repo.DeleteByIDs(evict)
}

// Cleanup batch-deletes expired sessions and sessions idle beyond the
// configured inactivity horizon. Idempotent; a no-op on an empty result.
func (s *SessionService) Cleanup() (int64, error) {
	now := s.now()

	expired, err := s.repo.DeleteExpired(now)
	if err != nil {
		return expired, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	idle := int64(0)
	if s.cfg.SessionIdleHorizon > 0 {
		idle, err = s.repo.DeleteIdleSince(now.Add(-s.cfg.SessionIdleHorizon))
		if err != nil {
			return expired + idle, fmt.Errorf("failed to delete idle sessions: %w", err)
		}
	}

	return expired + idle, nil
}

func generateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
