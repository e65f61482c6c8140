package auth

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tillpoint/tillpoint/internal/shared"
	"github.com/tillpoint/tillpoint/internal/store"
)

const passcodeHashKey = "passcodeHash"

// Service guards the device with a passcode. The bcrypt hash lives in the
// settings collection; session tokens are process-local and expire after the
// configured TTL. With no passcode configured the device is unlocked.
type Service struct {
	store *store.Store
	ttl   time.Duration

	mu     stdsync.Mutex
	tokens map[string]time.Time
}

// NewService constructs a Service.
func NewService(s *store.Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{store: s, ttl: ttl, tokens: make(map[string]time.Time)}
}

// SetPasscode hashes and stores the device passcode.
func (s *Service) SetPasscode(ctx context.Context, passcode string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.store.PutSetting(ctx, passcodeHashKey, string(hash))
}

// Enabled reports whether a passcode has been configured.
func (s *Service) Enabled(ctx context.Context) bool {
	_, err := s.store.GetSetting(ctx, passcodeHashKey)
	return err == nil
}

// Unlock verifies the passcode and mints a session token.
func (s *Service) Unlock(ctx context.Context, passcode string) (string, error) {
	hash, err := s.store.GetSetting(ctx, passcodeHashKey)
	if errors.Is(err, store.ErrNotFound) {
		return "", shared.ErrPasscodeNotSet
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(passcode)) != nil {
		return "", shared.ErrInvalidPasscode
	}
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = time.Now().Add(s.ttl)
	s.mu.Unlock()
	return token, nil
}

// Validate reports whether the token belongs to a live session.
func (s *Service) Validate(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(s.tokens, token)
		return false
	}
	return true
}
