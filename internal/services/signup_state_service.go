package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shorif2005/projectflow/internal/cache"
	"github.com/shorif2005/projectflow/pkg/crypto"
)

const (
	signupStatePrefix     = "auth:signup:invited:"
	defaultSignupStateTTL = time.Hour
	signupStateTokenBytes = 24
)

// SignupStateOption customises SignupStateService behaviour.
type SignupStateOption func(*SignupStateService)

// WithSignupStateTTL overrides how long a stashed invited email survives.
func WithSignupStateTTL(ttl time.Duration) SignupStateOption {
	return func(s *SignupStateService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// SignupStateService carries an invited email across the gap between following
// an invite link and finishing registration. The email is stashed under an
// opaque token the client hands back with the registration request.
type SignupStateService struct {
	store cache.Store
	ttl   time.Duration
}

// NewSignupStateService constructs a SignupStateService over the given store.
func NewSignupStateService(store cache.Store, opts ...SignupStateOption) (*SignupStateService, error) {
	if store == nil {
		return nil, errors.New("signup state service: store is required")
	}

	service := &SignupStateService{store: store, ttl: defaultSignupStateTTL}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Stash records the invited email and returns the token that retrieves it.
func (s *SignupStateService) Stash(ctx context.Context, email string) (string, error) {
	ctx = ensureContext(ctx)

	email = normalizeEmail(email)
	if email == "" {
		return "", errors.New("signup state service: email is required")
	}

	token, err := crypto.GenerateToken(signupStateTokenBytes)
	if err != nil {
		return "", fmt.Errorf("signup state service: generate token: %w", err)
	}

	if err := s.store.Set(ctx, signupStatePrefix+token, []byte(email), s.ttl); err != nil {
		return "", fmt.Errorf("signup state service: stash: %w", err)
	}
	return token, nil
}

// Peek returns the stashed email for the token without consuming it.
func (s *SignupStateService) Peek(ctx context.Context, token string) (string, bool, error) {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false, nil
	}

	value, ok, err := s.store.Get(ctx, signupStatePrefix+token)
	if err != nil {
		return "", false, fmt.Errorf("signup state service: peek: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return string(value), true, nil
}

// Clear drops the stashed email once registration completes.
func (s *SignupStateService) Clear(ctx context.Context, token string) error {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if err := s.store.Delete(ctx, signupStatePrefix+token); err != nil {
		return fmt.Errorf("signup state service: clear: %w", err)
	}
	return nil
}
