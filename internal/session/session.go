// Package session is the process-wide session accessor. Views get it
// injected instead of each re-deriving auth state from the platform, so the
// current user is resolved once per token and sign-out is observed
// everywhere.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/platform"
)

// resolveTTL bounds how long a platform-resolved user is trusted before the
// token is re-checked. Locally verified tokens carry their own expiry.
const resolveTTL = 5 * time.Minute

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Change is an auth-state-change notification mirrored to listeners.
type Change struct {
	User     model.User
	SignedIn bool
}

type entry struct {
	user    model.User
	expires time.Time
}

// Store resolves access tokens to users and tracks session lifecycle.
type Store struct {
	auth      platform.Auth
	jwtSecret string

	mu        sync.RWMutex
	cache     map[string]entry
	listeners []func(Change)
}

// New builds a Store. When jwtSecret is non-empty, tokens are verified
// locally (HS256, the platform's signing scheme) and the platform is only
// consulted for tokens the secret cannot validate.
func New(auth platform.Auth, jwtSecret string) *Store {
	return &Store{
		auth:      auth,
		jwtSecret: jwtSecret,
		cache:     make(map[string]entry),
	}
}

// Current resolves the access token to its user. A revoked or invalid token
// yields platform.ErrUnauthorized. Cached resolutions expire with the
// token's own claims (or resolveTTL for opaque tokens) and are re-checked,
// so an identity ends when its session does, not with the process.
func (s *Store) Current(ctx context.Context, accessToken string) (model.User, error) {
	if accessToken == "" {
		return model.User{}, platform.ErrUnauthorized
	}

	s.mu.RLock()
	e, cached := s.cache[accessToken]
	s.mu.RUnlock()
	if cached && time.Now().Before(e.expires) {
		return e.user, nil
	}

	user, expires, err := s.resolve(ctx, accessToken)
	if err != nil {
		if cached {
			s.mu.Lock()
			delete(s.cache, accessToken)
			s.mu.Unlock()
			s.notify(Change{User: e.user, SignedIn: false})
		}
		return model.User{}, err
	}

	s.mu.Lock()
	s.cache[accessToken] = entry{user: user, expires: expires}
	s.mu.Unlock()
	if !cached {
		s.notify(Change{User: user, SignedIn: true})
	}

	return user, nil
}

func (s *Store) resolve(ctx context.Context, accessToken string) (model.User, time.Time, error) {
	if s.jwtSecret != "" {
		if user, expires, err := s.verifyJWT(accessToken); err == nil {
			return user, expires, nil
		}
	}
	if s.auth == nil {
		return model.User{}, time.Time{}, platform.ErrUnauthorized
	}
	user, err := s.auth.User(ctx, accessToken)
	if err != nil {
		if errors.Is(err, platform.ErrUnauthorized) {
			return model.User{}, time.Time{}, platform.ErrUnauthorized
		}
		return model.User{}, time.Time{}, fmt.Errorf("session: resolve user: %w", err)
	}
	return user, time.Now().Add(resolveTTL), nil
}

func (s *Store) verifyJWT(tokenString string) (model.User, time.Time, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		c,
		func(t *jwt.Token) (any, error) { return []byte(s.jwtSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return model.User{}, time.Time{}, fmt.Errorf("session: failed to parse token: %w", err)
	}
	if !token.Valid || c.Subject == "" {
		return model.User{}, time.Time{}, errors.New("session: token is invalid")
	}
	return model.User{ID: c.Subject, Email: c.Email}, c.ExpiresAt.Time, nil
}

// SignOut revokes the session with the platform, drops the local mirror, and
// notifies listeners.
func (s *Store) SignOut(ctx context.Context, accessToken string) error {
	s.mu.Lock()
	e, known := s.cache[accessToken]
	delete(s.cache, accessToken)
	s.mu.Unlock()

	if known {
		s.notify(Change{User: e.user, SignedIn: false})
	}

	if s.auth == nil {
		return nil
	}
	if err := s.auth.SignOut(ctx, accessToken); err != nil {
		return fmt.Errorf("session: sign out: %w", err)
	}
	return nil
}

// OnChange registers a listener for auth-state changes. Listeners are called
// synchronously; keep them cheap.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(c Change) {
	s.mu.RLock()
	listeners := make([]func(Change), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(c)
	}
}
