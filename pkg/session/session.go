// Package session owns the login lifecycle: a Session exists only between
// a successful login and a logout or expiry.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mosquedir/mosqueadmin/pkg/backend"
)

// DefaultTTL is used when the token carries no expiry claim.
const DefaultTTL = 12 * time.Hour

const (
	RoleSuperAdmin  = "super_admin"
	RoleMosqueAdmin = "mosque_admin"
)

var (
	ErrNoSession      = errors.New("not logged in")
	ErrSessionExpired = errors.New("session expired, log in again")
)

type Session struct {
	Token     string
	UserID    string
	Name      string
	Email     string
	Role      string
	MosqueID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (s *Session) IsSuperAdmin() bool { return s.Role == RoleSuperAdmin }

// newSession builds a Session from a login response. The expiry comes from
// the token's exp claim when the token is a JWT; the signature is not
// checked here, the backend stays the authority on validity.
func newSession(lr backend.LoginResponse, now time.Time) *Session {
	s := &Session{
		Token:    lr.Token,
		UserID:   lr.User.ID,
		Name:     lr.User.Name,
		Email:    lr.User.Email,
		Role:     lr.User.Role,
		MosqueID: lr.User.MosqueID,
		IssuedAt: now,
	}
	s.ExpiresAt = now.Add(DefaultTTL)

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(lr.Token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			s.ExpiresAt = exp.Time
		}
		if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
			s.IssuedAt = iat.Time
		}
		if s.Role == "" {
			if role, ok := claims["role"].(string); ok {
				s.Role = role
			}
		}
	}
	return s
}

// Store persists the current session between invocations.
type Store interface {
	SaveSession(ctx context.Context, s *Session) error
	// LoadSession returns (nil, nil) when no session is stored.
	LoadSession(ctx context.Context) (*Session, error)
	DeleteSession(ctx context.Context) error
}

// Manager drives login and logout against the backend and keeps the
// resulting Session in a Store.
type Manager struct {
	auth  backend.Authenticator
	store Store
	now   func() time.Time
}

func NewManager(auth backend.Authenticator, store Store) *Manager {
	return &Manager{auth: auth, store: store, now: time.Now}
}

// Login authenticates and, on success, replaces any stored session. Backend
// refusals are returned as an Outcome, not as an error; the error is only
// set when the outcome could not be determined or the session not saved.
func (m *Manager) Login(ctx context.Context, email, password string) (Outcome, error) {
	lr, err := m.auth.Login(ctx, email, password)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			return Classify(apiErr), nil
		}
		return nil, err
	}

	s := newSession(lr, m.now())
	if s.Expired(m.now()) {
		return Failed{Message: "server issued an already expired session"}, nil
	}
	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	return Authenticated{Session: s}, nil
}

// Current returns the stored session. An expired session is destroyed and
// ErrSessionExpired returned.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	s, err := m.store.LoadSession(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNoSession
	}
	if s.Expired(m.now()) {
		if err := m.store.DeleteSession(ctx); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}
	return s, nil
}

// Logout tells the backend and destroys the local session. The local
// session is destroyed even if the backend call fails.
func (m *Manager) Logout(ctx context.Context) error {
	s, err := m.store.LoadSession(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrNoSession
	}
	remoteErr := m.auth.Logout(ctx, s.Token)
	if err := m.store.DeleteSession(ctx); err != nil {
		return err
	}
	return remoteErr
}
