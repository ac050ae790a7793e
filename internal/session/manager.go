package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"libraryadmin/internal/collab"
)

var (
	ErrInvalidCredentials = errors.New("login failed")
	ErrMalformedLogin     = errors.New("login response has no token")
	ErrPasswordMismatch   = errors.New("password and confirmation do not match")
	ErrMissingCredentials = errors.New("email and password are required")
)

// Authenticator is the part of the collaborator API that deals with accounts.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*collab.LoginResult, error)
	Register(ctx context.Context, req collab.RegisterRequest) (json.RawMessage, error)
}

type Manager struct {
	auth   Authenticator
	store  Store
	tokens *Tokens
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(auth Authenticator, store Store, tokens *Tokens, ttl time.Duration) *Manager {
	return &Manager{auth: auth, store: store, tokens: tokens, ttl: ttl, now: time.Now}
}

// Login authenticates against the collaborator, stores the resulting session
// and returns it with a signed token for the browser.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", ErrMissingCredentials
	}

	res, err := m.auth.Login(ctx, email, password)
	if err != nil {
		var apiErr *collab.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			log.Printf("[WARN] Login: rejected for %s: %v", email, err)
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return nil, "", err
	}
	if res.Token == "" {
		log.Printf("[ERROR] Login: no token in response for %s", email)
		return nil, "", ErrMalformedLogin
	}

	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		Token:     res.Token,
		Email:     email,
		User:      json.RawMessage(res.User),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, "", fmt.Errorf("save session: %w", err)
	}
	signed, err := m.tokens.Issue(s)
	if err != nil {
		return nil, "", fmt.Errorf("sign session token: %w", err)
	}

	log.Printf("[INFO] Login: session %s opened for %s", s.ID, email)
	return s, signed, nil
}

func (m *Manager) Register(ctx context.Context, req collab.RegisterRequest) (json.RawMessage, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}
	if req.Password != req.PasswordConfirm {
		return nil, ErrPasswordMismatch
	}
	user, err := m.auth.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Register: account created for %s", req.Email)
	return user, nil
}

// Resolve turns a signed browser token into the live session it refers to.
func (m *Manager) Resolve(ctx context.Context, signed string) (*Session, error) {
	claims, err := m.tokens.Parse(signed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	s, err := m.store.Load(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if s.Expired(m.now()) {
		_ = m.store.Delete(ctx, s.ID)
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) Logout(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return err
	}
	log.Printf("[INFO] Logout: session %s closed", s.ID)
	return nil
}

// FromToken builds a session around an upstream token directly, for
// callers that already hold one (the CLI). It is not stored.
func FromToken(token, operator string) *Session {
	now := time.Now()
	return &Session{
		ID:        "cli-" + uuid.NewString(),
		Token:     token,
		Email:     operator,
		CreatedAt: now,
	}
}
