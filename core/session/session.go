// Package session resolves "who is making this request" from locally held session state.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/examiner/core/user"
)

type (
	// Credential is the opaque token handed to the user at login and its validity window.
	Credential struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	// Resolver answers who the current user is without any network call.
	// CurrentUser returns nil, nil when no session is established.
	Resolver interface {
		CurrentUser(ctx context.Context) (*user.User, error)
		Token(ctx context.Context) (string, error)
		Establish(ctx context.Context, usr user.User, cred Credential) error
		Clear(ctx context.Context) error
	}
)

// Expired reports whether the credential's validity window has passed at now.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Memory keeps the session in process memory.
type Memory struct {
	mu   sync.RWMutex
	usr  *user.User
	cred Credential
}

var _ Resolver = (*Memory)(nil) // interface compliance check

func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryFor returns a Memory session already established for usr.
func NewMemoryFor(usr user.User, token ...string) *Memory {
	m := NewMemory()
	var cred Credential
	if len(token) > 0 {
		cred.Token = token[0]
	}
	_ = m.Establish(context.Background(), usr, cred)
	return m
}

func (m *Memory) CurrentUser(_ context.Context) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.usr == nil {
		return nil, nil
	}
	usr := *m.usr
	return &usr, nil
}

func (m *Memory) Token(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred.Token, nil
}

func (m *Memory) Establish(_ context.Context, usr user.User, cred Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	usr.PasswordHash = nil
	m.usr = &usr
	m.cred = cred
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usr = nil
	m.cred = Credential{}
	return nil
}
