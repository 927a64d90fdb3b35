package identity

import (
	"context"
	"fmt"
	"sync"

	"friendlychat/backend/internal/live"
)

// Memory is an in-process identity provider for local runs and tests. ID
// tokens are looked up in a table filled with Register.
type Memory struct {
	mu         sync.Mutex
	accounts   map[string]Session
	current    *Session
	signOutErr error
	feed       *live.Feed[*Session]
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]Session),
		feed:     live.NewBehavior[*Session](nil),
	}
}

// Register makes idToken sign in as s.
func (m *Memory) Register(idToken string, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[idToken] = s
}

// FailSignOut makes every following SignOut return err. nil restores normal
// behavior.
func (m *Memory) FailSignOut(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signOutErr = err
}

func (m *Memory) SignIn(_ context.Context, cred Credential) (*Session, error) {
	cred.Trim()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.accounts[cred.IDToken]
	if cred.IDToken == "" || !ok {
		return nil, fmt.Errorf("%w: unknown id token", ErrInvalidCredential)
	}
	m.current = s.Clone()
	m.feed.Publish(m.current.Clone())
	return s.Clone(), nil
}

func (m *Memory) SignOut(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.signOutErr != nil {
		return fmt.Errorf("%w: %v", ErrSignOutFailed, m.signOutErr)
	}
	if m.current == nil {
		return nil
	}
	m.current = nil
	m.feed.Publish(nil)
	return nil
}

// Expire simulates the provider ending the session on its own.
func (m *Memory) Expire() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return
	}
	m.current = nil
	m.feed.Publish(nil)
}

func (m *Memory) Sessions() *live.Feed[*Session] {
	return m.feed
}

func (m *Memory) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}
