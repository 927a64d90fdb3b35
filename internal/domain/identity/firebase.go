package identity

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"firebase.google.com/go/v4/auth"

	"friendlychat/backend/internal/live"
)

// AuthClient is the subset of the Firebase Auth admin client the provider
// uses. *auth.Client satisfies it.
type AuthClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// Firebase completes sign-in by verifying the ID token produced by the
// Firebase popup flow and keeps the resulting session until sign-out or
// token expiry.
type Firebase struct {
	client AuthClient
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	current *Session
	expiry  *time.Timer
	gen     uint64
	feed    *live.Feed[*Session]
}

func NewFirebase(client AuthClient) *Firebase {
	return &Firebase{
		client: client,
		logger: log.Default(),
		now:    time.Now,
		feed:   live.NewBehavior[*Session](nil),
	}
}

// SetLogger replaces the default logger.
func (p *Firebase) SetLogger(l *log.Logger) {
	if l != nil {
		p.logger = l
	}
}

// SignIn verifies the credential and publishes the new session.
func (p *Firebase) SignIn(ctx context.Context, cred Credential) (*Session, error) {
	cred.Trim()
	if cred.IDToken == "" {
		return nil, fmt.Errorf("%w: id token is required", ErrInvalidCredential)
	}

	tok, err := p.client.VerifyIDToken(ctx, cred.IDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	u, err := p.client.GetUser(ctx, tok.UID)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup user %s: %v", ErrSignInFailed, tok.UID, err)
	}

	s := &Session{UID: tok.UID}
	if u.UserInfo != nil {
		s.DisplayName = Optional(u.DisplayName)
		s.PhotoURL = Optional(u.PhotoURL)
		s.Email = u.Email
	}
	if tok.Expires > 0 {
		s.ExpiresAt = time.Unix(tok.Expires, 0).UTC()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.setLocked(s)
	return s.Clone(), nil
}

// SignOut revokes the user's refresh tokens and clears the session. With no
// active session it is a no-op.
func (p *Firebase) SignOut(ctx context.Context) error {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	if current == nil {
		return nil
	}

	if err := p.client.RevokeRefreshTokens(ctx, current.UID); err != nil {
		return fmt.Errorf("%w: %v", ErrSignOutFailed, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil && p.current.UID == current.UID {
		p.setLocked(nil)
	}
	return nil
}

// Sessions is the live "current user" signal. New subscribers receive the
// current session (or nil) immediately.
func (p *Firebase) Sessions() *live.Feed[*Session] {
	return p.feed
}

// Current returns a copy of the active session.
func (p *Firebase) Current() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current.Clone()
}

func (p *Firebase) setLocked(s *Session) {
	p.gen++
	if p.expiry != nil {
		p.expiry.Stop()
		p.expiry = nil
	}
	p.current = s
	if s != nil && !s.ExpiresAt.IsZero() {
		gen := p.gen
		p.expiry = time.AfterFunc(s.ExpiresAt.Sub(p.now()), func() { p.expire(gen) })
	}
	p.feed.Publish(s.Clone())
}

func (p *Firebase) expire(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen || p.current == nil {
		return
	}
	p.logger.Printf("identity: session for %s expired", p.current.UID)
	p.setLocked(nil)
}
