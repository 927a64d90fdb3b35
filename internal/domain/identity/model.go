package identity

import (
	"strings"
	"time"
)

// Session is the signed-in identity as reported by the provider.
type Session struct {
	UID         string    `json:"uid"`
	DisplayName *string   `json:"displayName"`
	PhotoURL    *string   `json:"photoURL"`
	Email       string    `json:"email,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
}

// Clone returns a copy that shares no pointers with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.DisplayName = cloneString(s.DisplayName)
	out.PhotoURL = cloneString(s.PhotoURL)
	return &out
}

// Name returns the display name or "" when the provider has none.
func (s *Session) Name() string {
	if s == nil || s.DisplayName == nil {
		return ""
	}
	return *s.DisplayName
}

// Credential is what the interactive sign-in flow hands back: the
// provider-issued ID token.
type Credential struct {
	IDToken string `json:"idToken"`
}

func (c *Credential) Trim() {
	c.IDToken = strings.TrimSpace(c.IDToken)
}

// Optional turns "" into nil, the way the provider reports missing profile
// attributes.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
