package authctx

import (
	"context"

	"friendlychat/backend/internal/domain/identity"
)

type ctxKey string

const sessionKey ctxKey = "session"

func WithSession(ctx context.Context, s *identity.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func Session(ctx context.Context) (*identity.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*identity.Session)
	return s, ok && s != nil
}

func UID(ctx context.Context) (string, bool) {
	s, ok := Session(ctx)
	if !ok || s.UID == "" {
		return "", false
	}
	return s.UID, true
}
