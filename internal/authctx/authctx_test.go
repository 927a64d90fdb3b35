package authctx

import (
	"context"
	"testing"

	"friendlychat/backend/internal/domain/identity"
)

func TestSessionRoundTrip(t *testing.T) {
	if _, ok := Session(context.Background()); ok {
		t.Fatal("empty context must not carry a session")
	}
	if _, ok := UID(WithSession(context.Background(), nil)); ok {
		t.Fatal("nil session must not report a uid")
	}

	ctx := WithSession(context.Background(), &identity.Session{UID: "u1"})
	uid, ok := UID(ctx)
	if !ok || uid != "u1" {
		t.Fatalf("got %q,%v want u1,true", uid, ok)
	}
}
