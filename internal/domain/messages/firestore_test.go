package messages

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
)

// Runs against the emulator: FIRESTORE_EMULATOR_HOST=127.0.0.1:8080 go test ./...
func newTestFirestore(t *testing.T) (*Firestore, string) {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "friendlychat-test")
	if err != nil {
		t.Fatalf("firestore client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewFirestore(client), "messages-" + uuid.NewString()
}

func TestFirestoreWatchRecentWindow(t *testing.T) {
	store, coll := newTestFirestore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	for i := 0; i < 15; i++ {
		m := ChatMessage{Text: fmt.Sprintf("m%d", i), Timestamp: base.Add(time.Duration(i) * time.Second)}
		if _, err := store.Append(ctx, coll, m); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	batches := make(chan []Message, 16)
	q := Query{Collection: coll, OrderBy: FieldTimestamp, Direction: Desc, Limit: 12}
	sub, err := store.Watch(ctx, q, func(b []Message) { batches <- b })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer sub.Unsubscribe()

	first := recvBatch(t, batches)
	if len(first) != 12 || first[0].Text != "m14" || first[11].Text != "m3" {
		t.Fatalf("unexpected initial window: %d items, first=%q", len(first), first[0].Text)
	}
	if first[0].ID == "" || !first[0].Timestamp.Equal(base.Add(14*time.Second)) {
		t.Fatalf("unexpected decoded record: %+v", first[0])
	}

	name, uid := "Ada", "u1"
	ref, err := store.Append(ctx, coll, ChatMessage{Name: &name, UID: &uid, Text: "new"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	next := recvBatch(t, batches)
	if len(next) != 12 || next[0].ID != ref.ID {
		t.Fatalf("expected new message on top, got %+v", next[0])
	}
	top := next[0]
	if top.Timestamp.IsZero() || !top.Timestamp.After(base.Add(14*time.Second)) {
		t.Fatalf("server timestamp not resolved: %v", top.Timestamp)
	}
	if top.Name == nil || *top.Name != "Ada" || top.UID == nil || *top.UID != "u1" || top.ProfilePicURL != nil || top.ImageURL != "" {
		t.Fatalf("unexpected decoded message: %+v", top)
	}

	sub.Unsubscribe()
	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not end")
	}
	if err := sub.Err(); err != nil {
		t.Fatalf("Err after Unsubscribe = %v, want nil", err)
	}

	if _, err := store.Append(ctx, coll, ChatMessage{Text: "late"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	select {
	case b := <-batches:
		t.Fatalf("batch delivered after Unsubscribe: %d items", len(b))
	case <-time.After(500 * time.Millisecond):
	}
}

func TestFirestoreWatchStopsOnContextCancel(t *testing.T) {
	store, coll := newTestFirestore(t)

	ctx, cancel := context.WithCancel(context.Background())
	batches := make(chan []Message, 4)
	q := Query{Collection: coll, OrderBy: FieldTimestamp, Direction: Desc, Limit: 12}
	sub, err := store.Watch(ctx, q, func(b []Message) { batches <- b })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if b := recvBatch(t, batches); len(b) != 0 {
		t.Fatalf("expected an empty first window, got %d items", len(b))
	}

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not end after cancel")
	}
	if err := sub.Err(); err != nil {
		t.Fatalf("Err after cancel = %v, want nil", err)
	}
}

func TestFirestoreAppendRequiresCollection(t *testing.T) {
	store := NewFirestore(nil)
	if _, err := store.Append(context.Background(), "", ChatMessage{Text: "x"}); !IsErrBadRequest(err) {
		t.Fatalf("got %v want ErrBadRequest", err)
	}
}
