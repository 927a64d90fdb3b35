package messages

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"friendlychat/backend/internal/live"
)

// Firestore keeps messages in a Cloud Firestore collection and serves live
// queries from query snapshot listeners.
type Firestore struct {
	fs     *firestore.Client
	logger *log.Logger
}

func NewFirestore(fs *firestore.Client) *Firestore {
	return &Firestore{fs: fs, logger: log.Default()}
}

// SetLogger replaces the default logger.
func (r *Firestore) SetLogger(l *log.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Append adds m as a new document with an auto-generated ID. A zero
// Timestamp is written as the server timestamp.
func (r *Firestore) Append(ctx context.Context, collection string, m ChatMessage) (*RecordRef, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection is required", ErrBadRequest)
	}

	ref, _, err := r.fs.Collection(collection).Add(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}
	return &RecordRef{ID: ref.ID, Path: ref.Path}, nil
}

// Watch listens to the query and emits every snapshot as a full batch. The
// listener stops when the subscription is torn down or ctx is cancelled.
func (r *Firestore) Watch(ctx context.Context, q Query, fn func([]Message)) (*live.Subscription, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	dir := firestore.Desc
	if q.Direction == Asc {
		dir = firestore.Asc
	}
	query := r.fs.Collection(q.Collection).OrderBy(q.OrderBy, dir)
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	wctx, cancel := context.WithCancel(ctx)
	sub := live.NewSubscription(cancel)
	it := query.Snapshots(wctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if errors.Is(err, iterator.Done) || wctx.Err() != nil {
					sub.Unsubscribe()
					return
				}
				r.logger.Printf("firestore: live query on %s stopped: %v", q.Collection, err)
				sub.Fail(err)
				return
			}

			batch, err := r.decode(snap)
			if err != nil {
				r.logger.Printf("firestore: read snapshot of %s: %v", q.Collection, err)
				continue
			}
			sub.Deliver(func() { fn(batch) })
		}
	}()

	return sub, nil
}

func (r *Firestore) decode(snap *firestore.QuerySnapshot) ([]Message, error) {
	out := make([]Message, 0, snap.Size)
	for {
		doc, err := snap.Documents.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var m Message
		if err := doc.DataTo(&m); err != nil {
			r.logger.Printf("firestore: skip message %s: %v", doc.Ref.ID, err)
			continue
		}
		m.ID = doc.Ref.ID
		out = append(out, m)
	}
	return out, nil
}
