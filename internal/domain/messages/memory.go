package messages

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"friendlychat/backend/internal/live"
)

// Memory is an in-process message store with live queries. Emissions are
// delivered synchronously, in commit order, on the goroutine that caused
// them; a live-query callback must not write to the store itself.
type Memory struct {
	emitMu sync.Mutex

	mu       sync.Mutex
	now      func() time.Time
	seq      uint64
	records  map[string][]stored
	watches  map[uint64]*watch
	watchSeq uint64
	writeErr error
}

type stored struct {
	msg Message
	seq uint64
}

type watch struct {
	q    Query
	fn   func([]Message)
	sub  *live.Subscription
	last []string
}

type delivery struct {
	w     *watch
	batch []Message
}

func NewMemory() *Memory {
	return &Memory{
		now:     time.Now,
		records: make(map[string][]stored),
		watches: make(map[uint64]*watch),
	}
}

// SetClock replaces the commit clock.
func (s *Memory) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailWrites makes every following Append return err. nil restores writes.
func (s *Memory) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Records returns every committed message of a collection in commit order.
func (s *Memory) Records(collection string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, 0, len(s.records[collection]))
	for _, r := range s.records[collection] {
		out = append(out, r.msg)
	}
	return out
}

func (s *Memory) Append(_ context.Context, collection string, m ChatMessage) (*RecordRef, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection is required", ErrBadRequest)
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.writeErr != nil {
		err := s.writeErr
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to add message: %w", err)
	}

	if m.Timestamp.IsZero() {
		m.Timestamp = s.now().UTC()
	}
	s.seq++
	msg := Message{ID: uuid.NewString(), ChatMessage: m}
	s.records[collection] = append(s.records[collection], stored{msg: msg, seq: s.seq})

	var pending []delivery
	for _, w := range s.watches {
		if w.q.Collection != collection {
			continue
		}
		batch := s.topLocked(w.q)
		if sameIDs(batch, w.last) {
			continue
		}
		w.last = idsOf(batch)
		pending = append(pending, delivery{w: w, batch: batch})
	}
	s.mu.Unlock()

	for _, d := range pending {
		d.w.sub.Deliver(func() { d.w.fn(d.batch) })
	}

	return &RecordRef{ID: msg.ID, Path: collection + "/" + msg.ID}, nil
}

// Watch emits the current result before returning, then again whenever a
// write changes the result window. Cancelling ctx unsubscribes.
func (s *Memory) Watch(ctx context.Context, q Query, fn func([]Message)) (*live.Subscription, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	if q.OrderBy != FieldTimestamp {
		return nil, fmt.Errorf("%w: memory store orders by %q only", ErrUnsupportedQuery, FieldTimestamp)
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	id := s.watchSeq
	s.watchSeq++
	w := &watch{q: q, fn: fn}
	w.sub = live.NewSubscription(func() {
		s.mu.Lock()
		delete(s.watches, id)
		s.mu.Unlock()
	})
	s.watches[id] = w
	batch := s.topLocked(q)
	w.last = idsOf(batch)
	s.mu.Unlock()

	context.AfterFunc(ctx, w.sub.Unsubscribe)

	w.sub.Deliver(func() { fn(batch) })
	return w.sub, nil
}

func (s *Memory) topLocked(q Query) []Message {
	rs := make([]stored, len(s.records[q.Collection]))
	copy(rs, s.records[q.Collection])

	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if !a.msg.Timestamp.Equal(b.msg.Timestamp) {
			if q.Direction == Asc {
				return a.msg.Timestamp.Before(b.msg.Timestamp)
			}
			return a.msg.Timestamp.After(b.msg.Timestamp)
		}
		if q.Direction == Asc {
			return a.seq < b.seq
		}
		return a.seq > b.seq
	})

	if q.Limit > 0 && len(rs) > q.Limit {
		rs = rs[:q.Limit]
	}
	out := make([]Message, len(rs))
	for i := range rs {
		out[i] = rs[i].msg
	}
	return out
}
