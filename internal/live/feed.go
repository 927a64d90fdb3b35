package live

import "sync"

type subscriber[T any] struct {
	fn  func(T)
	sub *Subscription
}

// Feed fans a stream of values out to callback subscribers.
//
// Publish calls are serialized, so every subscriber sees values in publish
// order. A callback must not Publish to the feed that is delivering to it.
type Feed[T any] struct {
	pubMu sync.Mutex

	mu     sync.Mutex
	seq    uint64
	subs   map[uint64]subscriber[T]
	value  T
	has    bool
	replay bool
}

// NewFeed returns a feed that only delivers values published after a
// subscriber joined.
func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[uint64]subscriber[T])}
}

// NewBehavior returns a feed that replays its latest value to every new
// subscriber, starting with initial.
func NewBehavior[T any](initial T) *Feed[T] {
	return &Feed[T]{
		subs:   make(map[uint64]subscriber[T]),
		value:  initial,
		has:    true,
		replay: true,
	}
}

// Subscribe registers fn. For a behavior feed fn receives the current value
// before Subscribe returns.
func (f *Feed[T]) Subscribe(fn func(T)) *Subscription {
	f.pubMu.Lock()
	defer f.pubMu.Unlock()

	f.mu.Lock()
	id := f.seq
	f.seq++
	sub := NewSubscription(func() { f.remove(id) })
	f.subs[id] = subscriber[T]{fn: fn, sub: sub}
	v, replay := f.value, f.replay && f.has
	f.mu.Unlock()

	if replay {
		sub.Deliver(func() { fn(v) })
	}
	return sub
}

// Publish delivers v to every active subscriber.
func (f *Feed[T]) Publish(v T) {
	f.pubMu.Lock()
	defer f.pubMu.Unlock()

	f.mu.Lock()
	if f.replay {
		f.value = v
		f.has = true
	}
	subs := make([]subscriber[T], 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	for _, s := range subs {
		s.sub.Deliver(func() { s.fn(v) })
	}
}

// Value returns the latest published value of a behavior feed.
func (f *Feed[T]) Value() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.has
}

// Len is the number of active subscribers.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close ends every subscription.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	subs := make([]*Subscription, 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s.sub)
	}
	f.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (f *Feed[T]) remove(id uint64) {
	f.mu.Lock()
	delete(f.subs, id)
	f.mu.Unlock()
}
