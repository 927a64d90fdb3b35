package live

import (
	"sync"
	"sync/atomic"
)

// Subscription is the teardown handle of a standing subscription.
//
// Once Unsubscribe returns no new callback is started for it. A callback
// already running on another goroutine may still finish; UnsubscribeWait
// also waits for it.
type Subscription struct {
	once   sync.Once
	gate   sync.Mutex
	closed atomic.Bool
	busy   sync.WaitGroup
	done   chan struct{}
	cancel func()

	mu  sync.Mutex
	err error
}

// NewSubscription returns an active subscription. cancel runs once, on the
// first call to Unsubscribe or Fail.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{done: make(chan struct{}), cancel: cancel}
}

// Unsubscribe stops delivery. It is safe to call more than once and from
// inside a callback.
func (s *Subscription) Unsubscribe() {
	s.finish(nil)
}

// UnsubscribeWait stops delivery and returns once no callback is running.
// After it returns fn is never called again. It must not be called from
// inside a callback of s.
func (s *Subscription) UnsubscribeWait() {
	s.finish(nil)
	s.busy.Wait()
}

// Fail ends the subscription from the producer side and records err.
func (s *Subscription) Fail(err error) {
	s.finish(err)
}

func (s *Subscription) finish(err error) {
	s.once.Do(func() {
		s.gate.Lock()
		s.closed.Store(true)
		s.gate.Unlock()

		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		if s.cancel != nil {
			s.cancel()
		}
		close(s.done)
	})
}

// Done is closed when the subscription ends for any reason.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err reports why the producer ended the subscription, nil after a plain
// Unsubscribe.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Active reports whether values are still delivered.
func (s *Subscription) Active() bool {
	return !s.closed.Load()
}

// Deliver runs fn unless the subscription has ended. Producers call it for
// every emission.
func (s *Subscription) Deliver(fn func()) bool {
	s.gate.Lock()
	if s.closed.Load() {
		s.gate.Unlock()
		return false
	}
	s.busy.Add(1)
	s.gate.Unlock()

	defer s.busy.Done()
	fn()
	return true
}
