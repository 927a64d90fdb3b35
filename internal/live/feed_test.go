package live_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"friendlychat/backend/internal/live"
)

func TestFeedDeliversInPublishOrder(t *testing.T) {
	feed := live.NewFeed[int]()

	var got []int
	sub := feed.Subscribe(func(v int) { got = append(got, v) })
	defer sub.Unsubscribe()

	for i := 1; i <= 3; i++ {
		feed.Publish(i)
	}

	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestFeedStopsAfterUnsubscribe(t *testing.T) {
	feed := live.NewFeed[string]()

	calls := 0
	sub := feed.Subscribe(func(string) { calls++ })
	feed.Publish("a")
	sub.Unsubscribe()
	sub.Unsubscribe()
	feed.Publish("b")

	if calls != 1 {
		t.Fatalf("expected 1 delivery, got %d", calls)
	}
	if feed.Len() != 0 {
		t.Fatalf("expected no subscribers, got %d", feed.Len())
	}
	select {
	case <-sub.Done():
	default:
		t.Fatal("expected Done to be closed")
	}
}

func TestBehaviorReplaysLatest(t *testing.T) {
	feed := live.NewBehavior("initial")
	feed.Publish("second")

	var got string
	sub := feed.Subscribe(func(v string) { got = v })
	defer sub.Unsubscribe()

	if got != "second" {
		t.Fatalf("expected replay of latest value, got %q", got)
	}
	if v, ok := feed.Value(); !ok || v != "second" {
		t.Fatalf("unexpected value %q (ok=%v)", v, ok)
	}
}

func TestUnsubscribeInsideCallback(t *testing.T) {
	feed := live.NewFeed[int]()

	calls := 0
	var sub *live.Subscription
	sub = feed.Subscribe(func(int) {
		calls++
		sub.Unsubscribe()
	})
	feed.Publish(1)
	feed.Publish(2)

	if calls != 1 {
		t.Fatalf("expected 1 delivery, got %d", calls)
	}
}

func TestFailRecordsError(t *testing.T) {
	cancelled := false
	sub := live.NewSubscription(func() { cancelled = true })
	boom := errors.New("boom")

	sub.Fail(boom)

	if !cancelled {
		t.Fatal("expected cancel to run")
	}
	if !errors.Is(sub.Err(), boom) {
		t.Fatalf("unexpected err: %v", sub.Err())
	}
	if sub.Active() {
		t.Fatal("expected inactive subscription")
	}
	if sub.Deliver(func() { t.Fatal("delivered after Fail") }) {
		t.Fatal("Deliver reported success after Fail")
	}
}

func TestLatestKeepsNewestPendingValue(t *testing.T) {
	feed := live.NewFeed[int]()

	ch, sub, err := live.Latest(func(fn func(int)) (*live.Subscription, error) {
		return feed.Subscribe(fn), nil
	})
	if err != nil {
		t.Fatalf("Latest err: %v", err)
	}
	defer sub.Unsubscribe()

	feed.Publish(1)
	feed.Publish(2)
	feed.Publish(3)

	if v := <-ch; v != 3 {
		t.Fatalf("expected newest value 3, got %d", v)
	}
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestUnsubscribeWaitBlocksOnRunningCallback(t *testing.T) {
	sub := live.NewSubscription(nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	go sub.Deliver(func() {
		close(entered)
		<-release
	})
	<-entered

	returned := make(chan struct{})
	go func() {
		sub.UnsubscribeWait()
		close(returned)
	}()

	select {
	case <-returned:
		t.Fatal("UnsubscribeWait returned while a callback was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("UnsubscribeWait did not return after the callback finished")
	}

	if sub.Deliver(func() { t.Fatal("callback ran after UnsubscribeWait") }) {
		t.Fatal("Deliver reported a delivery after UnsubscribeWait")
	}
}

func TestUnsubscribeWaitFromAnotherGoroutine(t *testing.T) {
	sub := live.NewSubscription(nil)

	var mu sync.Mutex
	calls, afterStop := 0, 0
	stopped := make(chan struct{})
	var stoppedFlag atomic.Bool

	go func() {
		defer close(stopped)
		for {
			ok := sub.Deliver(func() {
				mu.Lock()
				calls++
				if stoppedFlag.Load() {
					afterStop++
				}
				mu.Unlock()
			})
			if !ok {
				return
			}
		}
	}()

	time.Sleep(10 * time.Millisecond)
	sub.UnsubscribeWait()
	stoppedFlag.Store(true)
	<-stopped

	mu.Lock()
	defer mu.Unlock()
	if calls == 0 {
		t.Fatal("expected deliveries before unsubscribing")
	}
	if afterStop != 0 {
		t.Fatalf("%d callbacks ran after UnsubscribeWait returned", afterStop)
	}
}
