package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"friendlychat/backend/internal/live"
)

// Redis keeps each collection as a sorted set of message IDs scored by
// commit time, with the documents stored as JSON strings. Every append is
// announced on a pub/sub channel that drives live queries.
type Redis struct {
	client *redis.Client
	prefix string
	logger *log.Logger
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "chat", logger: log.Default()}
}

// SetLogger replaces the default logger.
func (r *Redis) SetLogger(l *log.Logger) {
	if l != nil {
		r.logger = l
	}
}

func (r *Redis) indexKey(collection string) string {
	return fmt.Sprintf("%s:%s", r.prefix, collection)
}

func (r *Redis) docKey(collection, id string) string {
	return fmt.Sprintf("%s:%s:doc:%s", r.prefix, collection, id)
}

func (r *Redis) eventsKey(collection string) string {
	return fmt.Sprintf("%s:%s:events", r.prefix, collection)
}

// Append stores m. A zero Timestamp is resolved from the Redis server clock.
func (r *Redis) Append(ctx context.Context, collection string, m ChatMessage) (*RecordRef, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection is required", ErrBadRequest)
	}

	if m.Timestamp.IsZero() {
		now, err := r.client.Time(ctx).Result()
		if err != nil {
			return nil, fmt.Errorf("redis time failed: %w", err)
		}
		m.Timestamp = now.UTC()
	}

	msg := Message{ID: uuid.NewString(), ChatMessage: m}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message failed: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.docKey(collection, msg.ID), payload, 0)
		pipe.ZAdd(ctx, r.indexKey(collection), redis.Z{
			Score:  float64(msg.Timestamp.UnixMicro()),
			Member: msg.ID,
		})
		pipe.Publish(ctx, r.eventsKey(collection), msg.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}

	return &RecordRef{ID: msg.ID, Path: collection + "/" + msg.ID}, nil
}

// Watch re-reads the window after every announced append and emits it when
// it changed.
func (r *Redis) Watch(ctx context.Context, q Query, fn func([]Message)) (*live.Subscription, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	if q.OrderBy != FieldTimestamp {
		return nil, fmt.Errorf("%w: redis store orders by %q only", ErrUnsupportedQuery, FieldTimestamp)
	}

	wctx, cancel := context.WithCancel(ctx)
	pubsub := r.client.Subscribe(wctx, r.eventsKey(q.Collection))
	if _, err := pubsub.Receive(wctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	sub := live.NewSubscription(func() {
		cancel()
		_ = pubsub.Close()
	})

	go func() {
		var last []string
		emit := func() error {
			batch, err := r.window(wctx, q)
			if err != nil {
				return err
			}
			if last != nil && sameIDs(batch, last) {
				return nil
			}
			last = idsOf(batch)
			sub.Deliver(func() { fn(batch) })
			return nil
		}

		stop := func(err error) {
			if err == nil || wctx.Err() != nil {
				sub.Unsubscribe()
				return
			}
			r.logger.Printf("redis: live query on %s stopped: %v", q.Collection, err)
			sub.Fail(err)
		}

		if err := emit(); err != nil {
			stop(err)
			return
		}

		ch := pubsub.Channel()
		for {
			select {
			case <-wctx.Done():
				stop(nil)
				return
			case _, ok := <-ch:
				if !ok {
					stop(nil)
					return
				}
				if err := emit(); err != nil {
					stop(err)
					return
				}
			}
		}
	}()

	return sub, nil
}

func (r *Redis) window(ctx context.Context, q Query) ([]Message, error) {
	stop := int64(-1)
	if q.Limit > 0 {
		stop = int64(q.Limit) - 1
	}

	var ids []string
	var err error
	if q.Direction == Asc {
		ids, err = r.client.ZRange(ctx, r.indexKey(q.Collection), 0, stop).Result()
	} else {
		ids, err = r.client.ZRevRange(ctx, r.indexKey(q.Collection), 0, stop).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("redis read index failed: %w", err)
	}
	if len(ids) == 0 {
		return []Message{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(q.Collection, id)
	}
	raw, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read messages failed: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var m Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			r.logger.Printf("redis: skip message %s: %v", ids[i], err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
