package sample

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// Feed is the realtime sample source: every accepted ingest is published
// to a per-device redis channel, and trackers consume the channel in
// publish order.
type Feed struct {
	redis *redis.Client
}

func NewFeed(redisClient *redis.Client) *Feed {
	return &Feed{redis: redisClient}
}

func (f *Feed) Publish(ctx context.Context, deviceID string, raw Raw) error {
	if f.redis == nil {
		return nil
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return f.redis.Publish(ctx, feedChannel(deviceID), payload).Err()
}

// Subscription delivers raw samples for one device until closed.
type Subscription struct {
	C      <-chan Raw
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

func (s *Subscription) Close() {
	s.cancel()
	if s.pubsub != nil {
		_ = s.pubsub.Close()
	}
}

// Subscribe starts consuming the device feed. The underlying pub/sub
// connection reconnects on its own; samples published while disconnected
// are lost, which matches the source's at-most-once delivery.
func (f *Feed) Subscribe(ctx context.Context, deviceID string) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Raw, 64)
	sub := &Subscription{C: out, cancel: cancel}

	if f.redis == nil {
		close(out)
		return sub
	}

	pubsub := f.redis.Subscribe(ctx, feedChannel(deviceID))
	sub.pubsub = pubsub

	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var raw Raw
				if err := json.Unmarshal([]byte(msg.Payload), &raw); err != nil {
					log.Printf("feed: dropping malformed sample: %v", err)
					continue
				}
				select {
				case out <- raw:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return sub
}

func feedChannel(deviceID string) string {
	return "gps:" + deviceID + ":samples"
}
