package chathub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Relay передає конверти між інстансами через Redis Pub/Sub.
// Кожен інстанс, включно з відправником, доставляє їх своїм клієнтам.
type Relay struct {
	Redis   *redis.Client
	Channel string
	log     *logrus.Entry
}

func NewRelay(rdb *redis.Client, channel string) *Relay {
	return &Relay{
		Redis:   rdb,
		Channel: channel,
		log:     logrus.WithField("component", "relay"),
	}
}

func (r *Relay) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.Redis.Publish(ctx, r.Channel, data).Err()
}

// Listen підписується на канал, викликає onReady після підтвердження підписки
// і передає кожен конверт у deliver до скасування ctx.
func (r *Relay) Listen(ctx context.Context, onReady func(), deliver func(Envelope)) error {
	pubsub := r.Redis.Subscribe(ctx, r.Channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.Channel, err)
	}
	onReady()
	r.log.WithField("channel", r.Channel).Info("relay subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.WithError(err).Warn("dropping malformed relay message")
				continue
			}
			deliver(env)
		}
	}
}
