package notify

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// RedisBroker рассылает события через Redis pub/sub, чтобы их видели все
// экземпляры сервиса.
type RedisBroker struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewRedisBroker(client *redis.Client, log zerolog.Logger) *RedisBroker {
	return &RedisBroker{
		client: client,
		log:    log.With().Str("component", "redis_broker").Logger(),
	}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, payload any) error {
	raw, err := encode(payload)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, topic, []byte(raw)).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, topics...)
	// Receive ждёт подтверждения подписки, иначе первые события теряются.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Message, 256)
	go func() {
		defer close(out)
		for m := range ps.Channel() {
			select {
			case out <- Message{Topic: m.Channel, Payload: []byte(m.Payload)}:
			default:
				b.log.Warn().Str("topic", m.Channel).Msg("subscriber too slow, dropping")
				_ = ps.Close()
				return
			}
		}
	}()

	return &Subscription{
		C: out,
		close: func() {
			if err := ps.Close(); err != nil {
				b.log.Debug().Err(err).Msg("close pubsub")
			}
		},
	}, nil
}
