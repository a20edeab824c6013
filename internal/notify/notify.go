// Package notify доставляет события очереди живым подписчикам. Доставка без
// гарантий: ничего не сохраняется, подписчик видит только события, опубликованные,
// пока он подключён.
package notify

import (
	"context"
	"encoding/json"
	"sync"
)

type Message struct {
	Topic   string
	Payload json.RawMessage
}

type Broker interface {
	Publish(ctx context.Context, topic string, payload any) error
	Subscribe(ctx context.Context, topics ...string) (*Subscription, error)
}

// Subscription — поток сообщений подписки. C закрывается после Close или когда
// брокер отключает не успевающего подписчика.
type Subscription struct {
	C     <-chan Message
	once  sync.Once
	close func()
}

func (s *Subscription) Close() {
	s.once.Do(s.close)
}

func encode(payload any) (json.RawMessage, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(payload)
}
