package notify

import (
	"context"
	"errors"
)

var ErrHubStopped = errors.New("notify: hub stopped")

// Hub — брокер внутри процесса. Таблицей подписчиков владеет одна горутина
// (Run), остальные общаются с ней через каналы.
type Hub struct {
	// topic -> подписчики
	clients    map[string]map[*subscriber]bool
	register   chan *subscriber
	unregister chan *subscriber
	broadcast  chan Message
	done       chan struct{}
	bufferSize int
}

type subscriber struct {
	topics []string
	send   chan Message
}

func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Hub{
		clients:    make(map[string]map[*subscriber]bool),
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		broadcast:  make(chan Message),
		done:       make(chan struct{}),
		bufferSize: bufferSize,
	}
}

// Run обрабатывает каналы хаба до отмены контекста.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for _, subs := range h.clients {
			for s := range subs {
				h.drop(s)
			}
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-h.register:
			for _, topic := range s.topics {
				if h.clients[topic] == nil {
					h.clients[topic] = make(map[*subscriber]bool)
				}
				h.clients[topic][s] = true
			}
		case s := <-h.unregister:
			h.drop(s)
		case msg := <-h.broadcast:
			for s := range h.clients[msg.Topic] {
				select {
				case s.send <- msg:
				default:
					// медленный подписчик отключается
					h.drop(s)
				}
			}
		}
	}
}

// drop убирает s из всех топиков и один раз закрывает его канал.
func (h *Hub) drop(s *subscriber) {
	registered := false
	for _, topic := range s.topics {
		subs, ok := h.clients[topic]
		if !ok || !subs[s] {
			continue
		}
		registered = true
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.clients, topic)
		}
	}
	if registered {
		close(s.send)
	}
}

func (h *Hub) Publish(ctx context.Context, topic string, payload any) error {
	raw, err := encode(payload)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- Message{Topic: topic, Payload: raw}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	s := &subscriber{topics: topics, send: make(chan Message, h.bufferSize)}
	select {
	case h.register <- s:
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &Subscription{
		C: s.send,
		close: func() {
			select {
			case h.unregister <- s:
			case <-h.done:
			}
		},
	}, nil
}
