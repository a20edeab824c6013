package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"chat_queue/internal/auth"
	"chat_queue/internal/notify"
	"chat_queue/internal/queue"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	EventPositionUpdated = "queue_position_updated"
	EventChatStarted     = "chat_started"
	EventUserJoined      = "user_joined_queue"
	EventUserLeft        = "user_left_queue"
)

// WSMessage — сообщение, отправляемое клиенту.
type WSMessage struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// Handler отдаёт по websocket события очереди: пользователю — его позицию и
// начатые чаты с его участием, наблюдателю — входы в очередь и выходы из неё.
type Handler struct {
	broker   notify.Broker
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(broker notify.Broker, log zerolog.Logger) *Handler {
	return &Handler{
		broker: broker,
		log:    log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Client представляет одно подключение через WebSocket.
type Client struct {
	Conn      *websocket.Conn
	UserID    string
	sub       *notify.Subscription
	translate func(c *Client, msg notify.Message) (WSMessage, bool)
	log       zerolog.Logger
}

// QueueWebSocketHandler обновляет соединение до WebSocket и подписывает
// клиента на его события.
// URL-пример: /api/queue/ws
func (h *Handler) QueueWebSocketHandler(c *gin.Context) {
	h.serve(c, translateUserEvent, queue.PositionTopic(c.GetString(auth.ContextUserID)), queue.TopicChatStarted)
}

// QueueEventsWebSocketHandler отдаёт поток входов в очередь и выходов из неё.
// URL-пример: /api/queue/events
func (h *Handler) QueueEventsWebSocketHandler(c *gin.Context) {
	h.serve(c, translateMembership, queue.TopicUserJoined, queue.TopicUserLeft)
}

func (h *Handler) serve(c *gin.Context, translate func(*Client, notify.Message) (WSMessage, bool), topics ...string) {
	userID := c.GetString(auth.ContextUserID)

	// подписка до апгрейда, чтобы ни одно событие после 101 не потерялось
	sub, err := h.broker.Subscribe(c.Request.Context(), topics...)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("subscribe failed")
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Close()
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		Conn:      conn,
		UserID:    userID,
		sub:       sub,
		translate: translate,
		log:       h.log.With().Str("user_id", userID).Logger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go client.writePump(ctx)
	client.readPump()
	cancel()
}

// readPump читает сообщения из WebSocket-соединения. Входящие сообщения не
// обрабатываются, отслеживается только разрыв соединения.
func (c *Client) readPump() {
	defer func() {
		c.sub.Close()
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump отправляет клиенту события из подписки.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.sub.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// подписка закрыта брокером
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			out, deliver := c.translate(c, msg)
			if !deliver {
				continue
			}
			if err := c.Conn.WriteJSON(out); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// translateUserEvent превращает сообщение брокера в событие клиента.
// chat_started общий для всех, поэтому доставляется только участникам чата.
func translateUserEvent(c *Client, msg notify.Message) (WSMessage, bool) {
	switch {
	case msg.Topic == queue.TopicChatStarted:
		var ev queue.ChatStarted
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			c.log.Warn().Err(err).Msg("bad chat_started payload")
			return WSMessage{}, false
		}
		if !ev.Includes(c.UserID) {
			return WSMessage{}, false
		}
		return WSMessage{EventType: EventChatStarted, Data: msg.Payload}, true
	case strings.HasPrefix(msg.Topic, queue.PositionTopic("")):
		if msg.Topic != queue.PositionTopic(c.UserID) {
			return WSMessage{}, false
		}
		return WSMessage{EventType: EventPositionUpdated, Data: msg.Payload}, true
	default:
		return WSMessage{}, false
	}
}

func translateMembership(_ *Client, msg notify.Message) (WSMessage, bool) {
	switch msg.Topic {
	case queue.TopicUserJoined:
		return WSMessage{EventType: EventUserJoined, Data: msg.Payload}, true
	case queue.TopicUserLeft:
		return WSMessage{EventType: EventUserLeft, Data: msg.Payload}, true
	default:
		return WSMessage{}, false
	}
}
