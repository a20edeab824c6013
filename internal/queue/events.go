package queue

import "time"

const (
	TopicChatStarted = "chat_started"
	TopicUserJoined  = "user_joined_queue"
	TopicUserLeft    = "user_left_queue"

	positionTopicPrefix = "queue_position:"
)

// PositionTopic — персональный топик обновлений позиции.
func PositionTopic(userID string) string {
	return positionTopicPrefix + userID
}

type PositionUpdate struct {
	UserID   string `json:"userId"`
	Position int    `json:"position"`
}

type ChatStarted struct {
	ChatID       string   `json:"chatId"`
	Participants []string `json:"participants"`
}

// Includes сообщает, участвует ли userID в чате. Только точное совпадение.
func (c ChatStarted) Includes(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

type Membership struct {
	UserID   string    `json:"userId"`
	Position int       `json:"position,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

const (
	ReasonDequeued = "dequeued"
	ReasonPaired   = "paired"
	ReasonExpired  = "expired"
)
