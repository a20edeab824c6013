package queue

import "time"

// Entry — пользователь, ожидающий пару. Порядок: JoinedAt по возрастанию, при
// равенстве — ID. Позиция всегда вычисляется из этого порядка.
type Entry struct {
	ID       uint      `json:"id"`
	UserID   string    `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Before сообщает, стоит ли e в очереди раньше other.
func (e Entry) Before(other Entry) bool {
	if e.JoinedAt.Equal(other.JoinedAt) {
		return e.ID < other.ID
	}
	return e.JoinedAt.Before(other.JoinedAt)
}
