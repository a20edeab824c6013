package models

import "time"

// QueueEntry — пользователь, ожидающий собеседника. Запись удаляется при
// выходе из очереди или при создании чата.
type QueueEntry struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"uniqueIndex;not null"`
	JoinedAt  time.Time `gorm:"index:idx_queue_entries_order,priority:1;not null"`
	CreatedAt time.Time
}
