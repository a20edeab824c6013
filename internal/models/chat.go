package models

import "time"

type Chat struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	CreatedAt    time.Time
	Participants []ChatParticipant `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
}

type ChatParticipant struct {
	ID     uint   `gorm:"primaryKey"`
	ChatID string `gorm:"type:uuid;index;not null"`
	UserID string `gorm:"index;not null"`
}
