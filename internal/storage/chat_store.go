package storage

import (
	"context"

	"chat_queue/internal/models"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// ChatStore создаёт чаты для найденных пар. Внутри QueueStore.Atomically
// пишет в ту же транзакцию.
type ChatStore struct {
	db *gorm.DB
}

func NewChatStore(db *gorm.DB) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) CreateChat(ctx context.Context, participantIDs []string) (string, error) {
	chat := models.Chat{ID: uuid.NewString()}
	for _, id := range participantIDs {
		chat.Participants = append(chat.Participants, models.ChatParticipant{ChatID: chat.ID, UserID: id})
	}
	if err := conn(ctx, s.db).Create(&chat).Error; err != nil {
		return "", pkgerrors.Wrap(err, "chatStore.CreateChat.Create")
	}
	return chat.ID, nil
}

// Participants возвращает участников чата в порядке соединения.
func (s *ChatStore) Participants(ctx context.Context, chatID string) ([]string, error) {
	var ids []string
	err := conn(ctx, s.db).Model(&models.ChatParticipant{}).
		Where("chat_id = ?", chatID).Order("id ASC").Pluck("user_id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "chatStore.Participants.Pluck")
	}
	return ids, nil
}
