package queue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateUser — у пользователя уже есть запись в очереди.
	ErrDuplicateUser = errors.New("queue: user already has an active entry")
	// ErrPairingRaceLost — конкурентное изменение сделало попытку
	// недействительной, атомарную единицу нужно повторить целиком.
	ErrPairingRaceLost = errors.New("queue: pairing race lost")
)

// Tx — операции над очередью внутри одной атомарной единицы.
// Поиск возвращает nil, если записи нет.
type Tx interface {
	Insert(ctx context.Context, userID string, joinedAt time.Time) (*Entry, error)
	DeleteByUser(ctx context.Context, userID string) (*Entry, error)
	DeleteByID(ctx context.Context, id uint) (*Entry, error)
	FindOldest(ctx context.Context) (*Entry, error)
	FindByUser(ctx context.Context, userID string) (*Entry, error)
	// CountJoinedAtOrBefore считает записи не позже e, то есть позицию e.
	CountJoinedAtOrBefore(ctx context.Context, e Entry) (int, error)
	ListOrdered(ctx context.Context) ([]Entry, error)
}

// Store — хранилище очереди. Atomically выполняет fn так, что всё сделанное
// внутри, включая создание чата через ChatFactory с тем же ctx, фиксируется или
// откатывается целиком и не перемежается с другими изменениями.
type Store interface {
	Tx
	Atomically(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// ChatFactory создаёт чат для найденной пары.
type ChatFactory interface {
	CreateChat(ctx context.Context, participantIDs []string) (string, error)
}

// Publisher отправляет события без гарантии доставки.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}
