package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chat_queue/internal/models"
	"chat_queue/internal/queue"
	apperrors "chat_queue/pkg/errors"

	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// queueLockKey — advisory lock, который берёт каждое изменение очереди, чтобы
// соединение пар шло последовательно во всех экземплярах сервиса.
const queueLockKey int64 = 0x6368617471

const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// QueueStore хранит очередь в PostgreSQL.
type QueueStore struct {
	db  *gorm.DB
	log zerolog.Logger
}

var _ queue.Store = (*QueueStore)(nil)

func NewQueueStore(db *gorm.DB, log zerolog.Logger) *QueueStore {
	return &QueueStore{db: db, log: log.With().Str("component", "queue_store").Logger()}
}

// Atomically выполняет fn в транзакции READ COMMITTED под advisory lock
// очереди. Каждый запрос после блокировки видит последнее закоммиченное
// состояние, и никакое другое изменение не вклинится.
func (s *QueueStore) Atomically(ctx context.Context, fn func(ctx context.Context, tx queue.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", queueLockKey).Error; err != nil {
			return pkgerrors.Wrap(err, "queueStore.Atomically.Lock")
		}
		return fn(context.WithValue(ctx, txKey{}, tx), s)
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	err = classify(err)
	if errors.Is(err, queue.ErrPairingRaceLost) {
		s.log.Debug().Err(err).Msg("транзакция очереди откатилась из-за конкурентного изменения")
	}
	return err
}

func (s *QueueStore) Insert(ctx context.Context, userID string, joinedAt time.Time) (*queue.Entry, error) {
	row := models.QueueEntry{
		UserID:   userID,
		JoinedAt: joinedAt.UTC().Truncate(time.Microsecond),
	}
	if err := conn(ctx, s.db).Create(&row).Error; err != nil {
		return nil, classify(pkgerrors.Wrap(err, "queueStore.Insert.Create"))
	}
	return toEntry(row), nil
}

func (s *QueueStore) DeleteByUser(ctx context.Context, userID string) (*queue.Entry, error) {
	var rows []models.QueueEntry
	if err := conn(ctx, s.db).Clauses(clause.Returning{}).Where("user_id = ?", userID).Delete(&rows).Error; err != nil {
		return nil, classify(pkgerrors.Wrap(err, "queueStore.DeleteByUser.Delete"))
	}
	return firstEntry(rows), nil
}

func (s *QueueStore) DeleteByID(ctx context.Context, id uint) (*queue.Entry, error) {
	var rows []models.QueueEntry
	if err := conn(ctx, s.db).Clauses(clause.Returning{}).Where("id = ?", id).Delete(&rows).Error; err != nil {
		return nil, classify(pkgerrors.Wrap(err, "queueStore.DeleteByID.Delete"))
	}
	return firstEntry(rows), nil
}

func (s *QueueStore) FindOldest(ctx context.Context) (*queue.Entry, error) {
	var row models.QueueEntry
	err := conn(ctx, s.db).Order("joined_at ASC, id ASC").First(&row).Error
	return s.found(row, err, "queueStore.FindOldest.First")
}

func (s *QueueStore) FindByUser(ctx context.Context, userID string) (*queue.Entry, error) {
	var row models.QueueEntry
	err := conn(ctx, s.db).Where("user_id = ?", userID).First(&row).Error
	return s.found(row, err, "queueStore.FindByUser.First")
}

func (s *QueueStore) CountJoinedAtOrBefore(ctx context.Context, e queue.Entry) (int, error) {
	var n int64
	err := conn(ctx, s.db).Model(&models.QueueEntry{}).
		Where("joined_at < ? OR (joined_at = ? AND id <= ?)", e.JoinedAt, e.JoinedAt, e.ID).
		Count(&n).Error
	if err != nil {
		return 0, classify(pkgerrors.Wrap(err, "queueStore.CountJoinedAtOrBefore.Count"))
	}
	return int(n), nil
}

func (s *QueueStore) ListOrdered(ctx context.Context) ([]queue.Entry, error) {
	var rows []models.QueueEntry
	if err := conn(ctx, s.db).Order("joined_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, classify(pkgerrors.Wrap(err, "queueStore.ListOrdered.Find"))
	}
	entries := make([]queue.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, *toEntry(row))
	}
	return entries, nil
}

func (s *QueueStore) found(row models.QueueEntry, err error, op string) (*queue.Entry, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(pkgerrors.Wrap(err, op))
	}
	return toEntry(row), nil
}

// classify переводит ошибки драйвера в ошибки очереди.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, queue.ErrDuplicateUser) || errors.Is(err, queue.ErrPairingRaceLost) ||
		apperrors.CodeOf(err) != apperrors.CodeUnknown {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation:
			return queue.ErrDuplicateUser
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return queue.ErrPairingRaceLost
		}
	}
	return apperrors.ErrStoreFailure(err)
}

func toEntry(row models.QueueEntry) *queue.Entry {
	return &queue.Entry{ID: row.ID, UserID: row.UserID, JoinedAt: row.JoinedAt}
}

func firstEntry(rows []models.QueueEntry) *queue.Entry {
	if len(rows) == 0 {
		return nil
	}
	return toEntry(rows[0])
}
