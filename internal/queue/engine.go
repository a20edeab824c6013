package queue

import (
	"context"
	"errors"
	"time"

	apperrors "chat_queue/pkg/errors"

	"github.com/rs/zerolog"
)

const defaultMaxAttempts = 5

// Engine соединяет ожидающих пользователей в чаты. Все изменения очереди идут
// через Store.Atomically, уведомления уходят только после коммита.
type Engine struct {
	store       Store
	chats       ChatFactory
	pub         Publisher
	log         zerolog.Logger
	now         func() time.Time
	maxAttempts int
}

type Option func(*Engine)

// WithClock подменяет time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMaxAttempts ограничивает число повторов после проигранной гонки.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

func NewEngine(store Store, chats ChatFactory, pub Publisher, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		chats:       chats,
		pub:         pub,
		log:         log.With().Str("component", "pairing_engine").Logger(),
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InitiateChat соединяет userID с тем, кто дольше всех ждёт, или ставит его в
// очередь, если никого нет. Повторный вход из очереди даёт ErrAlreadyInQueue.
func (e *Engine) InitiateChat(ctx context.Context, userID string) (Result, error) {
	if userID == "" {
		return Result{}, apperrors.ErrNotAuthorized
	}
	log := e.log.With().Str("user_id", userID).Logger()

	var (
		res     Result
		partner *Entry
		joined  *Entry
	)
	err := e.retry(ctx, func() error {
		res, partner, joined = Result{}, nil, nil
		return e.store.Atomically(ctx, func(ctx context.Context, tx Tx) error {
			existing, err := tx.FindByUser(ctx, userID)
			if err != nil {
				return err
			}
			if existing != nil {
				return apperrors.ErrAlreadyInQueue
			}

			oldest, err := tx.FindOldest(ctx)
			if err != nil {
				return err
			}
			if oldest != nil {
				removed, err := tx.DeleteByID(ctx, oldest.ID)
				if err != nil {
					return err
				}
				if removed == nil {
					return ErrPairingRaceLost
				}
				chatID, err := e.chats.CreateChat(ctx, []string{removed.UserID, userID})
				if err != nil {
					return err
				}
				res, partner = Paired(chatID), removed
				return nil
			}

			entry, err := tx.Insert(ctx, userID, e.now())
			if errors.Is(err, ErrDuplicateUser) {
				return apperrors.ErrAlreadyInQueue
			}
			if err != nil {
				return err
			}
			position, err := tx.CountJoinedAtOrBefore(ctx, *entry)
			if err != nil {
				return err
			}
			res, joined = Queued(position), entry
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrAlreadyInQueue) {
			log.Error().Err(err).Msg("initiate chat failed")
		}
		return Result{}, err
	}

	if partner != nil {
		log.Info().Str("partner_id", partner.UserID).Str("chat_id", res.ChatID).Msg("users paired")
		e.publish(ctx, TopicChatStarted, ChatStarted{
			ChatID:       res.ChatID,
			Participants: []string{partner.UserID, userID},
		})
		e.publish(ctx, TopicUserLeft, Membership{UserID: partner.UserID, Reason: ReasonPaired, At: e.now()})
		e.publishShift(ctx, *partner)
		return res, nil
	}

	log.Info().Int("position", res.Position).Msg("user queued")
	e.publish(ctx, TopicUserJoined, Membership{UserID: userID, Position: res.Position, At: joined.JoinedAt})
	return res, nil
}

// DequeueUser удаляет userID из очереди. Для отсутствующих — NotInQueue.
func (e *Engine) DequeueUser(ctx context.Context, userID string) (Result, error) {
	if userID == "" {
		return Result{}, apperrors.ErrNotAuthorized
	}
	return e.dequeue(ctx, userID, ReasonDequeued, func(ctx context.Context, tx Tx) (*Entry, error) {
		return tx.DeleteByUser(ctx, userID)
	})
}

// dequeue удаляет одну запись через remove и рассылает сдвиг позиций, только
// если запись действительно была удалена.
func (e *Engine) dequeue(ctx context.Context, userID, reason string, remove func(ctx context.Context, tx Tx) (*Entry, error)) (Result, error) {
	var removed *Entry
	err := e.retry(ctx, func() error {
		removed = nil
		return e.store.Atomically(ctx, func(ctx context.Context, tx Tx) error {
			var err error
			removed, err = remove(ctx, tx)
			return err
		})
	})
	if err != nil {
		e.log.Error().Err(err).Str("user_id", userID).Msg("dequeue failed")
		return Result{}, err
	}
	if removed == nil {
		return NotInQueue(), nil
	}

	e.log.Info().Str("user_id", userID).Str("reason", reason).Msg("user left queue")
	e.publishShift(ctx, *removed)
	e.publish(ctx, TopicUserLeft, Membership{UserID: userID, Reason: reason, At: e.now()})
	return Left(), nil
}

// QueuePosition возвращает текущую позицию пользователя, начиная с 1. Поиск
// записи и подсчёт идут в одной атомарной единице.
func (e *Engine) QueuePosition(ctx context.Context, userID string) (Result, error) {
	if userID == "" {
		return Result{}, apperrors.ErrNotAuthorized
	}
	var res Result
	err := e.retry(ctx, func() error {
		res = NotInQueue()
		return e.store.Atomically(ctx, func(ctx context.Context, tx Tx) error {
			entry, err := tx.FindByUser(ctx, userID)
			if err != nil || entry == nil {
				return err
			}
			position, err := tx.CountJoinedAtOrBefore(ctx, *entry)
			if err != nil {
				return err
			}
			// запись уже не в очереди
			if position < 1 {
				return nil
			}
			res = Queued(position)
			return nil
		})
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Queue возвращает всех ожидающих, от самого давнего.
func (e *Engine) Queue(ctx context.Context) ([]Entry, error) {
	entries, err := e.store.ListOrdered(ctx)
	if err != nil {
		return nil, e.storeErr(err)
	}
	return entries, nil
}

// Evict удаляет записи, вставшие в очередь раньше cutoff, и возвращает их
// число. Удаление идёт по id записи из снимка: если пользователь за это время
// успел выйти и встать заново, его новая запись не трогается.
func (e *Engine) Evict(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := e.store.ListOrdered(ctx)
	if err != nil {
		return 0, e.storeErr(err)
	}

	evicted := 0
	for _, entry := range entries {
		if !entry.JoinedAt.Before(cutoff) {
			break
		}
		id := entry.ID
		res, err := e.dequeue(ctx, entry.UserID, ReasonExpired, func(ctx context.Context, tx Tx) (*Entry, error) {
			return tx.DeleteByID(ctx, id)
		})
		if err != nil {
			return evicted, err
		}
		if res.Kind == KindLeft {
			evicted++
		}
	}
	return evicted, nil
}

// publishShift сообщает всем, кто стоял за removed, их новую позицию. Читает
// уже закоммиченное состояние, поэтому позиции — после удаления.
func (e *Engine) publishShift(ctx context.Context, removed Entry) {
	entries, err := e.store.ListOrdered(ctx)
	if err != nil {
		e.log.Warn().Err(err).Str("user_id", removed.UserID).Msg("position updates skipped")
		return
	}
	for i, entry := range entries {
		if entry.Before(removed) {
			continue
		}
		e.publish(ctx, PositionTopic(entry.UserID), PositionUpdate{UserID: entry.UserID, Position: i + 1})
	}
}

func (e *Engine) publish(ctx context.Context, topic string, payload any) {
	if err := e.pub.Publish(ctx, topic, payload); err != nil {
		e.log.Warn().Err(err).Str("topic", topic).Msg("publish failed")
	}
}

// retry повторяет attempt, пока он проигрывает гонку.
func (e *Engine) retry(ctx context.Context, attempt func() error) error {
	var err error
	for i := 0; i < e.maxAttempts; i++ {
		err = attempt()
		if !errors.Is(err, ErrPairingRaceLost) {
			return e.storeErr(err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return apperrors.ErrStoreFailure(ctxErr)
		}
		e.log.Debug().Int("attempt", i+1).Msg("pairing race lost, retrying")
	}
	return apperrors.ErrStoreFailure(err)
}

// storeErr оставляет доменные ошибки как есть, остальное считает
// недоступностью хранилища.
func (e *Engine) storeErr(err error) error {
	if err == nil || apperrors.CodeOf(err) != apperrors.CodeUnknown {
		return err
	}
	return apperrors.ErrStoreFailure(err)
}
