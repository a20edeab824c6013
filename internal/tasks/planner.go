package tasks

import (
	"context"
	"time"

	"chat_queue/internal/queue"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Evictor удаляет записи очереди, вставшие раньше cutoff.
type Evictor interface {
	Evict(ctx context.Context, cutoff time.Time) (int, error)
}

var _ Evictor = (*queue.Engine)(nil)

// ExpireStaleEntries выкидывает из очереди тех, кто ждёт дольше ttl. Выход
// идёт тем же путём, что и обычный dequeue: с пересчётом позиций и уведомлениями.
func ExpireStaleEntries(ctx context.Context, ev Evictor, ttl time.Duration, now time.Time, log zerolog.Logger) {
	n, err := ev.Evict(ctx, now.Add(-ttl))
	if err != nil {
		log.Error().Err(err).Msg("ошибка при удалении устаревших записей очереди")
		return
	}
	if n > 0 {
		log.Info().Int("evicted", n).Dur("ttl", ttl).Msg("устаревшие записи очереди удалены")
	}
}

// InitScheduler инициализирует планировщик cron-задач.
func InitScheduler(ctx context.Context, spec string, ev Evictor, ttl time.Duration, log zerolog.Logger) (*cron.Cron, error) {
	log = log.With().Str("component", "scheduler").Logger()
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		ExpireStaleEntries(runCtx, ev, ttl, time.Now(), log)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	log.Info().Str("spec", spec).Msg("cron-планировщик запущен")
	return c, nil
}
