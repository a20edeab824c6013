package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "chat_queue/docs"
	"chat_queue/internal/auth"
	"chat_queue/internal/config"
	"chat_queue/internal/logger"
	"chat_queue/internal/notify"
	"chat_queue/internal/queue"
	"chat_queue/internal/server"
	"chat_queue/internal/storage"
	"chat_queue/internal/tasks"
	"chat_queue/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// @Title						Очередь анонимных чатов
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Println("Ошибка получения .env:", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Ошибка конфигурации:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logger)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("сервер остановлен с ошибкой")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store queue.Store
		chats queue.ChatFactory
	)
	switch cfg.Queue.Store {
	case "postgres":
		db, err := storage.ConnectDatabase(cfg.Database)
		if err != nil {
			return err
		}
		if err := storage.Migrate(db); err != nil {
			return fmt.Errorf("ошибка при миграции: %w", err)
		}
		log.Info().Msg("подключение к базе данных успешно")
		store = storage.NewQueueStore(db, log)
		chats = storage.NewChatStore(db)
	case "memory":
		store = queue.NewMemoryStore()
		chats = queue.NewMemoryChats()
	}

	var broker notify.Broker
	switch cfg.Queue.NotifyBackend {
	case "redis":
		rdb, err := storage.InitRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		broker = notify.NewRedisBroker(rdb, log)
	case "memory":
		hub := notify.NewHub(256)
		go hub.Run(ctx)
		broker = hub
	}

	engine := queue.NewEngine(store, chats, broker, log, queue.WithMaxAttempts(cfg.Queue.PairMaxRetries))

	scheduler, err := tasks.InitScheduler(ctx, cfg.Queue.SweepSpec, engine, cfg.Queue.EntryTTL, log)
	if err != nil {
		return fmt.Errorf("ошибка запуска cron-задачи: %w", err)
	}
	defer scheduler.Stop()

	gin.SetMode(gin.ReleaseMode)
	r := server.NewRouter(server.Deps{
		Engine: engine,
		WS:     ws.NewHandler(broker, log),
		Auth:   auth.NewAuthenticator(cfg.JWT.AccessSecret).Middleware(),
		Log:    log,
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("сервер запущен")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("остановка сервера")
	return srv.Shutdown(shutdownCtx)
}
