package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/linemk/storefront/internal/config"
	"github.com/linemk/storefront/internal/notifier"
	"github.com/linemk/storefront/internal/storage"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *sql.DB
	Redis  *redis.Client
}

// DSN собирает строку подключения к Postgres
func DSN(db config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
	)
}

// NewApp создаёт новый экземпляр App: подключение к БД и, если задан адрес, к Redis
func NewApp(log *slog.Logger, cfg *config.Config) (*App, error) {
	db, err := sql.Open("postgres", DSN(cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	app := &App{
		Config: cfg,
		Logger: log,
		DB:     db,
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		app.Redis = rdb
	}

	return app, nil
}

// NewWorker собирает обработчик уведомлений поверх хранилища приложения
func (a *App) NewWorker(sender notifier.Sender) *notifier.Worker {
	var dedup notifier.Deduper
	if a.Redis != nil {
		dedup = notifier.NewRedisDeduper(a.Redis, a.Config.Redis.DedupTTL)
	}
	return notifier.NewWorker(
		a.Logger,
		storage.NewOrderRepository(a.DB),
		storage.NewCustomerRepository(a.DB),
		dedup,
		sender,
		notifier.PolicyFromConfig(a.Config.Notifier),
	).WithFallbackRecipient(a.Config.Notifier.RecipientEmail)
}

// NewDispatcher выбирает транспорт уведомлений по конфигу
func (a *App) NewDispatcher() (notifier.Dispatcher, error) {
	var worker *notifier.Worker
	if a.Config.Notifier.Driver == notifier.DriverInline || a.Config.Notifier.Driver == "" {
		worker = a.NewWorker(notifier.NewLogSender(a.Logger))
	}
	return notifier.New(a.Logger, a.Config.Notifier, worker)
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	_ = a.DB.Close()
}
