package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/linemk/storefront/internal/app"
	"github.com/linemk/storefront/internal/config"
	"github.com/linemk/storefront/internal/lib/logger"
	"github.com/linemk/storefront/internal/notifier"
	"github.com/pkg/errors"
)

// consumer читает события "заказ создан" из брокера
type consumer interface {
	Run(ctx context.Context) error
	Close() error
}

func main() {
	cfg := config.MustLoad()

	log := logger.SetupLogger(cfg.Env, logger.NewWriter(cfg.Log.File))
	log.Info("starting notifier", slog.String("env", cfg.Env), slog.String("driver", cfg.Notifier.Driver))

	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.Close()

	worker := application.NewWorker(notifier.NewLogSender(log))

	var c consumer
	switch cfg.Notifier.Driver {
	case notifier.DriverRabbitMQ:
		c, err = notifier.NewRabbitConsumer(log, cfg.Notifier.RabbitMQ.URL, worker)
	case notifier.DriverKafka:
		c, err = notifier.NewKafkaConsumer(log, cfg.Notifier.Kafka.Brokers, cfg.Notifier.Kafka.Topic, cfg.Notifier.Kafka.GroupID, worker)
	default:
		err = errors.Errorf("driver %q has no broker to consume from", cfg.Notifier.Driver)
	}
	if err != nil {
		log.Error("failed to initialize consumer", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize consumer"))
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Run(ctx); err != nil {
		log.Error("consumer stopped", slog.Any("error", err))
		return
	}
	log.Info("notifier gracefully stopped")
}
