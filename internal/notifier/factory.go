package notifier

import (
	"fmt"
	"log/slog"

	"github.com/linemk/storefront/internal/config"
)

// PolicyFromConfig переносит настройки повторов из конфига
func PolicyFromConfig(cfg config.NotifierConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
	}
}

// New выбирает транспорт по cfg.Driver. Для inline worker обязателен,
// для брокеров сообщения обрабатывает отдельный процесс cmd/notifier
func New(log *slog.Logger, cfg config.NotifierConfig, worker *Worker) (Dispatcher, error) {
	switch cfg.Driver {
	case DriverInline, "":
		if worker == nil {
			return nil, fmt.Errorf("inline notifier requires a worker")
		}
		return NewInlineDispatcher(worker), nil
	case DriverRabbitMQ:
		return NewRabbitPublisher(cfg.RabbitMQ.URL)
	case DriverKafka:
		return NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	default:
		log.Error("unknown notifier driver", slog.String("driver", cfg.Driver))
		return nil, fmt.Errorf("unknown notifier driver %q", cfg.Driver)
	}
}
