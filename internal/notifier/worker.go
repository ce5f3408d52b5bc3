package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/metrics"
	"github.com/linemk/storefront/internal/storage"
)

// Worker доставляет одно уведомление: заказ -> получатель -> дедупликация -> отправка
type Worker struct {
	log       *slog.Logger
	orders    storage.OrderStorage
	customers storage.CustomerStorage
	dedup     Deduper
	sender    Sender
	policy    RetryPolicy
	fallback  string
}

// NewWorker; dedup == nil отключает дедупликацию
func NewWorker(log *slog.Logger, orders storage.OrderStorage, customers storage.CustomerStorage, dedup Deduper, sender Sender, policy RetryPolicy) *Worker {
	if dedup == nil {
		dedup = nopDeduper{}
	}
	return &Worker{
		log:       log,
		orders:    orders,
		customers: customers,
		dedup:     dedup,
		sender:    sender,
		policy:    policy,
	}
}

// WithFallbackRecipient задаёт адрес на случай, когда активного сотрудника нет
func (w *Worker) WithFallbackRecipient(email string) *Worker {
	w.fallback = email
	return w
}

// Process делает одну попытку. Отсутствующий заказ или получатель не повторяются
func (w *Worker) Process(ctx context.Context, msg Message) error {
	const op = "notifier.Worker.Process"
	logger := w.log.With(
		slog.String("op", op),
		slog.Int64("order_id", msg.OrderID),
		slog.String("event_id", msg.EventID),
	)

	order, err := w.orders.GetOrderByID(ctx, msg.OrderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Warn("order not found, notification skipped")
			return Permanent(fmt.Errorf("%s: %w", op, err))
		}
		return fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	recipient, err := w.customers.GetNotificationRecipient(ctx)
	if errors.Is(err, storage.ErrCustomerNotFound) && w.fallback != "" {
		recipient, err = &models.Customer{Email: w.fallback, IsActive: true}, nil
	}
	if err != nil {
		if errors.Is(err, storage.ErrCustomerNotFound) {
			logger.Warn("no staff recipient, notification skipped")
			return Permanent(fmt.Errorf("%s: no recipient: %w", op, err))
		}
		return fmt.Errorf("%s: failed to get recipient: %w", op, err)
	}

	claimed, err := w.dedup.Claim(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("%s: failed to claim notification: %w", op, err)
	}
	if !claimed {
		logger.Info("notification already sent")
		metrics.ObserveNotification(metrics.NotificationDuplicate)
		return nil
	}

	if err := w.sender.Send(ctx, recipient, order); err != nil {
		if relErr := w.dedup.Release(ctx, order.ID); relErr != nil {
			logger.Error("failed to release notification claim", slog.Any("error", relErr))
		}
		return fmt.Errorf("%s: failed to send: %w", op, err)
	}

	logger.Info("notification sent", slog.String("to", recipient.Email))
	metrics.ObserveNotification(metrics.NotificationSent)
	return nil
}

// Handle выполняет Process под политикой повторов. После последней неудачи
// уведомление отбрасывается и возвращается ошибка. При отмене ctx возвращается
// ошибка контекста, и решать судьбу сообщения должен транспорт
func (w *Worker) Handle(ctx context.Context, msg Message) error {
	err := w.policy.Do(ctx, func(ctx context.Context) error {
		return w.Process(ctx, msg)
	}, func(err error, next time.Duration) {
		w.log.Warn("notification attempt failed",
			slog.Int64("order_id", msg.OrderID),
			slog.Duration("retry_in", next),
			slog.Any("error", err),
		)
	})
	if err != nil && ctx.Err() != nil {
		w.log.Warn("notification interrupted", slog.Int64("order_id", msg.OrderID), slog.Any("error", err))
		return err
	}
	if err != nil {
		w.log.Error("notification dropped", slog.Int64("order_id", msg.OrderID), slog.Any("error", err))
		metrics.ObserveNotification(metrics.NotificationDropped)
	}
	return err
}
