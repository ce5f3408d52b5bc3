package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/storefront/internal/domain/models"
)

// Транспорты, из которых выбирает config notifier.driver
const (
	DriverInline   = "inline"
	DriverRabbitMQ = "rabbitmq"
	DriverKafka    = "kafka"
)

// Message - событие "заказ создан", уходящее в транспорт
type Message struct {
	EventID    string    `json:"event_id"`
	OrderID    int64     `json:"order_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func NewMessage(orderID int64) Message {
	return Message{
		EventID:    uuid.NewString(),
		OrderID:    orderID,
		EnqueuedAt: time.Now().UTC(),
	}
}

var ErrBadMessage = errors.New("bad notification message")

func encodeMessage(orderID int64) ([]byte, error) {
	return json.Marshal(NewMessage(orderID))
}

// decodeMessage разбирает тело из брокера; сообщение без order_id не обрабатывается
func decodeMessage(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	if msg.OrderID <= 0 {
		return Message{}, fmt.Errorf("%w: missing order_id", ErrBadMessage)
	}
	return msg, nil
}

type handleFunc func(ctx context.Context, msg Message) error

// Dispatcher ставит уведомление о заказе в очередь и не ждёт доставки.
// Доставка at-least-once; ошибка означает только то, что постановка не удалась
type Dispatcher interface {
	Enqueue(ctx context.Context, orderID int64) error
	Close(ctx context.Context) error
}

// Sender доставляет уведомление получателю
type Sender interface {
	Send(ctx context.Context, recipient *models.Customer, order *models.Order) error
}

// LogSender пишет уведомление в лог; конкретный канал (email, sms) подключается снаружи
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, recipient *models.Customer, order *models.Order) error {
	s.log.Info("new order notification",
		slog.String("to", recipient.Email),
		slog.Int64("order_id", order.ID),
		slog.Int64("customer_id", order.CustomerID),
		slog.String("amount", order.Amount.StringFixed(2)),
		slog.String("phone_number", order.Details.PhoneNumber),
		slog.String("address", order.Details.Address),
	)
	return nil
}
