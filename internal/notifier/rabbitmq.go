package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/linemk/storefront/internal/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName = "order.events"
	routingKey   = "order.created"
	queueName    = "order.created.q"
)

var ErrNotConfirmed = errors.New("publish not confirmed by broker")

// declareTopology объявляет exchange, очередь и привязку
func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, exchangeName, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}

// RabbitPublisher публикует события "order.created" с подтверждением брокера
type RabbitPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	mu   sync.Mutex
}

func NewRabbitPublisher(url string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareTopology(ch); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}
	return &RabbitPublisher{conn: conn, ch: ch}, nil
}

func (p *RabbitPublisher) Enqueue(ctx context.Context, orderID int64) error {
	body, err := encodeMessage(orderID)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, exchangeName, routingKey, false, false, pub)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait confirm: %w", err)
	}
	if !acked {
		return ErrNotConfirmed
	}
	metrics.ObserveNotification(metrics.NotificationEnqueued)
	return nil
}

func (p *RabbitPublisher) Close(_ context.Context) error {
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}

var _ Dispatcher = (*RabbitPublisher)(nil)

// RabbitConsumer читает очередь с ручным подтверждением и передаёт сообщения в Worker
type RabbitConsumer struct {
	log      *slog.Logger
	conn     *amqp.Connection
	ch       *amqp.Channel
	worker   *Worker
	Prefetch int
}

func NewRabbitConsumer(log *slog.Logger, url string, worker *Worker) (*RabbitConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareTopology(ch); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &RabbitConsumer{log: log, conn: conn, ch: ch, worker: worker, Prefetch: 10}, nil
}

// Run блокируется до отмены ctx или закрытия канала
func (c *RabbitConsumer) Run(ctx context.Context) error {
	const op = "notifier.RabbitConsumer.Run"
	logger := c.log.With(slog.String("op", op))

	if err := c.ch.Qos(c.Prefetch, 0, false); err != nil {
		return fmt.Errorf("%s: qos: %w", op, err)
	}
	msgs, err := c.ch.Consume(
		queueName,
		"",    // consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: consume: %w", op, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("%s: delivery channel closed", op)
			}
			if !settleDelivery(ctx, logger, c.worker.Handle, d, d.Body) {
				return nil
			}
		}
	}
}

// acknowledger - часть amqp.Delivery, нужная для подтверждения сообщения
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settleDelivery обрабатывает одно сообщение и подтверждает его. Сообщение, прерванное
// отменой ctx, возвращается в очередь, и тогда результат false: чтение надо остановить
func settleDelivery(ctx context.Context, logger *slog.Logger, handle handleFunc, d acknowledger, body []byte) bool {
	msg, err := decodeMessage(body)
	if err != nil {
		logger.Error("bad message", slog.Any("error", err), slog.String("body", string(body)))
		if err := d.Nack(false, false); err != nil {
			logger.Error("failed to nack", slog.Any("error", err))
		}
		return true
	}

	if err := handle(ctx, msg); err != nil && ctx.Err() != nil {
		logger.Warn("delivery interrupted, message requeued", slog.Int64("order_id", msg.OrderID))
		if err := d.Nack(false, true); err != nil {
			logger.Error("failed to nack", slog.Any("error", err))
		}
		return false
	}

	// успех или исчерпанные повторы
	if err := d.Ack(false); err != nil {
		logger.Error("failed to ack", slog.Any("error", err))
	}
	return true
}

func (c *RabbitConsumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}
