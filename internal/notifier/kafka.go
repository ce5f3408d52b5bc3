package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/linemk/storefront/internal/metrics"
	"github.com/segmentio/kafka-go"
)

var ErrNoBrokers = errors.New("kafka brokers are not configured")

// KafkaPublisher пишет события в топик; ключ - id заказа
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}, nil
}

func (p *KafkaPublisher) Enqueue(ctx context.Context, orderID int64) error {
	record, err := newRecord(orderID)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	metrics.ObserveNotification(metrics.NotificationEnqueued)
	return nil
}

// newRecord строит запись топика; одинаковый ключ держит события заказа в одной партиции
func newRecord(orderID int64) (kafka.Message, error) {
	data, err := encodeMessage(orderID)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal message: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(orderID, 10)),
		Value: data,
		Time:  time.Now().UTC(),
	}, nil
}

func (p *KafkaPublisher) Close(_ context.Context) error {
	return p.writer.Close()
}

var _ Dispatcher = (*KafkaPublisher)(nil)

// KafkaConsumer читает топик в группе и коммитит смещение после обработки
type KafkaConsumer struct {
	log    *slog.Logger
	reader *kafka.Reader
	worker *Worker
}

func NewKafkaConsumer(log *slog.Logger, brokers []string, topic, groupID string, worker *Worker) (*KafkaConsumer, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	return &KafkaConsumer{log: log, reader: reader, worker: worker}, nil
}

func (c *KafkaConsumer) Run(ctx context.Context) error {
	const op = "notifier.KafkaConsumer.Run"
	logger := c.log.With(slog.String("op", op))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return fmt.Errorf("%s: fetch: %w", op, err)
		}

		if !settleRecord(ctx, logger, c.worker.Handle, c.reader, m) {
			return nil
		}
	}
}

type offsetCommitter interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// settleRecord обрабатывает запись и коммитит смещение. Если обработку прервала
// отмена ctx, смещение остаётся на месте и запись будет прочитана снова
func settleRecord(ctx context.Context, logger *slog.Logger, handle handleFunc, c offsetCommitter, m kafka.Message) bool {
	msg, err := decodeMessage(m.Value)
	if err != nil {
		logger.Error("bad message", slog.Any("error", err), slog.Int64("offset", m.Offset))
	} else if err := handle(ctx, msg); err != nil && ctx.Err() != nil {
		logger.Warn("delivery interrupted, offset not committed", slog.Int64("order_id", msg.OrderID), slog.Int64("offset", m.Offset))
		return false
	}

	if err := c.CommitMessages(ctx, m); err != nil {
		logger.Error("failed to commit offset", slog.Any("error", err))
	}
	return true
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
