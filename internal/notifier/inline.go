package notifier

import (
	"context"
	"errors"
	"sync"

	"github.com/linemk/storefront/internal/metrics"
)

var ErrClosed = errors.New("notifier is closed")

// InlineDispatcher доставляет уведомления горутиной внутри процесса
type InlineDispatcher struct {
	worker *Worker

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	cancel context.CancelFunc
	ctx    context.Context
}

func NewInlineDispatcher(worker *Worker) *InlineDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &InlineDispatcher{worker: worker, ctx: ctx, cancel: cancel}
}

func (d *InlineDispatcher) Enqueue(_ context.Context, orderID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	msg := NewMessage(orderID)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.worker.Handle(d.ctx, msg)
	}()
	metrics.ObserveNotification(metrics.NotificationEnqueued)
	return nil
}

// Close ждёт текущие доставки; по истечении ctx прерывает их ожидание повторов
func (d *InlineDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

var _ Dispatcher = (*InlineDispatcher)(nil)
