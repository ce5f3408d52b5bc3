package notifier

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy - ограниченное число повторов с экспоненциальной задержкой
type RetryPolicy struct {
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		b.InitialInterval = p.InitialBackoff
	}
	if p.MaxBackoff > 0 {
		b.MaxInterval = p.MaxBackoff
	}
	// общий срок ограничен числом попыток, а не временем
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// Do выполняет fn до успеха, исчерпания повторов, отмены ctx
// или ошибки, помеченной Permanent
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error, notify func(err error, next time.Duration)) error {
	op := func() error {
		return fn(ctx)
	}
	if notify == nil {
		return backoff.Retry(op, p.backOff(ctx))
	}
	return backoff.RetryNotify(op, p.backOff(ctx), notify)
}

// Permanent помечает ошибку как неповторяемую
func Permanent(err error) error {
	return backoff.Permanent(err)
}
