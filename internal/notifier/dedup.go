package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper не даёт отправить уведомление об одном заказе дважды при повторной доставке сообщения
type Deduper interface {
	// Claim возвращает false, если заказ уже занят другой доставкой
	Claim(ctx context.Context, orderID int64) (bool, error)
	// Release снимает отметку после неудачной отправки
	Release(ctx context.Context, orderID int64) error
}

type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func dedupKey(orderID int64) string {
	return fmt.Sprintf("notify:order:%d", orderID)
}

func (d *RedisDeduper) Claim(ctx context.Context, orderID int64) (bool, error) {
	return d.rdb.SetNX(ctx, dedupKey(orderID), "1", d.ttl).Result()
}

func (d *RedisDeduper) Release(ctx context.Context, orderID int64) error {
	return d.rdb.Del(ctx, dedupKey(orderID)).Err()
}

var _ Deduper = (*RedisDeduper)(nil)

// nopDeduper используется, когда Redis не настроен
type nopDeduper struct{}

func (nopDeduper) Claim(context.Context, int64) (bool, error) { return true, nil }
func (nopDeduper) Release(context.Context, int64) error       { return nil }
