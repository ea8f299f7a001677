package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/DRSN-tech/shop-backend/pkg/clients"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const orderScope = "orders"

// IdempotencyRepo хранит ключи идемпотентности оформления заказов в Redis.
// lock-ключ живёт, пока запрос обрабатывается, map-ключ связывает ключ с id созданного заказа.
type IdempotencyRepo struct {
	client *clients.RedisClient
	ttl    time.Duration
}

func NewIdempotencyRepo(client *clients.RedisClient, ttl time.Duration) *IdempotencyRepo {
	return &IdempotencyRepo{client: client, ttl: ttl}
}

func (i *IdempotencyRepo) TryLock(ctx context.Context, key string) (bool, error) {
	ok, err := i.client.Client.SetNX(ctx, i.lockKey(key), "1", i.ttl).Result()
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return ok, nil
}

func (i *IdempotencyRepo) Unlock(ctx context.Context, key string) error {
	if err := i.client.Client.Del(ctx, i.lockKey(key)).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (i *IdempotencyRepo) Remember(ctx context.Context, key string, orderID int64) error {
	if err := i.client.Client.Set(ctx, i.mapKey(key), strconv.FormatInt(orderID, 10), i.ttl).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (i *IdempotencyRepo) Recall(ctx context.Context, key string) (int64, bool, error) {
	val, err := i.client.Client.Get(ctx, i.mapKey(key)).Result()
	if errors.Is(err, r.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, e.Wrap(whereami.WhereAmI(), err)
	}

	orderID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, e.Wrap(whereami.WhereAmI(), fmt.Errorf("corrupted idempotency value %q: %w", val, err))
	}

	return orderID, true, nil
}

func (i *IdempotencyRepo) lockKey(key string) string {
	return fmt.Sprintf("idemp:%s:%s", orderScope, key)
}

func (i *IdempotencyRepo) mapKey(key string) string {
	return fmt.Sprintf("idemp:map:%s:%s", orderScope, key)
}
