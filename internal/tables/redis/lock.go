// Package redis holds the per-table reservation lock. Confirming a
// reservation takes the lock for the target table so two groups cannot be
// bound to it at once.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"browntable/internal/apperr"
)

// RedisLock is the locking surface the coordinator depends on.
type RedisLock interface {
	AcquireTableLock(ctx context.Context, tableNumber int, owner string) (bool, error)
	ReleaseTableLock(ctx context.Context, tableNumber int, owner string) error
}

type TableLock struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewTableLock(client *goredis.Client, ttl time.Duration) *TableLock {
	return &TableLock{client: client, ttl: ttl}
}

func lockKey(tableNumber int) string {
	return fmt.Sprintf("table_lock:%d", tableNumber)
}

// AcquireTableLock takes the table's lock for owner. It returns false when
// someone else already holds it; the TTL bounds how long a crashed holder
// can block the table.
func (l *TableLock) AcquireTableLock(ctx context.Context, tableNumber int, owner string) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(tableNumber), owner, l.ttl).Result()
	if err != nil {
		return false, apperr.Internal(err, "failed to acquire table lock")
	}
	return ok, nil
}

// ReleaseTableLock frees the lock, but only for the owner that holds it. A
// release after expiry is a no-op rather than an error.
func (l *TableLock) ReleaseTableLock(ctx context.Context, tableNumber int, owner string) error {
	key := lockKey(tableNumber)
	current, err := l.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return nil
	}
	if err != nil {
		return apperr.Internal(err, "failed to inspect table lock")
	}
	if current != owner {
		return apperr.Conflict("table lock held by another owner")
	}
	if err := l.client.Del(ctx, key).Err(); err != nil {
		return apperr.Internal(err, "failed to release table lock")
	}
	return nil
}
