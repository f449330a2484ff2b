package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy indicates another request holds the lock.
var ErrLockBusy = NewError(ErrConflict, "ya hay una operación en curso, intente de nuevo")

// Locker hands out short-lived distributed locks stored in Redis.
type Locker struct {
	client *redislock.Client
}

// NewLocker wraps a redis client. A nil client yields a no-op locker.
func NewLocker(rdb *redis.Client) *Locker {
	if rdb == nil {
		return &Locker{}
	}
	return &Locker{client: redislock.New(rdb)}
}

// Acquire obtains key for ttl without waiting. The returned release func is
// always safe to call.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	return l.obtain(ctx, key, ttl, nil)
}

// Wait is Acquire retrying every 50ms for up to wait.
func (l *Locker) Wait(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	const step = 50 * time.Millisecond
	retries := max(int(wait/step), 1)
	return l.obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(step), retries),
	})
}

func (l *Locker) obtain(ctx context.Context, key string, ttl time.Duration, opts *redislock.Options) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}
	lock, err := l.client.Obtain(ctx, key, ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return func() {}, ErrLockBusy
	}
	if err != nil {
		return func() {}, fmt.Errorf("lock %s: %w", key, err)
	}
	return func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}, nil
}

// CashCloseLockKey builds the lock key for one operator's closure of a day.
func CashCloseLockKey(day time.Time, userID int64) string {
	return fmt.Sprintf("naguara:lock:cashclose:%s:%d", day.Format(DateLayout), userID)
}

// FXRefreshLockKey is the lock key for refreshing the exchange rate.
const FXRefreshLockKey = "naguara:lock:fx:refresh"
