package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/academic-standing/pkg/errors"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisClient is the subset of go-redis the locker needs.
type RedisClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisLocker is a Locker shared across API instances. The key expires after
// the TTL unless its holder is alive to extend it, so a crashed instance blocks
// a record for at most one TTL while a slow holder keeps its lease.
type RedisLocker struct {
	client RedisClient
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedisLocker constructs a RedisLocker.
func NewRedisLocker(client RedisClient, ttl, wait time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, ttl: ttl, wait: wait, retry: 25 * time.Millisecond, logger: logger}
}

// Acquire polls SET NX until the key is obtained or the wait budget is spent.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	if l.client == nil {
		return nil, errors.New("redis locker requires a client")
	}
	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	token := uuid.NewString()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire "+key)
		}
		if ok {
			return l.hold(key, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrLockTimeout.Code, appErrors.ErrLockTimeout.Status, "timed out waiting for "+key)
		case <-ticker.C:
		}
	}
}

// hold extends the lease every third of the TTL until the returned Release
// runs or the key turns out to belong to someone else.
func (l *RedisLocker) hold(key, token string) Release {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.keepAlive(ctx, key, token)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer releaseCancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("lock release failed", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

func (l *RedisLocker) keepAlive(ctx context.Context, key, token string) {
	interval := l.ttl / 3
	if interval <= 0 {
		interval = l.ttl
	}
	lease := l.ttl.Milliseconds()
	if lease < 1 {
		lease = 1
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		extendCtx, cancel := context.WithTimeout(ctx, interval)
		extended, err := extendScript.Run(extendCtx, l.client, []string{key}, token, lease).Int64()
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Warn("lock extend failed", zap.String("key", key), zap.Error(err))
			continue
		}
		if extended == 0 {
			l.logger.Warn("lock lost before release", zap.String("key", key))
			return
		}
	}
}
