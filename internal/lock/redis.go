package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hazyhaar/sintesis/idgen"
)

// Compare-and-delete: only the holder of the token may release.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Compare-and-extend, used by the refresher while a long run holds the lock.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisConfig configures the cross-process lock.
type RedisConfig struct {
	Addr     string        `yaml:"redis_addr"`
	Password string        `yaml:"redis_password"`
	DB       int           `yaml:"redis_db"`
	Prefix   string        `yaml:"prefix"` // default "sintesis:lock:"
	TTL      time.Duration `yaml:"ttl"`    // default 10m, refreshed every TTL/3
	Wait     time.Duration `yaml:"wait"`   // default 2m; negative = fail fast
	Retry    time.Duration `yaml:"-"`      // poll interval, default 250ms
}

func (c *RedisConfig) defaults() {
	if c.Prefix == "" {
		c.Prefix = "sintesis:lock:"
	}
	if c.TTL <= 0 {
		c.TTL = 10 * time.Minute
	}
	if c.Wait == 0 {
		c.Wait = 2 * time.Minute
	}
	if c.Retry <= 0 {
		c.Retry = 250 * time.Millisecond
	}
}

// Redis is a cross-process Locker backed by a single Redis instance.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
	logger *slog.Logger
}

// NewRedis connects and pings Redis.
func NewRedis(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*Redis, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client, cfg: cfg, logger: logger}, nil
}

// Lock polls SET NX PX until acquired, the wait budget elapses, or ctx is
// done. While held, the key's TTL is refreshed in the background.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := r.cfg.Prefix + key
	token := idgen.New()

	var deadline time.Time
	if r.cfg.Wait > 0 {
		deadline = time.Now().Add(r.cfg.Wait)
	}
	for {
		ok, err := r.client.SetNX(ctx, k, token, r.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx %s: %w", k, err)
		}
		if ok {
			break
		}
		if deadline.IsZero() || time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s held elsewhere", ErrNotAcquired, k)
		}
		t := time.NewTimer(r.cfg.Retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
		case <-t.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.refresh(k, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() { r.release(k, token, stop, done) })
	}, nil
}

func (r *Redis) release(k, token string, stop chan struct{}, done <-chan struct{}) {
	close(stop)
	<-done
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, r.client, []string{k}, token).Err(); err != nil {
		r.logger.Warn("lock: redis release failed", "key", k, "error", err)
	}
}

func (r *Redis) refresh(k, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	tick := time.NewTicker(r.cfg.TTL / 3)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, err := refreshScript.Run(ctx, r.client, []string{k}, token, r.cfg.TTL.Milliseconds()).Int()
			cancel()
			if err != nil {
				r.logger.Warn("lock: redis refresh failed", "key", k, "error", err)
			} else if n == 0 {
				r.logger.Error("lock: redis lock lost", "key", k)
				return
			}
		}
	}
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
