package reminders

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTickLockPrefix = "frogsy:reminders:tick:"
	defaultTickLockTTL    = 2 * time.Minute
	redisPingTimeout      = 5 * time.Second
)

var errMissingRedisClient = errors.New("redis client is required")

// RedisTickLock claims a minute with SET NX so only one replica dispatches it.
type RedisTickLock struct {
	client redis.Cmdable
	prefix string
	owner  string
	ttl    time.Duration
}

type RedisTickLockConfig struct {
	Client redis.Cmdable
	Prefix string
	TTL    time.Duration
}

func NewRedisTickLock(cfg RedisTickLockConfig) (*RedisTickLock, error) {
	if cfg.Client == nil {
		return nil, errMissingRedisClient
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = defaultTickLockPrefix
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTickLockTTL
	}
	owner, err := os.Hostname()
	if err != nil || owner == "" {
		owner = "frogsy"
	}
	return &RedisTickLock{client: cfg.Client, prefix: prefix, owner: owner, ttl: ttl}, nil
}

func (l *RedisTickLock) Acquire(ctx context.Context, minute time.Time) (bool, error) {
	return l.client.SetNX(ctx, l.key(minute), l.owner, l.ttl).Result()
}

func (l *RedisTickLock) key(minute time.Time) string {
	return l.prefix + minute.UTC().Format("200601021504")
}

// NewRedisClient connects to the redis URL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	options.PoolSize = 10
	options.MinIdleConns = 2
	options.MaxRetries = 3
	options.DialTimeout = 5 * time.Second
	options.ReadTimeout = 3 * time.Second
	options.WriteTimeout = 3 * time.Second
	options.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(options)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
