package redis

import (
	"context"
	"strconv"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/taskflow/repository"
)

type rateCounter struct {
	client *redislib.Client
	prefix string
}

// NewRateCounter creates a fixed-window counter backed by INCR/EXPIRE.
// Keys look like <prefix><window_seconds>:<identifier>.
func NewRateCounter(client *redislib.Client, prefix string) repository.RateCounter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &rateCounter{
		client: client,
		prefix: prefix,
	}
}

// Hit counts one request. INCR and TTL go out in one MULTI; a key left without
// an expiry (first hit, or an earlier EXPIRE that never landed) gets one here.
func (r *rateCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := r.key(key, window)

	var (
		incr *redislib.IntCmd
		ttl  *redislib.DurationCmd
	)
	if _, err := r.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		incr = pipe.Incr(ctx, fullKey)
		ttl = pipe.TTL(ctx, fullKey)
		return nil
	}); err != nil {
		return 0, err
	}

	count := incr.Val()
	if ttl.Val() == -1 {
		if err := r.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (r *rateCounter) key(key string, window time.Duration) string {
	return r.prefix + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + key
}
