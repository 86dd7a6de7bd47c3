package repository

import (
	"context"
	"time"
)

// RateCounter counts hits per key in fixed windows. The window starts with the
// first hit for a key.
type RateCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}
