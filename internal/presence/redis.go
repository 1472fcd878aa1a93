package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// retention bounds how long stale last-seen keys linger; well past the
// seven-day text fallback.
const retention = 14 * 24 * time.Hour

// Redis shares presence across server processes. Keys expire on their own,
// so a restart or an idle user costs nothing.
type Redis struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedis(addr string) *Redis {
	return &Redis{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		now: time.Now,
	}
}

func key(userID int) string {
	return fmt.Sprintf("presence:%d", userID)
}

func (r *Redis) Touch(ctx context.Context, userID int) error {
	ts := r.now().UTC().Format(time.RFC3339Nano)
	return r.rdb.Set(ctx, key(userID), ts, retention).Err()
}

func (r *Redis) LastSeen(ctx context.Context, userID int) (time.Time, error) {
	val, err := r.rdb.Get(ctx, key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, val)
}
