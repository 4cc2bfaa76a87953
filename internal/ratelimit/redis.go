package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// The first hit of a window sets the expiry; later hits only count.
var fixedWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Redis is a fixed-window limiter shared by every replica.
type Redis struct {
	client    redis.Cmdable
	keyPrefix string
	rate      int
	window    time.Duration
}

func NewRedis(client redis.Cmdable, rate int, window time.Duration) *Redis {
	return &Redis{client: client, keyPrefix: "ratelimit:login:", rate: rate, window: window}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	if r.rate <= 0 {
		return true, nil
	}
	n, err := fixedWindow.Run(ctx, r.client, []string{r.keyPrefix + key}, r.window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n <= int64(r.rate), nil
}
