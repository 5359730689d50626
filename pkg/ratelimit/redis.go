package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// admitScript increments the window counter and starts its expiry on the first hit.
// Rejected attempts do not extend the window.
var admitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisLimiter shares fixed windows across instances through Redis counters.
type RedisLimiter struct {
	client redis.Scripter
	policy Policy
	prefix string
	now    func() time.Time
}

// NewRedisLimiter builds a Redis backed limiter. Keys are stored under prefix.
func NewRedisLimiter(client redis.Scripter, policy Policy, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit:booking:"
	}
	return &RedisLimiter{client: client, policy: policy.normalised(), prefix: prefix, now: time.Now}
}

// Admit counts an attempt for key.
func (l *RedisLimiter) Admit(ctx context.Context, key string) (Decision, error) {
	res, err := admitScript.Run(ctx, l.client, []string{l.prefix + key}, l.policy.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis admit %s: %w", key, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("redis admit %s: unexpected reply %v", key, res)
	}

	count, ttl := res[0], res[1]
	if ttl < 0 {
		ttl = l.policy.Window.Milliseconds()
	}
	resetAt := l.now().Add(time.Duration(ttl) * time.Millisecond)

	if count > int64(l.policy.Max) {
		return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}
	return Decision{Allowed: true, Remaining: l.policy.Max - int(count), ResetAt: resetAt}, nil
}
