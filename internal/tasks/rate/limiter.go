package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RateLimit struct {
	Window  time.Duration // e.g., 1 minute, 1 hour
	MaxJobs int           // max jobs per window, 0 disables the limit
}

type QueueConfig struct {
	Name      string
	RateLimit RateLimit
}

// slidingWindow trims the window, counts what is left and records the new
// job only when it fits, all in one round trip.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// QueueRateLimiter caps jobs per identifier within a sliding window.
type QueueRateLimiter struct {
	redis  redis.Scripter
	config QueueConfig
	now    func() time.Time
}

func NewQueueRateLimiter(client redis.Scripter, config QueueConfig) *QueueRateLimiter {
	return &QueueRateLimiter{
		redis:  client,
		config: config,
		now:    time.Now,
	}
}

func (qrl *QueueRateLimiter) key(identifier string) string {
	return fmt.Sprintf("queue_rate_limit:%s:%s", qrl.config.Name, identifier)
}

// Allow records a job for identifier and reports whether it is within the
// limit. Refused jobs are not recorded.
func (qrl *QueueRateLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	limit := qrl.config.RateLimit
	if limit.MaxJobs <= 0 || limit.Window <= 0 {
		return true, nil
	}

	now := qrl.now().UnixMilli()
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())
	allowed, err := slidingWindow.Run(ctx, qrl.redis,
		[]string{qrl.key(identifier)},
		now, limit.Window.Milliseconds(), limit.MaxJobs, member,
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis rate limit script error: %w", err)
	}
	return allowed == 1, nil
}
