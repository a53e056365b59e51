package middleware

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/logger"
	"github.com/meinhoongagan/pt-buddy/utils"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// windowScript counts a hit and arms the window expiry in one step, so a key
// never outlives its window without a TTL.
var windowScript = goredis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return { count, ttl }
`)

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter limits requests per client IP. With a redis client it counts
// Burst requests per Window in a shared fixed window; otherwise, or when redis
// fails, it uses an in-process token bucket of RPS with Burst.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	r       rate.Limit
	burst   int
	window  time.Duration
	rdb     *goredis.Client
	prefix  string

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewRateLimiter starts a cleanup loop for idle clients; call Stop to end it.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *goredis.Client, prefix string) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		r:       rate.Limit(cfg.RPS),
		burst:   cfg.Burst,
		window:  cfg.Window,
		rdb:     rdb,
		prefix:  prefix,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if rl.window <= 0 {
		rl.window = time.Minute
	}
	go rl.cleanup(time.Minute)
	return rl
}

// cleanup drops clients idle for three intervals.
func (rl *RateLimiter) cleanup(every time.Duration) {
	defer close(rl.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, c := range rl.clients {
				if time.Since(c.seen) > 3*every {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	<-rl.done
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if c, ok := rl.clients[ip]; ok {
		c.seen = time.Now()
		return c.lim
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.clients[ip] = &client{lim: l, seen: time.Now()}
	return l
}

// allowShared returns ok=false when redis could not answer.
func (rl *RateLimiter) allowShared(c *fiber.Ctx, ip string) (allowed bool, retryAfter time.Duration, ok bool) {
	key := "rl:" + rl.prefix + ":" + ip
	ctx := c.UserContext()

	count, ttl, err := rl.hit(c, key)
	if err != nil {
		logger.WarnContext(ctx, "rate limit redis error, using local limiter", "key", key, "error", err)
		return false, 0, false
	}

	c.Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
	remaining := int64(rl.burst) - count
	if remaining < 0 {
		remaining = 0
	}
	c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	return count <= int64(rl.burst), ttl, true
}

func (rl *RateLimiter) hit(c *fiber.Ctx, key string) (int64, time.Duration, error) {
	vals, err := windowScript.Run(c.UserContext(), rl.rdb, []string{key}, rl.window.Milliseconds()).Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(vals) != 2 {
		return 0, 0, errors.New("unexpected rate limit script reply")
	}
	count, ok1 := vals[0].(int64)
	ttl, ok2 := vals[1].(int64)
	if !ok1 || !ok2 {
		return 0, 0, errors.New("unexpected rate limit script reply")
	}
	return count, time.Duration(ttl) * time.Millisecond, nil
}

func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if ip == "" {
			ip = "unknown"
		}

		var allowed bool
		retryAfter := rl.window
		handled := false
		if rl.rdb != nil {
			var ttl time.Duration
			allowed, ttl, handled = rl.allowShared(c, ip)
			if handled && ttl > 0 {
				retryAfter = ttl
			}
		}
		if !handled {
			allowed = rl.get(ip).Allow()
		}

		if !allowed {
			secs := int((retryAfter + time.Second - 1) / time.Second)
			c.Set("Retry-After", strconv.Itoa(secs))
			return utils.ErrorJSON(c, fiber.StatusTooManyRequests, "Too many requests, please try again later")
		}
		return c.Next()
	}
}
