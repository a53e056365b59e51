package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/logger"
	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/meinhoongagan/pt-buddy/utils"
	goredis "github.com/redis/go-redis/v9"
)

func setupConfig(t *testing.T) {
	t.Helper()
	logger.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	config.Current = &config.Config{
		Auth: config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, CookieName: "token"},
	}
}

func TestProtected(t *testing.T) {
	setupConfig(t)

	app := fiber.New()
	app.Get("/me", Protected(), func(c *fiber.Ctx) error {
		id, _ := c.Locals("userID").(uint)
		role, _ := c.Locals("role").(string)
		if id != 42 || role != "member" {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	valid, _ := utils.GenerateToken("test-secret", time.Hour, utils.SessionClaims{ID: 42, Role: "member"})
	expired, _ := utils.GenerateToken("test-secret", -time.Minute, utils.SessionClaims{ID: 42, Role: "member"})
	forged, _ := utils.GenerateToken("other-secret", time.Hour, utils.SessionClaims{ID: 42, Role: "member"})
	noRole, _ := utils.GenerateToken("test-secret", time.Hour, utils.SessionClaims{ID: 42})

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{"bearer header", "Bearer " + valid, "", http.StatusOK},
		{"session cookie", "", valid, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged, "", http.StatusUnauthorized},
		{"no role", "Bearer " + noRole, "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.Header.Set("Cookie", "token="+tt.cookie)
			}
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	setupConfig(t)

	tests := []struct {
		role  string
		guard fiber.Handler
		want  int
	}{
		{"trainer", TrainerOnly(), http.StatusOK},
		{"admin", TrainerOnly(), http.StatusOK},
		{"member", TrainerOnly(), http.StatusForbidden},
		{"member", MemberOnly(), http.StatusOK},
		{"trainer", MemberOnly(), http.StatusForbidden},
		{"", RequireRole(models.RoleAdmin), http.StatusForbidden},
	}
	for _, tt := range tests {
		app := fiber.New()
		role := tt.role
		app.Get("/", func(c *fiber.Ctx) error {
			c.Locals("role", role)
			return c.Next()
		}, tt.guard, func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != tt.want {
			t.Errorf("role %q: status = %d, want %d", tt.role, resp.StatusCode, tt.want)
		}
	}
}

func TestRateLimiterInProcess(t *testing.T) {
	setupConfig(t)

	limiter := NewRateLimiter(config.RateLimitConfig{RPS: 0.001, Burst: 2, Window: time.Minute}, nil, "test")
	t.Cleanup(limiter.Stop)
	app := fiber.New()
	app.Post("/reset", limiter.Handler(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/reset", nil), -1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != want {
			t.Fatalf("request %d: status = %d, want %d", i+1, resp.StatusCode, want)
		}
		if want == http.StatusTooManyRequests && resp.Header.Get("Retry-After") != "60" {
			t.Errorf("Retry-After = %q, want 60", resp.Header.Get("Retry-After"))
		}
	}
}

func newLimitedApp(t *testing.T, rdb *goredis.Client, burst int) *fiber.App {
	t.Helper()
	limiter := NewRateLimiter(config.RateLimitConfig{RPS: 0.001, Burst: burst, Window: time.Minute}, rdb, "test")
	t.Cleanup(limiter.Stop)
	app := fiber.New()
	app.Post("/reset", limiter.Handler(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func postReset(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/reset", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestRateLimiterSharedWindow(t *testing.T) {
	setupConfig(t)
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	app := newLimitedApp(t, rdb, 2)

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		resp := postReset(t, app)
		if resp.StatusCode != want {
			t.Fatalf("request %d: status = %d, want %d", i+1, resp.StatusCode, want)
		}
		if want == http.StatusTooManyRequests && resp.Header.Get("Retry-After") != "60" {
			t.Errorf("Retry-After = %q, want 60", resp.Header.Get("Retry-After"))
		}
	}

	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("keys = %v, want one window key", keys)
	}
	if ttl := mr.TTL(keys[0]); ttl <= 0 || ttl > time.Minute {
		t.Errorf("window ttl = %v, want within (0, 1m]", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if resp := postReset(t, app); resp.StatusCode != http.StatusOK {
		t.Errorf("after the window: status = %d, want 200", resp.StatusCode)
	}
}

func TestRateLimiterRestoresMissingTTL(t *testing.T) {
	setupConfig(t)
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	app := newLimitedApp(t, rdb, 1)

	postReset(t, app)
	key := mr.Keys()[0]
	// a window key left behind without expiry
	mr.Set(key, "1")
	if ttl := mr.TTL(key); ttl != 0 {
		t.Fatalf("ttl = %v, want none", ttl)
	}

	if resp := postReset(t, app); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if ttl := mr.TTL(key); ttl <= 0 {
		t.Fatalf("ttl = %v, want the window re-armed", ttl)
	}
	mr.FastForward(time.Minute + time.Second)
	if resp := postReset(t, app); resp.StatusCode != http.StatusOK {
		t.Errorf("after the window: status = %d, want 200", resp.StatusCode)
	}
}

func TestRateLimiterFallsBackWhenRedisFails(t *testing.T) {
	setupConfig(t)
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()
	app := newLimitedApp(t, rdb, 2)

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		if resp := postReset(t, app); resp.StatusCode != want {
			t.Fatalf("request %d: status = %d, want %d", i+1, resp.StatusCode, want)
		}
	}
}

func TestRateLimiterStop(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{RPS: 1, Burst: 1}, nil, "test")
	limiter.Stop()
	limiter.Stop()

	select {
	case <-limiter.done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop still running after Stop")
	}
}
