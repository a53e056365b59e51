package routes

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/db"
	"github.com/meinhoongagan/pt-buddy/logger"
	"github.com/meinhoongagan/pt-buddy/utils"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupApp(t *testing.T) *config.Config {
	t.Helper()
	logger.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	cfg := &config.Config{
		Server:    config.ServerConfig{CORSOrigins: "*", TimeZone: "UTC"},
		Auth:      config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, CookieName: "token"},
		RateLimit: config.RateLimitConfig{RPS: 1, Burst: 10, Window: time.Minute},
	}
	config.Current = cfg

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := gdb.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.DB = gdb
	return cfg
}

func newApp(t *testing.T, cfg *config.Config) *fiber.App {
	t.Helper()
	app := NewApp(cfg)
	// stops the reset limiter's cleanup loop
	t.Cleanup(func() { _ = app.Shutdown() })
	return app
}

func TestHealth(t *testing.T) {
	app := newApp(t, setupApp(t))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["database"] != "ok" {
		t.Errorf("body = %v", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestRouteGuards(t *testing.T) {
	app := newApp(t, setupApp(t))

	member, _ := utils.GenerateToken("test-secret", time.Hour, utils.SessionClaims{ID: 1, Role: "member"})
	trainer, _ := utils.GenerateToken("test-secret", time.Hour, utils.SessionClaims{ID: 1, Role: "trainer"})

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous appointments", http.MethodGet, "/appointments", "", http.StatusUnauthorized},
		{"member on trainer route", http.MethodGet, "/appointments", member, http.StatusForbidden},
		{"trainer appointments", http.MethodGet, "/appointments", trainer, http.StatusOK},
		{"trainer members", http.MethodGet, "/members", trainer, http.StatusOK},
		{"member own appointments", http.MethodGet, "/member/appointments", member, http.StatusOK},
		{"trainer on member route", http.MethodGet, "/member/memberships", trainer, http.StatusForbidden},
		{"member reads recommendations", http.MethodGet, "/member-supplements", member, http.StatusOK},
		{"member cannot recommend", http.MethodPost, "/member-supplements", member, http.StatusForbidden},
		{"public board", http.MethodGet, "/community/posts", "", http.StatusOK},
		{"anonymous post", http.MethodPost, "/community/posts", "", http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
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

func TestResetRoutesAreRateLimited(t *testing.T) {
	cfg := setupApp(t)
	cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 1, Window: time.Minute}
	app := newApp(t, cfg)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/reset-password/request", nil)
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatal(err)
		}
		codes = append(codes, resp.StatusCode)
	}
	if codes[1] != http.StatusTooManyRequests {
		t.Errorf("statuses = %v, want the second to be 429", codes)
	}
}
