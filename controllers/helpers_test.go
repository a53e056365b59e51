package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/db"
	"github.com/meinhoongagan/pt-buddy/events"
	"github.com/meinhoongagan/pt-buddy/logger"
	"github.com/meinhoongagan/pt-buddy/mailer"
	"github.com/meinhoongagan/pt-buddy/middleware"
	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/meinhoongagan/pt-buddy/utils"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: html})
	return nil
}

type fakeBus struct {
	mu       sync.Mutex
	subjects []string
}

func (b *fakeBus) Publish(ctx context.Context, subject string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	return nil
}

func (b *fakeBus) Close() error { return nil }

func (b *fakeBus) published(subject string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

type testEnv struct {
	db   *gorm.DB
	app  *fiber.App
	mail *fakeMailer
	bus  *fakeBus
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()

	logger.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	config.Current = &config.Config{
		Server: config.ServerConfig{TimeZone: "UTC"},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			TokenTTL:   time.Hour,
			CookieName: "token",
		},
	}

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := gdb.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.DB = gdb

	env := &testEnv{db: gdb, mail: &fakeMailer{}, bus: &fakeBus{}}
	prevMailer, prevBus := mailer.Client, events.Bus
	mailer.Client = env.mail
	events.Bus = env.bus

	t.Cleanup(func() {
		clock = time.Now
		mailer.Client = prevMailer
		events.Bus = prevBus
		sqlDB.Close()
	})

	env.app = newTestApp()
	return env
}

func newTestApp() *fiber.App {
	app := fiber.New()

	auth := app.Group("/auth")
	auth.Post("/signup", Signup)
	auth.Post("/login", Login)
	auth.Get("/me", middleware.Protected(), Me)
	auth.Post("/reset-password/request", RequestPasswordReset)
	auth.Post("/reset-password/verify", VerifyPasswordReset)
	auth.Post("/reset-password/update", UpdatePassword)

	appointments := app.Group("/appointments", middleware.Protected(), middleware.TrainerOnly())
	appointments.Post("/", CreateAppointment)
	appointments.Patch("/:id", UpdateAppointment)
	appointments.Delete("/:id", DeleteAppointment)
	app.Patch("/memberships/:id", middleware.Protected(), middleware.TrainerOnly(), UpdateMembership)
	app.Post("/members", middleware.Protected(), middleware.TrainerOnly(), CreateMember)

	posts := app.Group("/community/posts")
	posts.Get("/", GetPosts)
	posts.Get("/:id", GetPost)
	posts.Post("/", middleware.Protected(), CreatePost)
	posts.Patch("/:id", middleware.Protected(), UpdatePost)
	posts.Delete("/:id", middleware.Protected(), DeletePost)
	posts.Post("/:id/comments", middleware.Protected(), CreateComment)
	posts.Post("/:id/likes", middleware.Protected(), LikePost)
	posts.Delete("/:id/likes", middleware.Protected(), UnlikePost)

	app.Get("/workouts", middleware.Protected(), GetWorkouts)
	app.Post("/workouts", middleware.Protected(), CreateWorkout)
	return app
}

func tokenFor(t *testing.T, id uint, role models.Role) string {
	t.Helper()
	token, err := utils.GenerateToken("test-secret", time.Hour, utils.SessionClaims{
		ID:    id,
		Email: "user@example.com",
		Name:  "Test User",
		Role:  string(role),
	})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return token
}

// call sends body as JSON and decodes the JSON answer into out when out is not nil.
func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}, out interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

func seedTrainer(t *testing.T, email, password string) *models.Trainer {
	t.Helper()
	hashed, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	trainer := &models.Trainer{Email: email, Password: hashed, Name: "Coach", Phone: "010-1111-2222", Role: models.RoleTrainer, IsActive: true}
	if err := db.DB.Create(trainer).Error; err != nil {
		t.Fatalf("create trainer: %v", err)
	}
	return trainer
}

func seedMember(t *testing.T, trainerID uint, email string) *models.Member {
	t.Helper()
	member := &models.Member{TrainerID: &trainerID, Name: "Kim", Phone: "010-3333-4444", IsActive: true}
	if email != "" {
		member.Email = &email
	}
	if err := db.DB.Create(member).Error; err != nil {
		t.Fatalf("create member: %v", err)
	}
	return member
}

func seedMembership(t *testing.T, memberID uint, total, remaining int) *models.Membership {
	t.Helper()
	m := &models.Membership{
		MemberID:          memberID,
		Type:              models.MembershipSession,
		TotalSessions:     &total,
		RemainingSessions: &remaining,
		StartDate:         time.Now().UTC(),
		IsActive:          true,
	}
	if err := db.DB.Create(m).Error; err != nil {
		t.Fatalf("create membership: %v", err)
	}
	return m
}
