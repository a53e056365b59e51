package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/cron"
	"github.com/meinhoongagan/pt-buddy/db"
	"github.com/meinhoongagan/pt-buddy/events"
	"github.com/meinhoongagan/pt-buddy/logger"
	"github.com/meinhoongagan/pt-buddy/mailer"
	"github.com/meinhoongagan/pt-buddy/redis"
	"github.com/meinhoongagan/pt-buddy/routes"
	"github.com/meinhoongagan/pt-buddy/storage"
)

func main() {
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	createAdmin := flag.Bool("create-admin", false, "create or promote the admin account from ADMIN_EMAIL/ADMIN_PASSWORD and exit")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	if err := db.Init(cfg); err != nil {
		fatal("database init failed", err)
	}

	if *migrate {
		if err := db.Migrate(db.DB); err != nil {
			fatal("migration failed", err)
		}
		logger.Info("migrations applied")
		return
	}
	if *createAdmin {
		admin, err := db.EnsureAdmin(db.DB, cfg.Auth.AdminEmail, cfg.Auth.AdminPass, cfg.Auth.AdminName)
		if err != nil {
			fatal("admin bootstrap failed", err)
		}
		logger.Info("admin account ready", "id", admin.ID, "email", admin.Email)
		return
	}

	if err := mailer.Init(ctx, cfg); err != nil {
		fatal("mailer init failed", err)
	}
	if err := storage.Init(ctx, cfg); err != nil {
		fatal("storage init failed", err)
	}
	if err := events.Init(cfg.NATS.URL); err != nil {
		fatal("events init failed", err)
	}
	defer events.Bus.Close()
	if err := redis.Init(ctx, cfg.Redis); err != nil {
		fatal("redis init failed", err)
	}
	defer redis.Close()

	if cfg.Cron.Enabled {
		scheduler, err := cron.StartCronJobs(db.DB, cfg.Cron, cfg.Location())
		if err != nil {
			fatal("cron init failed", err)
		}
		defer scheduler.Stop()
	}

	app := routes.NewApp(cfg)

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			logger.Error("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
