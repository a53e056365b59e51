package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/redis"
)

// Health reports whether the database (and redis, when configured) answer.
func Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.Map{"status": "ok", "database": "ok"}
	code := fiber.StatusOK

	sqlDB, err := conn(c).DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		status["status"] = "degraded"
		status["database"] = "unavailable"
		code = fiber.StatusServiceUnavailable
	}

	if redis.Client != nil {
		status["redis"] = "ok"
		if err := redis.Client.Ping(ctx).Err(); err != nil {
			status["status"] = "degraded"
			status["redis"] = "unavailable"
		}
	}

	return c.Status(code).JSON(status)
}
