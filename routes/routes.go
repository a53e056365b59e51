package routes

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/controllers"
	"github.com/meinhoongagan/pt-buddy/logger"
	"github.com/meinhoongagan/pt-buddy/utils"
)

// NewApp builds the fiber app with the global middleware stack and every route.
func NewApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "pt-buddy",
		BodyLimit:    6 << 20,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(func(c *fiber.Ctx) error {
		if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
			c.SetUserContext(context.WithValue(c.UserContext(), logger.RequestIDKey, id))
		}
		return c.Next()
	})
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowCredentials: cfg.Server.CORSOrigins != "*",
	}))

	app.Get("/health", controllers.Health)
	SetupAuthRoutes(app)
	SetupMemberRoutes(app)
	SetupAppointmentRoutes(app)
	SetupSupplementRoutes(app)
	SetupWorkoutRoutes(app)
	SetupCommunityRoutes(app)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.ErrorJSON(c, fe.Code, fe.Message)
	}
	return utils.InternalError(c, "unhandled error", err)
}
