package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/controllers"
	"github.com/meinhoongagan/pt-buddy/middleware"
	"github.com/meinhoongagan/pt-buddy/redis"
)

// SetupAuthRoutes configures all authentication related routes
func SetupAuthRoutes(app *fiber.App) {
	auth := app.Group("/auth")

	// Public routes
	auth.Post("/signup", controllers.Signup)
	auth.Post("/login", controllers.Login)
	auth.Post("/logout", controllers.Logout)
	auth.Get("/check-email", controllers.CheckEmail)

	// Protected routes
	auth.Get("/me", middleware.Protected(), controllers.Me)
	auth.Post("/delete-account", middleware.Protected(), controllers.DeleteAccount)

	// Password reset, rate limited per client IP
	limiter := middleware.NewRateLimiter(config.Current.RateLimit, redis.Client, "reset")
	app.Hooks().OnShutdown(func() error {
		limiter.Stop()
		return nil
	})
	reset := auth.Group("/reset-password", limiter.Handler())
	reset.Post("/request", controllers.RequestPasswordReset)
	reset.Post("/verify", controllers.VerifyPasswordReset)
	reset.Post("/update", controllers.UpdatePassword)
}
