package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/controllers"
	"github.com/meinhoongagan/pt-buddy/middleware"
)

// SetupAppointmentRoutes configures the trainer's appointment routes
func SetupAppointmentRoutes(app *fiber.App) {
	appointment := app.Group("/appointments", middleware.Protected(), middleware.TrainerOnly())
	appointment.Get("/", controllers.GetAppointments)
	appointment.Post("/", controllers.CreateAppointment)
	appointment.Get("/:id", controllers.GetAppointment)
	appointment.Patch("/:id", controllers.UpdateAppointment)
	appointment.Delete("/:id", controllers.DeleteAppointment)
}
