package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/controllers"
	"github.com/meinhoongagan/pt-buddy/middleware"
	"github.com/meinhoongagan/pt-buddy/models"
)

func SetupWorkoutRoutes(app *fiber.App) {
	workouts := app.Group("/workouts", middleware.Protected(),
		middleware.RequireRole(models.RoleMember, models.RoleTrainer, models.RoleAdmin))
	workouts.Get("/", controllers.GetWorkouts)
	workouts.Post("/", controllers.CreateWorkout)
	workouts.Patch("/:id", controllers.UpdateWorkout)
	workouts.Delete("/:id", controllers.DeleteWorkout)
}
