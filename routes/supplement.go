package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/controllers"
	"github.com/meinhoongagan/pt-buddy/middleware"
	"github.com/meinhoongagan/pt-buddy/models"
)

func SetupSupplementRoutes(app *fiber.App) {
	supplements := app.Group("/supplements", middleware.Protected(), middleware.TrainerOnly())
	supplements.Get("/", controllers.GetSupplements)
	supplements.Post("/", controllers.CreateSupplement)
	supplements.Get("/:id", controllers.GetSupplement)
	supplements.Patch("/:id", controllers.UpdateSupplement)
	supplements.Delete("/:id", controllers.DeleteSupplement)
	supplements.Post("/:id/image", controllers.UploadSupplementImage)

	anyone := middleware.RequireRole(models.RoleTrainer, models.RoleAdmin, models.RoleMember)

	recommendations := app.Group("/member-supplements", middleware.Protected())
	recommendations.Get("/", anyone, controllers.GetMemberSupplements)
	recommendations.Post("/", middleware.TrainerOnly(), controllers.RecommendSupplement)
	recommendations.Delete("/:id", middleware.TrainerOnly(), controllers.CancelRecommendation)

	logs := app.Group("/supplement-logs", middleware.Protected(), anyone)
	logs.Get("/", controllers.GetSupplementLogs)
	logs.Post("/", controllers.LogSupplement)
}
