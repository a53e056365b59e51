package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/controllers"
	"github.com/meinhoongagan/pt-buddy/middleware"
)

// SetupMemberRoutes configures member management for trainers and the
// member's own read-only views.
func SetupMemberRoutes(app *fiber.App) {
	members := app.Group("/members", middleware.Protected(), middleware.TrainerOnly())
	members.Get("/", controllers.GetMembers)
	members.Post("/", controllers.CreateMember)
	members.Get("/:id", controllers.GetMember)
	members.Patch("/:id", controllers.UpdateMember)
	members.Delete("/:id", controllers.DeleteMember)

	memberships := app.Group("/memberships", middleware.Protected(), middleware.TrainerOnly())
	memberships.Get("/", controllers.GetMemberships)
	memberships.Post("/", controllers.CreateMembership)
	memberships.Patch("/:id", controllers.UpdateMembership)
	memberships.Delete("/:id", controllers.DeleteMembership)

	// guards sit on the routes: a group guard on /member would also match /members
	me := app.Group("/member")
	me.Get("/appointments", middleware.Protected(), middleware.MemberOnly(), controllers.GetMyAppointments)
	me.Get("/memberships", middleware.Protected(), middleware.MemberOnly(), controllers.GetMyMemberships)
}
