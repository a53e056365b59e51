package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/controllers"
	"github.com/meinhoongagan/pt-buddy/middleware"
)

// SetupCommunityRoutes configures the board. Reading is public.
func SetupCommunityRoutes(app *fiber.App) {
	community := app.Group("/community")

	posts := community.Group("/posts")
	posts.Get("/", controllers.GetPosts)
	posts.Get("/:id", controllers.GetPost)
	posts.Get("/:id/comments", controllers.GetComments)
	posts.Post("/", middleware.Protected(), controllers.CreatePost)
	posts.Patch("/:id", middleware.Protected(), controllers.UpdatePost)
	posts.Delete("/:id", middleware.Protected(), controllers.DeletePost)
	posts.Post("/:id/comments", middleware.Protected(), controllers.CreateComment)
	posts.Post("/:id/likes", middleware.Protected(), controllers.LikePost)
	posts.Delete("/:id/likes", middleware.Protected(), controllers.UnlikePost)

	comments := community.Group("/comments", middleware.Protected())
	comments.Patch("/:id", controllers.UpdateComment)
	comments.Delete("/:id", controllers.DeleteComment)
	comments.Post("/:id/likes", controllers.LikeComment)
	comments.Delete("/:id/likes", controllers.UnlikeComment)
}
