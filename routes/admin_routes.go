package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/handlers"
	"github.com/kamaub/marketplace_api/middleware"
)

func AdminRoutes(app *fiber.App, profiles backend.Profiles) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired(), middleware.BanGuard(profiles))

	users := admin.Group("/users")
	users.Get("", handlers.AdminListUsers)
	users.Post("/:userId/ban", handlers.BanUser)
	users.Post("/:userId/unban", handlers.UnbanUser)
	users.Put("/:userId/badge", handlers.SetBadge)

	admin.Delete("/products/:productId", handlers.AdminDeleteProduct)
	admin.Delete("/ratings/:ratingId", handlers.AdminDeleteRating)
}
