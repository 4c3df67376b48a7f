package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/handlers"
	"github.com/kamaub/marketplace_api/middleware"
)

func ProfileRoutes(app *fiber.App, profiles backend.Profiles) {
	api := app.Group("/api/v1")

	profile := api.Group("/profile/me", middleware.Protected(), middleware.BanGuard(profiles))
	profile.Get("", handlers.GetMyProfile)
	profile.Put("/username", handlers.UpdateUsername)
	profile.Post("/avatar", handlers.UploadAvatar)

	api.Get("/users/head-admin", handlers.GetHeadAdmin)
	api.Get("/users/:userId", handlers.GetUserProfile)
}
