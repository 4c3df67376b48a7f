package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/handlers"
	"github.com/kamaub/marketplace_api/middleware"
)

func UploadRoutes(app *fiber.App, profiles backend.Profiles) {
	api := app.Group("/api/v1")

	uploads := api.Group("/uploads", middleware.Protected(), middleware.BanGuard(profiles))
	uploads.Get("/signature", handlers.GenerateUploadSignature)
	uploads.Post("/images", handlers.UploadImage)
}
