package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/handlers"
	"github.com/kamaub/marketplace_api/middleware"
)

func AuthRoutes(app *fiber.App, profiles backend.Profiles) {
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", handlers.RegisterUser)
	auth.Post("/login", handlers.LoginUser)
	auth.Put("/password", middleware.Protected(), middleware.BanGuard(profiles), handlers.UpdatePassword)
}
