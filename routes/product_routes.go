package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/handlers"
	"github.com/kamaub/marketplace_api/middleware"
)

func ProductRoutes(app *fiber.App, profiles backend.Profiles) {
	api := app.Group("/api/v1")
	banGuard := middleware.BanGuard(profiles)

	products := api.Group("/products")
	products.Get("", handlers.ListProducts)
	products.Get("/:productId", handlers.GetProduct)
	products.Post("", middleware.Protected(), banGuard, handlers.CreateProduct)
	products.Put("/:productId", middleware.Protected(), banGuard, handlers.UpdateProduct)
	products.Delete("/:productId", middleware.Protected(), banGuard, handlers.DeleteProduct)

	seller := api.Group("/seller", middleware.Protected(), banGuard)
	seller.Get("/products", handlers.ListMyProducts)
}
