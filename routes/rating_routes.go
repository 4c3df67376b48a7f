package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/handlers"
	"github.com/kamaub/marketplace_api/middleware"
)

func RatingRoutes(app *fiber.App, profiles backend.Profiles) {
	api := app.Group("/api/v1")
	banGuard := middleware.BanGuard(profiles)

	api.Get("/products/:productId/ratings", handlers.ListProductRatings)
	api.Get("/sellers/:sellerId/ratings", handlers.ListSellerRatings)
	api.Post("/products/:productId/ratings", middleware.Protected(), banGuard, handlers.CreateProductRating)

	ratings := api.Group("/ratings", middleware.Protected(), banGuard)
	ratings.Put("/:ratingId", handlers.UpdateRating)
	ratings.Delete("/:ratingId", handlers.DeleteRating)
}
