package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/middleware"
	"github.com/kamaub/marketplace_api/models"
)

type RatingRequest struct {
	Rating   int     `json:"rating" validate:"required,min=1,max=5"`
	Comment  *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

func ListProductRatings(c *fiber.Ctx) error {
	productID, err := strconv.ParseInt(c.Params("productId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	ratings, err := store.RatingsForProduct(c.Context(), productID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch ratings"})
	}
	return c.JSON(ratings)
}

func ListSellerRatings(c *fiber.Ctx) error {
	sellerID, err := uuid.Parse(c.Params("sellerId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid seller ID"})
	}

	ratings, err := store.RatingsForSeller(c.Context(), sellerID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch ratings"})
	}
	return c.JSON(ratings)
}

func CreateProductRating(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	productID, err := strconv.ParseInt(c.Params("productId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var req RatingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if _, err := store.ProductByID(c.Context(), productID); err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch product"})
	}

	// One review per user per product.
	existing, err := store.RatingsForProduct(c.Context(), productID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch ratings"})
	}
	for _, r := range existing {
		if r.UserID == userID {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You have already reviewed this product"})
		}
	}

	rating := models.Rating{
		UserID:    userID,
		ProductID: &productID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		ImageURL:  req.ImageURL,
	}
	if err := store.InsertRating(c.Context(), &rating); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create rating"})
	}

	return c.Status(fiber.StatusCreated).JSON(rating)
}

func UpdateRating(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Params("ratingId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid rating ID"})
	}

	var req RatingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	patch := map[string]any{
		"rating":    req.Rating,
		"comment":   req.Comment,
		"image_url": req.ImageURL,
	}
	affected, err := store.UpdateRating(c.Context(), id, userID, patch)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update rating"})
	}
	if affected == 0 {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only edit your own review"})
	}

	return c.JSON(fiber.Map{"message": "Review updated successfully"})
}

func DeleteRating(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Params("ratingId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid rating ID"})
	}

	affected, err := store.DeleteRating(c.Context(), id, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete rating"})
	}
	if affected == 0 {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only delete your own review"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
