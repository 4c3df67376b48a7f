package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/catalog"
	"github.com/kamaub/marketplace_api/middleware"
	"github.com/kamaub/marketplace_api/models"
)

type ProductRequest struct {
	Name        string  `json:"name" validate:"required,min=2"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Image       string  `json:"image" validate:"required,url"`
	Info        string  `json:"info" validate:"required,min=10"`
	Category    string  `json:"category" validate:"required,min=2"`
	Description string  `json:"description" validate:"required,min=10"`
	Link        *string `json:"link,omitempty" validate:"omitempty,url"`
	Stock       *int    `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

// ListProducts serves the storefront: optional fuzzy search (q), category
// filter and sort, all applied in memory over the fetched rows.
func ListProducts(c *fiber.Ctx) error {
	products, err := store.ListProducts(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch products"})
	}

	products = catalog.FilterCategory(products, c.Query("category"))
	if q := c.Query("q"); q != "" {
		products = catalog.Search(products, q)
	} else {
		products = catalog.Sort(products, catalog.SortKey(c.Query("sort")))
	}

	return c.JSON(products)
}

func GetProduct(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("productId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	product, err := store.ProductByID(c.Context(), id)
	if errors.Is(err, backend.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch product"})
	}
	return c.JSON(product)
}

func ListMyProducts(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	products, err := store.ProductsBySeller(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch products"})
	}
	return c.JSON(products)
}

func CreateProduct(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	product := models.Product{
		Name:        req.Name,
		Price:       req.Price,
		Image:       req.Image,
		Info:        req.Info,
		Category:    req.Category,
		Description: req.Description,
		Link:        req.Link,
		Stock:       req.Stock,
		SellerID:    userID,
	}
	if err := store.CreateProduct(c.Context(), &product); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create product"})
	}

	return c.Status(fiber.StatusCreated).JSON(product)
}

func UpdateProduct(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Params("productId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var req ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	patch := map[string]any{
		"name":        req.Name,
		"price":       req.Price,
		"image":       req.Image,
		"info":        req.Info,
		"category":    req.Category,
		"description": req.Description,
		"link":        req.Link,
		"stock":       req.Stock,
	}

	affected, err := store.UpdateProduct(c.Context(), id, userID, patch)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update product"})
	}
	if affected == 0 {
		return productWriteRejected(c, id)
	}

	product, err := store.ProductByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch product"})
	}
	return c.JSON(product)
}

func DeleteProduct(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Params("productId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	affected, err := store.DeleteProduct(c.Context(), id, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete product"})
	}
	if affected == 0 {
		return productWriteRejected(c, id)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// productWriteRejected distinguishes "not yours" from "does not exist"
// when a seller-scoped mutation touched no rows.
func productWriteRejected(c *fiber.Ctx, id int64) error {
	if _, err := store.ProductByID(c.Context(), id); errors.Is(err, backend.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
	}
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not own this product"})
}
