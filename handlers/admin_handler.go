package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/middleware"
)

func AdminListUsers(c *fiber.Ctx) error {
	profiles, err := store.ListProfiles(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(profiles)
}

type BanRequest struct {
	// BannedUntil nil means a permanent ban.
	BannedUntil *time.Time `json:"banned_until"`
}

func BanUser(c *fiber.Ctx) error {
	targetID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}
	adminID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	if targetID == adminID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You cannot ban yourself"})
	}

	var req BanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if req.BannedUntil != nil && req.BannedUntil.Before(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "banned_until must be in the future"})
	}

	affected, err := store.UpdateProfile(c.Context(), targetID, map[string]any{
		"is_banned":    true,
		"banned_until": req.BannedUntil,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to ban user"})
	}
	if affected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	return c.JSON(fiber.Map{"message": "User banned successfully"})
}

func UnbanUser(c *fiber.Ctx) error {
	targetID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	affected, err := store.UpdateProfile(c.Context(), targetID, map[string]any{
		"is_banned":    false,
		"banned_until": nil,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to unban user"})
	}
	if affected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	return c.JSON(fiber.Map{"message": "User unbanned successfully"})
}

type BadgeRequest struct {
	// Badge nil removes the badge.
	Badge *string `json:"badge" validate:"omitempty,oneof=head_admin moderator verified_seller"`
}

func SetBadge(c *fiber.Ctx) error {
	targetID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var req BadgeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	affected, err := store.UpdateProfile(c.Context(), targetID, map[string]any{"badge": req.Badge})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to set badge"})
	}
	if affected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	return c.JSON(fiber.Map{"message": "Badge updated successfully"})
}

func AdminDeleteProduct(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("productId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	affected, err := store.AdminDeleteProduct(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete product"})
	}
	if affected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func AdminDeleteRating(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("ratingId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid rating ID"})
	}

	affected, err := store.AdminDeleteRating(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete rating"})
	}
	if affected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Rating not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
