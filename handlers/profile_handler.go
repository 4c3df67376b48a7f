package handlers

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/middleware"
	"github.com/kamaub/marketplace_api/utils"
)

func GetMyProfile(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	profile, err := store.ProfileByID(c.Context(), userID)
	if errors.Is(err, backend.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}
	return c.JSON(profile)
}

// GetUserProfile is the public profile page behind a seller or chat
// counterpart.
func GetUserProfile(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	profile, err := store.ProfileByID(c.Context(), userID)
	if errors.Is(err, backend.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}
	return c.JSON(profile)
}

// GetHeadAdmin exposes the profile carrying the head_admin badge, used by
// clients to route support contact.
func GetHeadAdmin(c *fiber.Ctx) error {
	profile, err := store.ProfileByBadge(c.Context(), "head_admin")
	if errors.Is(err, backend.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No head admin configured"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch head admin"})
	}
	return c.JSON(fiber.Map{"id": profile.ID, "username": profile.Username})
}

type UpdateUsernameRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
}

func UpdateUsername(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req UpdateUsernameRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if existing, err := store.ProfileByUsername(c.Context(), req.Username); err == nil && existing.ID != userID {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Username is already taken"})
	} else if err != nil && !errors.Is(err, backend.ErrNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	affected, err := store.UpdateProfile(c.Context(), userID, map[string]any{"username": req.Username})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update username"})
	}
	if affected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	}

	return c.JSON(fiber.Map{"message": "Username updated successfully"})
}

// UploadAvatar stores the image in the avatars bucket and patches the
// profile with the returned public URL.
func UploadAvatar(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You must select an image to upload"})
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only .jpg, .jpeg, .png and .webp files are accepted"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read upload"})
	}
	defer file.Close()

	publicURL, err := blobs.Upload(c.Context(), "avatars", utils.ObjectPath(userID, ext), fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload avatar"})
	}

	if _, err := store.UpdateProfile(c.Context(), userID, map[string]any{"avatar_url": publicURL}); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save avatar"})
	}

	return c.JSON(fiber.Map{"avatar_url": publicURL})
}
