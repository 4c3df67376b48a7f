package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/backend"
	config "github.com/kamaub/marketplace_api/configs"
	"github.com/kamaub/marketplace_api/session"
)

func Protected() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(config.Config("JWT_SECRET")),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

// UserID extracts the authenticated user's ID from the JWT set by
// Protected.
func UserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	claims := token.Claims.(jwt.MapClaims)
	raw, _ := claims["user_id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	return id, nil
}

func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Locals("user").(*jwt.Token)
		claims := token.Claims.(jwt.MapClaims)
		isAdmin, _ := claims["is_admin"].(bool)

		if !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Admin access required",
			})
		}
		return c.Next()
	}
}

// BanGuard is the cross-cutting restriction gate: every protected route
// behind it answers with the restriction payload while the user is banned.
// An expired ban is corrected on the spot instead of gating forever on a
// stale flag.
func BanGuard(profiles backend.Profiles) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := UserID(c)
		if err != nil {
			return err
		}

		profile, err := profiles.ProfileByID(c.Context(), userID)
		if err != nil {
			// Profile may not exist yet for a fresh account; the
			// session layer creates it lazily.
			return c.Next()
		}

		now := time.Now()
		profile, err = session.ReconcileBan(c.Context(), profiles, profile, now)
		if err != nil {
			log.Printf("ban guard: reconcile for %s: %v", userID, err)
		}

		if session.Restricted(profile, now) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":        "Your access to this site has been restricted",
				"banned":       true,
				"banned_until": profile.BannedUntil,
			})
		}
		return c.Next()
	}
}
