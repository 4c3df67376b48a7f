package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/backend/memory"
	"github.com/kamaub/marketplace_api/handlers"
	"github.com/kamaub/marketplace_api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "routes-test-secret"

func newTestApp(t *testing.T, store *memory.Store) *fiber.App {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
	handlers.Init(store, nil)

	app := fiber.New()
	AuthRoutes(app, store)
	ProfileRoutes(app, store)
	ProductRoutes(app, store)
	RatingRoutes(app, store)
	AdminRoutes(app, store)
	ChatRoutes(app, store)
	UploadRoutes(app, store)
	return app
}

func signToken(t *testing.T, userID uuid.UUID, username string, admin bool) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id":  userID.String(),
		"username": username,
		"is_admin": admin,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string) *http.Response {
	t.Helper()
	var req *http.Request
	if method == fiber.MethodGet {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestBanGuardCoversProtectedRoutes(t *testing.T) {
	store := memory.NewStore()
	app := newTestApp(t, store)
	ctx := context.Background()

	bannedID := uuid.New()
	require.NoError(t, store.CreateProfile(ctx, &models.Profile{
		ID:       bannedID,
		Username: "banned-seller",
		IsBanned: true,
	}))
	token := signToken(t, bannedID, "banned-seller", false)

	adminID := uuid.New()
	require.NoError(t, store.CreateProfile(ctx, &models.Profile{
		ID:       adminID,
		Username: "banned-admin",
		IsAdmin:  true,
		IsBanned: true,
	}))
	adminToken := signToken(t, adminID, "banned-admin", true)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
	}{
		{"create product", fiber.MethodPost, "/api/v1/products", token},
		{"update product", fiber.MethodPut, "/api/v1/products/1", token},
		{"delete product", fiber.MethodDelete, "/api/v1/products/1", token},
		{"list own products", fiber.MethodGet, "/api/v1/seller/products", token},
		{"create rating", fiber.MethodPost, "/api/v1/products/1/ratings", token},
		{"update rating", fiber.MethodPut, "/api/v1/ratings/1", token},
		{"delete rating", fiber.MethodDelete, "/api/v1/ratings/1", token},
		{"own profile", fiber.MethodGet, "/api/v1/profile/me", token},
		{"update username", fiber.MethodPut, "/api/v1/profile/me/username", token},
		{"upload avatar", fiber.MethodPost, "/api/v1/profile/me/avatar", token},
		{"change password", fiber.MethodPut, "/api/v1/auth/password", token},
		{"upload signature", fiber.MethodGet, "/api/v1/uploads/signature", token},
		{"upload image", fiber.MethodPost, "/api/v1/uploads/images", token},
		{"list chat users", fiber.MethodGet, "/api/v1/chat/users", token},
		{"send message", fiber.MethodPost, "/api/v1/chat/messages", token},
		{"admin ban user", fiber.MethodPost, "/api/v1/admin/users/" + uuid.NewString() + "/ban", adminToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, app, tc.method, tc.path, tc.token)
			require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
			body := decodeBody(t, resp)
			assert.Equal(t, true, body["banned"])
		})
	}
}

func TestBanGuardExpiredBanClearsOnRequest(t *testing.T) {
	store := memory.NewStore()
	app := newTestApp(t, store)
	ctx := context.Background()

	userID := uuid.New()
	expired := time.Now().Add(-time.Hour)
	require.NoError(t, store.CreateProfile(ctx, &models.Profile{
		ID:          userID,
		Username:    "served-time",
		IsBanned:    true,
		BannedUntil: &expired,
	}))
	token := signToken(t, userID, "served-time", false)

	resp := doRequest(t, app, fiber.MethodDelete, "/api/v1/products/999", token)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	profile, err := store.ProfileByID(ctx, userID)
	require.NoError(t, err)
	assert.False(t, profile.IsBanned)
	assert.Nil(t, profile.BannedUntil)
}
