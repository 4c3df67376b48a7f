package handlers

import (
	"log"

	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/catalog"
	"github.com/kamaub/marketplace_api/middleware"
	"github.com/kamaub/marketplace_api/models"
	"github.com/kamaub/marketplace_api/websocket"
)

// Hub is the realtime hub the websocket endpoint serves. main wires it.
var Hub *websocket.Hub

// ListChatUsers is the chat directory: everyone except the caller,
// optionally fuzzy-filtered by username.
func ListChatUsers(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	profiles, err := store.ListProfiles(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch users"})
	}

	others := make([]models.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.ID != userID {
			others = append(others, p)
		}
	}
	others = catalog.SearchProfiles(others, c.Query("q"))

	return c.JSON(others)
}

func GetConversationMessages(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	counterpartID, err := uuid.Parse(c.Params("counterpartId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid counterpart ID"})
	}

	messages, err := store.MessagesBetween(c.Context(), userID, counterpartID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch messages"})
	}
	return c.JSON(messages)
}

type SendMessageRequest struct {
	RecipientID string  `json:"recipient_id" validate:"required,uuid"`
	Content     *string `json:"content,omitempty" validate:"omitempty,max=4000"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

func SendMessage(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Content == nil && req.ImageURL == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Message must have content or an image"})
	}

	recipientID, _ := uuid.Parse(req.RecipientID)
	if recipientID == userID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You cannot message yourself"})
	}

	msg := models.Message{
		SenderID:    userID,
		RecipientID: recipientID,
		Content:     req.Content,
		ImageURL:    req.ImageURL,
	}
	if err := store.InsertMessage(c.Context(), &msg); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to send message"})
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}

func MarkConversationRead(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	counterpartID, err := uuid.Parse(c.Params("counterpartId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid counterpart ID"})
	}

	affected, err := store.MarkConversationRead(c.Context(), userID, counterpartID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark messages as read"})
	}
	return c.JSON(fiber.Map{"updated": affected})
}

func ListArchivedConversations(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	ids, err := store.ArchivedIDs(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch archived conversations"})
	}
	return c.JSON(fiber.Map{"archived_ids": ids})
}

func ArchiveConversation(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	counterpartID, err := uuid.Parse(c.Params("counterpartId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid counterpart ID"})
	}

	if err := store.ArchiveConversation(c.Context(), userID, counterpartID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to archive conversation"})
	}
	return c.JSON(fiber.Map{"message": "Conversation archived"})
}

func UnarchiveConversation(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	counterpartID, err := uuid.Parse(c.Params("counterpartId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid counterpart ID"})
	}

	if _, err := store.UnarchiveConversation(c.Context(), userID, counterpartID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to unarchive conversation"})
	}
	return c.JSON(fiber.Map{"message": "Conversation moved back to inbox"})
}

// ServeWs authenticates the websocket connection with a first auth frame
// and hands it to the hub, which owns the per-connection realtime runtime.
func ServeWs(c *websocketcontrib.Conn) {
	type AuthMessage struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	var authMsg AuthMessage
	if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
		log.Printf("WebSocket auth failed: invalid or missing auth message: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	claims, err := ParseToken(authMsg.Token)
	if err != nil {
		log.Printf("WebSocket auth failed: invalid token: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}

	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		log.Printf("WebSocket auth failed: invalid user_id %q: %v", rawID, err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid user ID"})
		c.Close()
		return
	}
	username, _ := claims["username"].(string)

	sess := &backend.Session{UserID: userID, Username: username}
	Hub.Serve(sess, c)
}
