package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/handlers"
	"github.com/kamaub/marketplace_api/middleware"
)

func ChatRoutes(app *fiber.App, profiles backend.Profiles) {
	api := app.Group("/api/v1")

	chat := api.Group("/chat", middleware.Protected(), middleware.BanGuard(profiles))
	chat.Get("/users", handlers.ListChatUsers)
	chat.Get("/conversations/:counterpartId/messages", handlers.GetConversationMessages)
	chat.Post("/messages", handlers.SendMessage)
	chat.Post("/conversations/:counterpartId/read", handlers.MarkConversationRead)

	chat.Get("/archived", handlers.ListArchivedConversations)
	chat.Post("/conversations/:counterpartId/archive", handlers.ArchiveConversation)
	chat.Delete("/conversations/:counterpartId/archive", handlers.UnarchiveConversation)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(handlers.ServeWs))
}
