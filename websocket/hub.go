// Package websocket hosts the realtime runtime behind /ws. Each
// authenticated connection gets its own client with live conversation,
// unread and archive state wired to the change feed.
package websocket

import (
	"context"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/kamaub/marketplace_api/backend"
)

type Hub struct {
	store backend.Store
	feed  backend.Feed

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub(store backend.Store, feed backend.Feed) *Hub {
	return &Hub{
		store:   store,
		feed:    feed,
		clients: make(map[*Client]struct{}),
	}
}

// Serve runs the connection until the client disconnects. It must be
// called from the websocket handler goroutine.
func (h *Hub) Serve(sess *backend.Session, conn *websocket.Conn) {
	client, err := newClient(h, sess, conn)
	if err != nil {
		log.Printf("WebSocket setup failed for %s: %v", sess.UserID, err)
		_ = conn.WriteJSON(map[string]string{"type": "error", "message": "Failed to start session"})
		conn.Close()
		return
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	log.Printf("Client registered: %s", sess.UserID)

	client.run()

	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	client.teardown()
	log.Printf("Client unregistered: %s", sess.UserID)
}

// RecountAll forces a fresh unread recount for every connected client.
// The cron scheduler calls it as a safety net for events missed while
// the feed listener was reconnecting.
func (h *Hub) RecountAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.unread.Invalidate(context.Background()); err != nil {
			log.Printf("Unread recount failed for %s: %v", c.sess.UserID, err)
		}
	}
}

// ClientCount reports currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
