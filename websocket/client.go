package websocket

import (
	"context"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/messaging"
	"github.com/kamaub/marketplace_api/models"
	"github.com/kamaub/marketplace_api/notifications"
	"github.com/kamaub/marketplace_api/session"
)

// inboundFrame is the union of every client-to-server message.
type inboundFrame struct {
	Type          string  `json:"type"`
	Visible       *bool   `json:"visible,omitempty"`
	Permission    string  `json:"permission,omitempty"`
	CounterpartID string  `json:"counterpart_id,omitempty"`
	RecipientID   string  `json:"recipient_id,omitempty"`
	Content       *string `json:"content,omitempty"`
	ImageURL      *string `json:"image_url,omitempty"`
}

type Client struct {
	hub  *Hub
	sess *backend.Session
	conn *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex

	visMu   sync.Mutex
	visible bool

	sctx         *session.Context
	profileWatch func()
	unread       *messaging.UnreadAggregator
	archive      *messaging.ArchiveCoordinator
	bridge       *notifications.Bridge

	convMu sync.Mutex
	conv   *messaging.ConversationStore
	convID uuid.UUID
}

// staticIdentity serves a session resolved once from the JWT handshake.
// The session cannot change mid-connection, so change callbacks never
// fire; profile mutations still reach the client through the feed watch.
type staticIdentity struct {
	sess *backend.Session
}

func (s staticIdentity) CurrentSession(ctx context.Context) (*backend.Session, error) {
	return s.sess, nil
}

func (s staticIdentity) OnSessionChange(fn func(*backend.Session)) (cancel func()) {
	return func() {}
}

func newClient(h *Hub, sess *backend.Session, conn *websocket.Conn) (*Client, error) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		hub:    h,
		sess:   sess,
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
	}

	c.sctx = session.NewContext(staticIdentity{sess: sess}, h.store, c.sendSession)
	if err := c.sctx.Start(ctx); err != nil {
		cancel()
		return nil, err
	}

	// An admin ban or badge change lands on the feed; the watch refreshes
	// the session context so this connection sees it without reconnecting.
	watch, err := session.WatchProfile(c.sctx, h.feed)
	if err != nil {
		c.sctx.Close()
		cancel()
		return nil, err
	}
	c.profileWatch = watch

	unread, err := messaging.NewUnreadAggregator(h.store, h.feed, sess.UserID, c.onUnreadChange)
	if err != nil {
		watch()
		c.sctx.Close()
		cancel()
		return nil, err
	}
	c.unread = unread

	archive, err := messaging.NewArchiveCoordinator(h.store, h.feed, sess.UserID,
		notifications.NotifierFunc(c.sendNotice), c.sendArchived)
	if err != nil {
		unread.Close()
		watch()
		c.sctx.Close()
		cancel()
		return nil, err
	}
	c.archive = archive

	c.bridge = notifications.NewBridge(
		senderFunc(c.sendDesktopNotification),
		c.isVisible,
		c.requestPermission,
	)

	if err := c.unread.Invalidate(ctx); err != nil {
		log.Printf("Initial unread count failed for %s: %v", sess.UserID, err)
	}
	if err := c.archive.Load(ctx); err != nil {
		log.Printf("Archive load failed for %s: %v", sess.UserID, err)
	}
	c.sendSession()

	return c, nil
}

type senderFunc func(n notifications.Notification)

func (f senderFunc) Send(n notifications.Notification) { f(n) }

// run is the read loop. It returns when the peer disconnects or sends
// a malformed frame.
func (c *Client) run() {
	for {
		var frame inboundFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			return
		}
		c.handle(frame)
	}
}

func (c *Client) handle(frame inboundFrame) {
	switch frame.Type {
	case "visibility":
		if frame.Visible != nil {
			c.setVisible(*frame.Visible)
		}
	case "permission":
		c.bridge.SetPermission(notifications.Permission(frame.Permission))
	case "request_permission":
		c.bridge.Request()
	case "open_conversation":
		c.openConversation(frame.CounterpartID)
	case "close_conversation":
		c.closeConversation()
	case "send":
		c.sendMessage(frame)
	case "mark_read":
		c.markRead()
	case "archive":
		c.setArchived(frame.CounterpartID, true)
	case "unarchive":
		c.setArchived(frame.CounterpartID, false)
	default:
		c.sendError("Unknown message type")
	}
}

func (c *Client) openConversation(rawID string) {
	counterpartID, err := uuid.Parse(rawID)
	if err != nil || counterpartID == c.sess.UserID {
		c.sendError("Invalid counterpart ID")
		return
	}

	c.convMu.Lock()
	if c.conv != nil {
		c.conv.Close()
		c.conv = nil
	}
	conv, err := messaging.NewConversationStore(c.hub.store, c.hub.feed, c.sess.UserID, counterpartID, c.sendConversation)
	if err != nil {
		c.convMu.Unlock()
		c.sendError("Failed to open conversation")
		return
	}
	conv.BindUnread(c.unread)
	c.conv = conv
	c.convID = counterpartID
	c.convMu.Unlock()

	if err := conv.Load(c.ctx); err != nil {
		c.sendError("Failed to load messages")
		return
	}
	c.sendConversation()
}

func (c *Client) closeConversation() {
	c.convMu.Lock()
	if c.conv != nil {
		c.conv.Close()
		c.conv = nil
		c.convID = uuid.Nil
	}
	c.convMu.Unlock()
}

func (c *Client) sendMessage(frame inboundFrame) {
	recipientID, err := uuid.Parse(frame.RecipientID)
	if err != nil || recipientID == c.sess.UserID {
		c.sendError("Invalid recipient ID")
		return
	}
	if frame.Content == nil && frame.ImageURL == nil {
		c.sendError("Message must have content or an image")
		return
	}
	if c.sctx.Restricted() {
		c.sendError("Your account is banned")
		return
	}

	msg := models.Message{
		SenderID:    c.sess.UserID,
		RecipientID: recipientID,
		Content:     frame.Content,
		ImageURL:    frame.ImageURL,
	}
	if err := c.hub.store.InsertMessage(c.ctx, &msg); err != nil {
		log.Printf("Failed to insert message from %s: %v", c.sess.UserID, err)
		c.sendError("Failed to send message")
	}
}

func (c *Client) markRead() {
	c.convMu.Lock()
	conv := c.conv
	c.convMu.Unlock()
	if conv == nil {
		return
	}
	if err := conv.MarkRead(c.ctx); err != nil {
		log.Printf("Mark read failed for %s: %v", c.sess.UserID, err)
	}
}

func (c *Client) setArchived(rawID string, archived bool) {
	counterpartID, err := uuid.Parse(rawID)
	if err != nil {
		c.sendError("Invalid counterpart ID")
		return
	}
	if archived {
		err = c.archive.Archive(c.ctx, counterpartID)
	} else {
		err = c.archive.Unarchive(c.ctx, counterpartID)
	}
	if err != nil {
		c.sendError("Failed to update archive")
	}
}

func (c *Client) teardown() {
	c.cancel()
	c.closeConversation()
	c.archive.Close()
	c.unread.Close()
	c.profileWatch()
	c.sctx.Close()
	c.conn.Close()
}

func (c *Client) setVisible(v bool) {
	c.visMu.Lock()
	c.visible = v
	c.visMu.Unlock()
}

func (c *Client) isVisible() bool {
	c.visMu.Lock()
	defer c.visMu.Unlock()
	return c.visible
}

// requestPermission asks the browser to show the permission prompt. The
// answer arrives asynchronously in a "permission" frame, so the current
// state is returned unchanged.
func (c *Client) requestPermission() notifications.Permission {
	c.send(map[string]any{"type": "request_permission"})
	return c.bridge.Permission()
}

// send serializes a frame to the peer. Feed callbacks and the read loop
// both write, so the write lock is required.
func (c *Client) send(frame any) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(frame); err != nil {
		log.Printf("Error sending frame to client %s: %v", c.sess.UserID, err)
	}
}

func (c *Client) sendError(msg string) {
	c.send(map[string]any{"type": "error", "message": msg})
}

func (c *Client) sendSession() {
	profile := c.sctx.Profile()
	c.send(map[string]any{
		"type":       "session",
		"profile":    profile,
		"restricted": c.sctx.Restricted(),
	})
}

func (c *Client) onUnreadChange() {
	counts := c.unread.Counts()
	wire := make(map[string]int, len(counts))
	total := 0
	for id, n := range counts {
		wire[id.String()] = n
		total += n
	}
	c.send(map[string]any{
		"type":   "unread",
		"counts": wire,
		"total":  total,
	})
	c.bridge.NotifyIfIncreased(total)
}

func (c *Client) sendArchived() {
	c.send(map[string]any{
		"type":         "archived",
		"archived_ids": c.archive.ArchivedIDs(),
	})
}

func (c *Client) sendNotice(title, body string) {
	c.send(map[string]any{
		"type":  "notice",
		"title": title,
		"body":  body,
	})
}

func (c *Client) sendDesktopNotification(n notifications.Notification) {
	c.send(map[string]any{
		"type":  "desktop_notification",
		"title": n.Title,
		"body":  n.Body,
	})
}

func (c *Client) sendConversation() {
	c.convMu.Lock()
	conv := c.conv
	counterpartID := c.convID
	c.convMu.Unlock()
	if conv == nil {
		return
	}
	c.send(map[string]any{
		"type":           "conversation",
		"counterpart_id": counterpartID,
		"loading":        conv.Loading(),
		"messages":       conv.Messages(),
	})
}
