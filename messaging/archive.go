package messaging

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/backend"
)

// Notifier surfaces a one-shot user-visible notice (a toast on the web
// client).
type Notifier interface {
	Notify(title, body string)
}

// ArchiveCoordinator tracks which counterparts the user has archived and
// releases a conversation back to the inbox the moment that counterpart
// sends again. Archiving never swallows new messages.
type ArchiveCoordinator struct {
	archives backend.Archives
	self     uuid.UUID
	notifier Notifier

	mu     sync.Mutex
	set    map[uuid.UUID]struct{}
	closed bool

	sub      backend.Subscription
	onChange func()
}

func NewArchiveCoordinator(archives backend.Archives, feed backend.Feed, self uuid.UUID, notifier Notifier, onChange func()) (*ArchiveCoordinator, error) {
	c := &ArchiveCoordinator{
		archives: archives,
		self:     self,
		notifier: notifier,
		set:      make(map[uuid.UUID]struct{}),
		onChange: onChange,
	}

	sub, err := feed.Subscribe(backend.TableMessages, backend.Filter{Column: "recipient_id", Equals: self.String()}, c.handleEvent)
	if err != nil {
		return nil, err
	}
	c.sub = sub
	return c, nil
}

// Load fills the archived set from the store.
func (c *ArchiveCoordinator) Load(ctx context.Context) error {
	ids, err := c.archives.ArchivedIDs(ctx, c.self)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.set = make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		c.set[id] = struct{}{}
	}
	c.mu.Unlock()
	return nil
}

// Archive is idempotent; archiving an already-archived counterpart is a
// no-op at both store and local level.
func (c *ArchiveCoordinator) Archive(ctx context.Context, counterpart uuid.UUID) error {
	if err := c.archives.ArchiveConversation(ctx, c.self, counterpart); err != nil {
		return err
	}
	c.mu.Lock()
	c.set[counterpart] = struct{}{}
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *ArchiveCoordinator) Unarchive(ctx context.Context, counterpart uuid.UUID) error {
	if _, err := c.archives.UnarchiveConversation(ctx, c.self, counterpart); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.set, counterpart)
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *ArchiveCoordinator) ArchivedIDs() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uuid.UUID, 0, len(c.set))
	for id := range c.set {
		out = append(out, id)
	}
	return out
}

func (c *ArchiveCoordinator) IsArchived(counterpart uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.set[counterpart]
	return ok
}

func (c *ArchiveCoordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.sub.Close()
}

// handleEvent performs the automatic unarchive: membership is checked
// before issuing the delete, and a delete affecting zero rows (another
// client already released it) raises no notice. One message, at most one
// notice.
func (c *ArchiveCoordinator) handleEvent(e backend.Event) {
	if e.Kind != backend.Insert || e.Message == nil {
		return
	}
	sender := e.Message.SenderID

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	_, member := c.set[sender]
	c.mu.Unlock()
	if !member {
		return
	}

	affected, err := c.archives.UnarchiveConversation(context.Background(), c.self, sender)
	if err != nil {
		log.Printf("messaging: auto-unarchive %s for %s: %v", sender, c.self, err)
		return
	}

	c.mu.Lock()
	delete(c.set, sender)
	c.mu.Unlock()

	if affected > 0 && c.notifier != nil {
		c.notifier.Notify("Message from archived chat", "The conversation has been moved to your inbox.")
	}
	c.notify()
}

func (c *ArchiveCoordinator) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}
