// Package messaging holds the realtime synchronization core: per-conversation
// message state, unread counts, and archived-conversation bookkeeping, each
// kept live by its own change-feed subscription. The components share no
// ordering between their subscriptions, so each converges on its own
// (dedup by id, full recounts).
package messaging

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/models"
)

// ConversationStore mirrors the message history between self and one
// counterpart. It lives only while that conversation is open on a client;
// Close must be called when the view goes away.
type ConversationStore struct {
	msgs        backend.Messages
	self        uuid.UUID
	counterpart uuid.UUID

	mu       sync.Mutex
	messages []models.Message
	index    map[uuid.UUID]int
	pending  map[uuid.UUID]models.Message
	loading  bool
	closed   bool

	sub      backend.Subscription
	unread   *UnreadAggregator
	onChange func()
}

// NewConversationStore subscribes before any fetch happens, so a message
// inserted between "fetch issued" and "rows returned" is still observed;
// Load deduplicates by id when the two paths deliver the same row.
func NewConversationStore(msgs backend.Messages, feed backend.Feed, self, counterpart uuid.UUID, onChange func()) (*ConversationStore, error) {
	s := &ConversationStore{
		msgs:        msgs,
		self:        self,
		counterpart: counterpart,
		index:       make(map[uuid.UUID]int),
		pending:     make(map[uuid.UUID]models.Message),
		loading:     true,
		onChange:    onChange,
	}

	sub, err := feed.Subscribe(backend.TableMessages, backend.Filter{}, s.handleEvent)
	if err != nil {
		return nil, err
	}
	s.sub = sub
	return s, nil
}

// BindUnread wires the aggregator whose cached counts a successful
// read-transition invalidates.
func (s *ConversationStore) BindUnread(agg *UnreadAggregator) {
	s.mu.Lock()
	s.unread = agg
	s.mu.Unlock()
}

// Load fetches the conversation history and merges it under the already
// established subscription. Live rows that raced ahead of the fetch are
// kept; fetched duplicates are dropped by id.
func (s *ConversationStore) Load(ctx context.Context) error {
	history, err := s.msgs.MessagesBetween(ctx, s.self, s.counterpart)
	if err != nil {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	live := s.messages
	s.messages = nil
	s.index = make(map[uuid.UUID]int)
	for i := range history {
		s.appendLocked(history[i])
	}
	for i := range live {
		s.appendLocked(live[i])
	}
	// Updates that raced the fetch arrived for ids the index did not
	// know yet; apply them now that the history is merged.
	for id, msg := range s.pending {
		if i, ok := s.index[id]; ok {
			s.messages[i] = msg
		}
	}
	s.pending = nil
	s.loading = false
	s.mu.Unlock()

	s.notify()
	return nil
}

// Messages returns a snapshot of the conversation, ascending by creation
// time with live arrivals appended.
func (s *ConversationStore) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *ConversationStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// MarkRead flips every unread inbound message in this conversation in one
// batch. Idempotent: a second call with nothing to flip touches no rows
// and triggers no recount.
func (s *ConversationStore) MarkRead(ctx context.Context) error {
	affected, err := s.msgs.MarkConversationRead(ctx, s.self, s.counterpart)
	if err != nil {
		log.Printf("messaging: mark conversation read %s/%s: %v", s.self, s.counterpart, err)
		return err
	}
	if affected > 0 {
		s.invalidateUnread(ctx)
	}
	return nil
}

// Close tears down the subscription. Events or fetch completions arriving
// afterwards are dropped, never written into defunct state.
func (s *ConversationStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.sub.Close()
}

func (s *ConversationStore) handleEvent(e backend.Event) {
	msg := e.Message
	if msg == nil || !msg.InConversation(s.self, s.counterpart) {
		return
	}

	switch e.Kind {
	case backend.Insert:
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if _, ok := s.index[msg.ID]; ok {
			s.mu.Unlock()
			return
		}
		s.appendLocked(*msg)
		// The conversation is on screen while this store exists, so an
		// inbound arrival is read immediately.
		needRead := msg.RecipientID == s.self && !msg.IsRead
		s.mu.Unlock()

		if needRead {
			if affected, err := s.msgs.MarkMessageRead(context.Background(), msg.ID); err != nil {
				log.Printf("messaging: mark message %s read: %v", msg.ID, err)
			} else if affected > 0 {
				s.invalidateUnread(context.Background())
			}
		}
		s.notify()

	case backend.Update:
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		i, ok := s.index[msg.ID]
		if !ok {
			if s.loading {
				s.pending[msg.ID] = *msg
			}
			s.mu.Unlock()
			return
		}
		s.messages[i] = *msg
		s.mu.Unlock()
		s.notify()
	}
}

func (s *ConversationStore) appendLocked(msg models.Message) {
	if _, ok := s.index[msg.ID]; ok {
		return
	}
	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
}

func (s *ConversationStore) invalidateUnread(ctx context.Context) {
	s.mu.Lock()
	agg := s.unread
	s.mu.Unlock()
	if agg == nil {
		return
	}
	if err := agg.Invalidate(ctx); err != nil {
		log.Printf("messaging: unread recount: %v", err)
	}
}

func (s *ConversationStore) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
