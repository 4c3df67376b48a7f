package messaging

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/backend"
)

// UnreadAggregator keeps per-counterpart unread counts for one user.
// Every feed event addressed to the user triggers a full recount rather
// than an incremental patch; the recount is a read, so redundant triggers
// from other subscribers of the same rows are harmless.
type UnreadAggregator struct {
	msgs backend.Messages
	self uuid.UUID

	mu     sync.RWMutex
	counts map[uuid.UUID]int
	total  int
	gen    uint64
	closed bool

	sub      backend.Subscription
	onChange func()
}

// NewUnreadAggregator builds the aggregator for self. With self unresolved
// (uuid.Nil) it holds at empty and never queries or subscribes.
func NewUnreadAggregator(msgs backend.Messages, feed backend.Feed, self uuid.UUID, onChange func()) (*UnreadAggregator, error) {
	a := &UnreadAggregator{
		msgs:     msgs,
		self:     self,
		counts:   make(map[uuid.UUID]int),
		onChange: onChange,
	}
	if self == uuid.Nil {
		return a, nil
	}

	sub, err := feed.Subscribe(backend.TableMessages, backend.Filter{Column: "recipient_id", Equals: self.String()}, func(backend.Event) {
		if err := a.Invalidate(context.Background()); err != nil {
			log.Printf("messaging: unread recount for %s: %v", self, err)
		}
	})
	if err != nil {
		return nil, err
	}
	a.sub = sub
	return a, nil
}

// Invalidate recomputes the counts from a fresh query. Overlapping calls
// are resolved by generation: only the most recently issued query may
// commit, so a slow stale read never overwrites a fresher result.
func (a *UnreadAggregator) Invalidate(ctx context.Context) error {
	if a.self == uuid.Nil {
		return nil
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.gen++
	gen := a.gen
	a.mu.Unlock()

	senders, err := a.msgs.UnreadSenders(ctx, a.self)
	if err != nil {
		return err
	}
	counts := make(map[uuid.UUID]int, len(senders))
	for _, sender := range senders {
		counts[sender]++
	}
	total := len(senders)

	a.mu.Lock()
	if a.closed || gen != a.gen {
		a.mu.Unlock()
		return nil
	}
	a.counts = counts
	a.total = total
	a.mu.Unlock()

	if a.onChange != nil {
		a.onChange()
	}
	return nil
}

// Counts returns a snapshot; the sum of its values always equals Total.
func (a *UnreadAggregator) Counts() map[uuid.UUID]int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[uuid.UUID]int, len(a.counts))
	for id, n := range a.counts {
		out[id] = n
	}
	return out
}

func (a *UnreadAggregator) Total() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.total
}

func (a *UnreadAggregator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()
	if a.sub != nil {
		a.sub.Close()
	}
}
