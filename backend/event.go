package backend

import (
	"sync"

	"github.com/kamaub/marketplace_api/models"
)

type Kind string

const (
	Insert Kind = "insert"
	Update Kind = "update"
	Delete Kind = "delete"
)

type Table string

const (
	TableMessages Table = "messages"
	TableProfiles Table = "profiles"
)

// Event is a row change, parsed into the typed row at the subscription
// boundary. Exactly one row pointer is set, matching Table.
type Event struct {
	Kind    Kind
	Table   Table
	Message *models.Message
	Profile *models.Profile
}

// Filter restricts a subscription to rows whose column equals a value,
// mirroring the hosted feed's "column=eq.value" syntax. The zero Filter
// matches everything on the table.
type Filter struct {
	Column string
	Equals string
}

type Handler func(Event)

// Matches reports whether the event passes the filter. Unknown columns
// never match; a malformed event is dropped here, not deeper in.
func (e Event) Matches(table Table, f Filter) bool {
	if e.Table != table {
		return false
	}
	if f.Column == "" {
		return true
	}
	switch e.Table {
	case TableMessages:
		if e.Message == nil {
			return false
		}
		switch f.Column {
		case "sender_id":
			return e.Message.SenderID.String() == f.Equals
		case "recipient_id":
			return e.Message.RecipientID.String() == f.Equals
		case "id":
			return e.Message.ID.String() == f.Equals
		}
	case TableProfiles:
		if e.Profile == nil {
			return false
		}
		if f.Column == "id" {
			return e.Profile.ID.String() == f.Equals
		}
	}
	return false
}

// Bus fans events out to local subscribers. Both store implementations
// publish through one; it is the in-process half of the change feed.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]*busSub
}

type busSub struct {
	bus     *Bus
	id      int
	table   Table
	filter  Filter
	handler Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]*busSub)}
}

func (b *Bus) Subscribe(table Table, filter Filter, handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	sub := &busSub{bus: b, id: b.next, table: table, filter: filter, handler: handler}
	b.subs[sub.id] = sub
	return sub, nil
}

// Publish delivers the event to every matching subscriber. Handlers run
// without the bus lock held, so they may publish or subscribe themselves.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	matched := make([]*busSub, 0, len(b.subs))
	for _, sub := range b.subs {
		if event.Matches(sub.table, sub.filter) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		sub.handler(event)
	}
}

func (s *busSub) Close() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
}
