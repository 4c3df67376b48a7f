package backend

import (
	"testing"

	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMatches(t *testing.T) {
	sender := uuid.New()
	recipient := uuid.New()
	msg := &models.Message{ID: uuid.New(), SenderID: sender, RecipientID: recipient}
	event := Event{Kind: Insert, Table: TableMessages, Message: msg}

	assert.True(t, event.Matches(TableMessages, Filter{}))
	assert.True(t, event.Matches(TableMessages, Filter{Column: "recipient_id", Equals: recipient.String()}))
	assert.True(t, event.Matches(TableMessages, Filter{Column: "sender_id", Equals: sender.String()}))
	assert.False(t, event.Matches(TableMessages, Filter{Column: "recipient_id", Equals: sender.String()}))
	assert.False(t, event.Matches(TableProfiles, Filter{}))
	assert.False(t, event.Matches(TableMessages, Filter{Column: "no_such_column", Equals: "x"}))

	// A messages event with no row never matches a column filter.
	empty := Event{Kind: Insert, Table: TableMessages}
	assert.True(t, empty.Matches(TableMessages, Filter{}))
	assert.False(t, empty.Matches(TableMessages, Filter{Column: "id", Equals: uuid.Nil.String()}))
}

func TestBusFiltering(t *testing.T) {
	bus := NewBus()
	target := uuid.New()

	var mine, all int
	subMine, err := bus.Subscribe(TableMessages, Filter{Column: "recipient_id", Equals: target.String()}, func(Event) { mine++ })
	require.NoError(t, err)
	defer subMine.Close()
	subAll, err := bus.Subscribe(TableMessages, Filter{}, func(Event) { all++ })
	require.NoError(t, err)
	defer subAll.Close()

	bus.Publish(Event{Kind: Insert, Table: TableMessages, Message: &models.Message{RecipientID: target}})
	bus.Publish(Event{Kind: Insert, Table: TableMessages, Message: &models.Message{RecipientID: uuid.New()}})

	assert.Equal(t, 1, mine)
	assert.Equal(t, 2, all)
}

func TestBusCloseStopsDelivery(t *testing.T) {
	bus := NewBus()

	calls := 0
	sub, err := bus.Subscribe(TableMessages, Filter{}, func(Event) { calls++ })
	require.NoError(t, err)

	bus.Publish(Event{Kind: Insert, Table: TableMessages, Message: &models.Message{}})
	sub.Close()
	bus.Publish(Event{Kind: Insert, Table: TableMessages, Message: &models.Message{}})

	assert.Equal(t, 1, calls)
}

// Handlers may publish or subscribe from inside a callback; the bus must
// not hold its lock across handler invocations.
func TestBusReentrantHandler(t *testing.T) {
	bus := NewBus()

	var updates int
	sub, err := bus.Subscribe(TableMessages, Filter{}, func(e Event) {
		if e.Kind == Insert {
			bus.Publish(Event{Kind: Update, Table: TableMessages, Message: e.Message})
		}
		if e.Kind == Update {
			updates++
		}
	})
	require.NoError(t, err)
	defer sub.Close()

	bus.Publish(Event{Kind: Insert, Table: TableMessages, Message: &models.Message{}})
	assert.Equal(t, 1, updates)
}
