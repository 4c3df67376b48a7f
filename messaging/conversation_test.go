package messaging

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/backend/memory"
	"github.com/kamaub/marketplace_api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestConversationStore_DedupFetchAndLive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	self := uuid.New()
	counterpart := uuid.New()

	first := models.Message{SenderID: self, RecipientID: counterpart, Content: strPtr("hello")}
	require.NoError(t, store.InsertMessage(ctx, &first))

	conv, err := NewConversationStore(store, store, self, counterpart, nil)
	require.NoError(t, err)
	defer conv.Close()

	// Arrives on the live path before the fetch completes, and will also
	// be part of the fetch result.
	second := models.Message{SenderID: counterpart, RecipientID: self, Content: strPtr("hi back")}
	require.NoError(t, store.InsertMessage(ctx, &second))

	require.NoError(t, conv.Load(ctx))

	messages := conv.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, first.ID, messages[0].ID)
	assert.Equal(t, second.ID, messages[1].ID)
	assert.False(t, conv.Loading())

	seen := make(map[uuid.UUID]int)
	for _, m := range messages {
		seen[m.ID]++
	}
	for id, n := range seen {
		assert.Equalf(t, 1, n, "message %s appears %d times", id, n)
	}
}

func TestConversationStore_MarkReadIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	self := uuid.New()
	counterpart := uuid.New()

	for i := 0; i < 3; i++ {
		msg := models.Message{SenderID: counterpart, RecipientID: self, Content: strPtr("ping")}
		require.NoError(t, store.InsertMessage(ctx, &msg))
	}

	changes := 0
	agg, err := NewUnreadAggregator(store, store, self, func() { changes++ })
	require.NoError(t, err)
	defer agg.Close()
	require.NoError(t, agg.Invalidate(ctx))
	require.Equal(t, 3, agg.Total())

	conv, err := NewConversationStore(store, store, self, counterpart, nil)
	require.NoError(t, err)
	defer conv.Close()
	conv.BindUnread(agg)
	require.NoError(t, conv.Load(ctx))

	require.NoError(t, conv.MarkRead(ctx))
	assert.Equal(t, 0, agg.Total())
	assert.Equal(t, 0, agg.Counts()[counterpart])

	// Nothing left to flip: no rows change, no recount fires.
	before := changes
	require.NoError(t, conv.MarkRead(ctx))
	assert.Equal(t, before, changes)
	assert.Equal(t, 0, agg.Total())
}

func TestConversationStore_LiveInboundMarkedReadWhileOpen(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	self := uuid.New()
	counterpart := uuid.New()

	agg, err := NewUnreadAggregator(store, store, self, nil)
	require.NoError(t, err)
	defer agg.Close()

	conv, err := NewConversationStore(store, store, self, counterpart, nil)
	require.NoError(t, err)
	defer conv.Close()
	conv.BindUnread(agg)
	require.NoError(t, conv.Load(ctx))

	msg := models.Message{SenderID: counterpart, RecipientID: self, Content: strPtr("hey")}
	require.NoError(t, store.InsertMessage(ctx, &msg))

	messages := conv.Messages()
	require.Len(t, messages, 1)
	assert.True(t, messages[0].IsRead)
	assert.Equal(t, 0, agg.Total())

	stored, err := store.MessagesBetween(ctx, self, counterpart)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].IsRead)
}

func TestConversationStore_IgnoresOtherConversations(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	self := uuid.New()
	counterpart := uuid.New()
	stranger := uuid.New()

	conv, err := NewConversationStore(store, store, self, counterpart, nil)
	require.NoError(t, err)
	defer conv.Close()
	require.NoError(t, conv.Load(ctx))

	msg := models.Message{SenderID: stranger, RecipientID: self, Content: strPtr("spam")}
	require.NoError(t, store.InsertMessage(ctx, &msg))

	assert.Empty(t, conv.Messages())
}

func TestConversationStore_CloseDropsLateEvents(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	self := uuid.New()
	counterpart := uuid.New()

	conv, err := NewConversationStore(store, store, self, counterpart, nil)
	require.NoError(t, err)
	require.NoError(t, conv.Load(ctx))

	conv.Close()

	msg := models.Message{SenderID: counterpart, RecipientID: self, Content: strPtr("too late")}
	require.NoError(t, store.InsertMessage(ctx, &msg))

	assert.Empty(t, conv.Messages())
}

// staleHistoryMessages serves a history snapshot frozen at construction,
// standing in for a fetch whose rows predate events already on the feed.
type staleHistoryMessages struct {
	backend.Messages
	history []models.Message
}

func (m *staleHistoryMessages) MessagesBetween(_ context.Context, _, _ uuid.UUID) ([]models.Message, error) {
	out := make([]models.Message, len(m.history))
	copy(out, m.history)
	return out, nil
}

func TestConversationStore_UpdateRacingInitialFetch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	self := uuid.New()
	counterpart := uuid.New()

	msg := models.Message{SenderID: counterpart, RecipientID: self, Content: strPtr("hey")}
	require.NoError(t, store.InsertMessage(ctx, &msg))

	stale, err := store.MessagesBetween(ctx, self, counterpart)
	require.NoError(t, err)
	msgs := &staleHistoryMessages{Messages: store, history: stale}

	conv, err := NewConversationStore(msgs, store, self, counterpart, nil)
	require.NoError(t, err)
	defer conv.Close()

	// The read transition reaches the feed before the fetched rows land.
	affected, err := store.MarkMessageRead(ctx, msg.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	require.NoError(t, conv.Load(ctx))

	messages := conv.Messages()
	require.Len(t, messages, 1)
	assert.True(t, messages[0].IsRead)
}

func TestConversationStore_InboundScenario(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	u1 := uuid.New()
	u2 := uuid.New()

	agg, err := NewUnreadAggregator(store, store, u1, nil)
	require.NoError(t, err)
	defer agg.Close()
	require.NoError(t, agg.Invalidate(ctx))

	msg := models.Message{SenderID: u2, RecipientID: u1, Content: strPtr("hi")}
	require.NoError(t, store.InsertMessage(ctx, &msg))

	assert.Equal(t, 1, agg.Counts()[u2])
	assert.Equal(t, 1, agg.Total())

	conv, err := NewConversationStore(store, store, u1, u2, nil)
	require.NoError(t, err)
	defer conv.Close()
	conv.BindUnread(agg)
	require.NoError(t, conv.Load(ctx))
	require.NoError(t, conv.MarkRead(ctx))

	messages := conv.Messages()
	require.Len(t, messages, 1)
	assert.True(t, messages[0].IsRead)
	assert.Equal(t, 0, agg.Counts()[u2])
	assert.Equal(t, 0, agg.Total())
}
