package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMarkConversationReadAffectedRows(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	recipient := uuid.New()
	sender := uuid.New()

	for i := 0; i < 2; i++ {
		msg := models.Message{SenderID: sender, RecipientID: recipient, Content: strPtr("m")}
		require.NoError(t, s.InsertMessage(ctx, &msg))
	}
	outbound := models.Message{SenderID: recipient, RecipientID: sender, Content: strPtr("reply")}
	require.NoError(t, s.InsertMessage(ctx, &outbound))

	affected, err := s.MarkConversationRead(ctx, recipient, sender)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	// Second pass touches nothing.
	affected, err = s.MarkConversationRead(ctx, recipient, sender)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	// The outbound message is the sender's problem, not ours.
	senders, err := s.UnreadSenders(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{recipient}, senders)
}

func TestMarkMessageReadPublishesOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	msg := models.Message{SenderID: uuid.New(), RecipientID: uuid.New(), Content: strPtr("m")}
	require.NoError(t, s.InsertMessage(ctx, &msg))

	var updates int
	sub, err := s.Subscribe(backend.TableMessages, backend.Filter{}, func(e backend.Event) {
		if e.Kind == backend.Update {
			updates++
		}
	})
	require.NoError(t, err)
	defer sub.Close()

	affected, err := s.MarkMessageRead(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.Equal(t, 1, updates)

	affected, err = s.MarkMessageRead(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
	assert.Equal(t, 1, updates)
}

func TestUpdateProfileNilClearsNullableColumns(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	id := uuid.New()
	until := time.Now().Add(time.Hour)

	require.NoError(t, s.CreateProfile(ctx, &models.Profile{
		ID:          id,
		Username:    "target",
		IsBanned:    true,
		BannedUntil: &until,
	}))

	affected, err := s.UpdateProfile(ctx, id, map[string]any{"is_banned": false, "banned_until": nil})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	p, err := s.ProfileByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, p.IsBanned)
	assert.Nil(t, p.BannedUntil)

	affected, err = s.UpdateProfile(ctx, uuid.New(), map[string]any{"is_banned": false})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestUpdateProfilePublishesProfileEvent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	id := uuid.New()
	require.NoError(t, s.CreateProfile(ctx, &models.Profile{ID: id, Username: "watched"}))

	var got *models.Profile
	sub, err := s.Subscribe(backend.TableProfiles, backend.Filter{Column: "id", Equals: id.String()}, func(e backend.Event) {
		got = e.Profile
	})
	require.NoError(t, err)
	defer sub.Close()

	_, err = s.UpdateProfile(ctx, id, map[string]any{"badge": "verified_seller"})
	require.NoError(t, err)

	require.NotNil(t, got)
	require.NotNil(t, got.Badge)
	assert.Equal(t, "verified_seller", *got.Badge)
}

func TestProductWritesAreSellerScoped(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seller := uuid.New()
	intruder := uuid.New()

	product := models.Product{Name: "Lamp", Price: 30, SellerID: seller}
	require.NoError(t, s.CreateProduct(ctx, &product))

	affected, err := s.UpdateProduct(ctx, product.ID, intruder, map[string]any{"price": 1.0})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	affected, err = s.UpdateProduct(ctx, product.ID, seller, map[string]any{"price": 25.0})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err := s.ProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, got.Price)

	affected, err = s.DeleteProduct(ctx, product.ID, intruder)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	affected, err = s.DeleteProduct(ctx, product.ID, seller)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, err = s.ProductByID(ctx, product.ID)
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestRatingsForSellerIncludesProductRatings(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seller := uuid.New()
	buyer := uuid.New()

	require.NoError(t, s.CreateProfile(ctx, &models.Profile{ID: buyer, Username: "buyer"}))

	product := models.Product{Name: "Chair", Price: 60, SellerID: seller}
	require.NoError(t, s.CreateProduct(ctx, &product))

	productRating := models.Rating{UserID: buyer, ProductID: &product.ID, Rating: 4}
	require.NoError(t, s.InsertRating(ctx, &productRating))

	sellerRating := models.Rating{UserID: buyer, RatedSellerID: &seller, Rating: 5}
	require.NoError(t, s.InsertRating(ctx, &sellerRating))

	got, err := s.RatingsForSeller(ctx, seller)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, "buyer", r.Author.Username)
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	user := uuid.New()
	other := uuid.New()

	require.NoError(t, s.ArchiveConversation(ctx, user, other))
	require.NoError(t, s.ArchiveConversation(ctx, user, other))

	ids, err := s.ArchivedIDs(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{other}, ids)

	// The archive belongs to one side only.
	ids, err = s.ArchivedIDs(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, ids)

	affected, err := s.UnarchiveConversation(ctx, user, other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = s.UnarchiveConversation(ctx, user, other)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}
