// Package backend defines the interface to the hosted datastore this
// application is a client of. Business logic only ever sees these
// interfaces; production wires backend/postgres, tests wire backend/memory.
package backend

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/models"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
// Callers must not conflate it with a permission rejection.
var ErrNotFound = errors.New("backend: not found")

type Users interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type Profiles interface {
	ProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ProfileByUsername(ctx context.Context, username string) (*models.Profile, error)
	ProfileByBadge(ctx context.Context, badge string) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	CreateProfile(ctx context.Context, profile *models.Profile) error
	// UpdateProfile applies a column patch and returns the number of rows
	// affected. A nil value in the patch clears the column.
	UpdateProfile(ctx context.Context, id uuid.UUID, patch map[string]any) (int64, error)
}

type Messages interface {
	// MessagesBetween returns the full conversation between a and b,
	// ordered by creation time ascending.
	MessagesBetween(ctx context.Context, a, b uuid.UUID) ([]models.Message, error)
	InsertMessage(ctx context.Context, msg *models.Message) error
	// MarkConversationRead flips every unread message addressed to
	// recipient from sender and returns how many rows it touched.
	MarkConversationRead(ctx context.Context, recipient, sender uuid.UUID) (int64, error)
	MarkMessageRead(ctx context.Context, id uuid.UUID) (int64, error)
	// UnreadSenders returns one sender ID per unread message addressed to
	// recipient; the caller reduces them into per-sender counts.
	UnreadSenders(ctx context.Context, recipient uuid.UUID) ([]uuid.UUID, error)
}

type Products interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	ProductByID(ctx context.Context, id int64) (*models.Product, error)
	ProductsBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	// UpdateProduct and DeleteProduct are scoped to the owning seller;
	// zero rows affected on an existing row means the caller does not own it.
	UpdateProduct(ctx context.Context, id int64, sellerID uuid.UUID, patch map[string]any) (int64, error)
	DeleteProduct(ctx context.Context, id int64, sellerID uuid.UUID) (int64, error)
	AdminDeleteProduct(ctx context.Context, id int64) (int64, error)
}

type Ratings interface {
	RatingsForProduct(ctx context.Context, productID int64) ([]models.Rating, error)
	// RatingsForSeller returns ratings left on any of the seller's
	// products as well as ratings addressed to the seller directly.
	RatingsForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Rating, error)
	InsertRating(ctx context.Context, rating *models.Rating) error
	UpdateRating(ctx context.Context, id int64, userID uuid.UUID, patch map[string]any) (int64, error)
	DeleteRating(ctx context.Context, id int64, userID uuid.UUID) (int64, error)
	AdminDeleteRating(ctx context.Context, id int64) (int64, error)
}

type Archives interface {
	ArchivedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// ArchiveConversation is an idempotent upsert.
	ArchiveConversation(ctx context.Context, userID, otherID uuid.UUID) error
	// UnarchiveConversation returns the rows removed; zero is a no-op,
	// not an error.
	UnarchiveConversation(ctx context.Context, userID, otherID uuid.UUID) (int64, error)
}

// Feed delivers row-change events. Events on one subscription arrive in
// commit order; nothing is guaranteed across subscriptions, so consumers
// must converge independently (dedup by id, full recounts).
type Feed interface {
	Subscribe(table Table, filter Filter, handler Handler) (Subscription, error)
}

type Subscription interface {
	// Close tears the subscription down; events already in flight may
	// still be delivered, but none after Close returns.
	Close()
}

// Blobs is the object store. Upload returns a public URL.
type Blobs interface {
	Upload(ctx context.Context, bucket, path string, contentType string, r io.Reader) (string, error)
}

// Session identifies the authenticated user behind a client connection.
type Session struct {
	UserID   uuid.UUID
	Email    string
	Username string
}

// Identity is the identity-provider surface. CurrentSession returns
// (nil, nil) for an anonymous client.
type Identity interface {
	CurrentSession(ctx context.Context) (*Session, error)
	// OnSessionChange registers a handler for sign-in, sign-out and
	// token-refresh events and returns its cancel func.
	OnSessionChange(handler func(*Session)) (cancel func())
}

// Store composes the row-level interfaces of the datastore.
type Store interface {
	Users
	Profiles
	Messages
	Products
	Ratings
	Archives
}
