// Package memory is an in-memory backend.Store used by tests and local
// development. Writes publish change-feed events synchronously, which makes
// interleavings deterministic under test.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/models"
)

type Store struct {
	mu sync.RWMutex

	users    map[uuid.UUID]models.User
	profiles map[uuid.UUID]models.Profile
	messages []models.Message
	products map[int64]models.Product
	ratings  map[int64]models.Rating
	archived map[archiveKey]models.ArchivedConversation

	nextProductID int64
	nextRatingID  int64

	bus *backend.Bus
	now func() time.Time
}

type archiveKey struct {
	userID uuid.UUID
	other  uuid.UUID
}

func NewStore() *Store {
	return &Store{
		users:    make(map[uuid.UUID]models.User),
		profiles: make(map[uuid.UUID]models.Profile),
		products: make(map[int64]models.Product),
		ratings:  make(map[int64]models.Rating),
		archived: make(map[archiveKey]models.ArchivedConversation),
		bus:      backend.NewBus(),
		now:      time.Now,
	}
}

var _ backend.Store = (*Store)(nil)
var _ backend.Feed = (*Store)(nil)

func (s *Store) Subscribe(table backend.Table, filter backend.Filter, handler backend.Handler) (backend.Subscription, error) {
	return s.bus.Subscribe(table, filter, handler)
}

// users

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = s.now()
	s.users[user.ID] = *user
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, backend.ErrNotFound
}

func (s *Store) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return backend.ErrNotFound
	}
	u.Password = hash
	s.users[id] = u
	return nil
}

// profiles

func (s *Store) ProfileByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ProfileByUsername(_ context.Context, username string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.Username == username {
			profile := p
			return &profile, nil
		}
	}
	return nil, backend.ErrNotFound
}

func (s *Store) ProfileByBadge(_ context.Context, badge string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.Badge != nil && *p.Badge == badge {
			profile := p
			return &profile, nil
		}
	}
	return nil, backend.ErrNotFound
}

func (s *Store) ListProfiles(_ context.Context) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) CreateProfile(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile.CreatedAt = s.now()
	profile.UpdatedAt = profile.CreatedAt
	s.profiles[profile.ID] = *profile
	return nil
}

func (s *Store) UpdateProfile(_ context.Context, id uuid.UUID, patch map[string]any) (int64, error) {
	s.mu.Lock()
	p, ok := s.profiles[id]
	if !ok {
		s.mu.Unlock()
		return 0, nil
	}
	for column, value := range patch {
		switch column {
		case "username":
			p.Username = value.(string)
		case "avatar_url":
			p.AvatarURL = asStringPtr(value)
		case "badge":
			p.Badge = asStringPtr(value)
		case "is_admin":
			p.IsAdmin = value.(bool)
		case "is_banned":
			p.IsBanned = value.(bool)
		case "banned_until":
			p.BannedUntil = asTimePtr(value)
		}
	}
	p.UpdatedAt = s.now()
	s.profiles[id] = p
	s.mu.Unlock()

	row := p
	s.bus.Publish(backend.Event{Kind: backend.Update, Table: backend.TableProfiles, Profile: &row})
	return 1, nil
}

// messages

func (s *Store) MessagesBetween(_ context.Context, a, b uuid.UUID) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Message
	for _, m := range s.messages {
		if m.InConversation(a, b) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	s.messages = append(s.messages, *msg)
	s.mu.Unlock()

	row := *msg
	s.bus.Publish(backend.Event{Kind: backend.Insert, Table: backend.TableMessages, Message: &row})
	return nil
}

func (s *Store) MarkConversationRead(_ context.Context, recipient, sender uuid.UUID) (int64, error) {
	s.mu.Lock()
	var updated []models.Message
	for i := range s.messages {
		m := &s.messages[i]
		if m.RecipientID == recipient && m.SenderID == sender && !m.IsRead {
			m.IsRead = true
			updated = append(updated, *m)
		}
	}
	s.mu.Unlock()

	for i := range updated {
		row := updated[i]
		s.bus.Publish(backend.Event{Kind: backend.Update, Table: backend.TableMessages, Message: &row})
	}
	return int64(len(updated)), nil
}

func (s *Store) MarkMessageRead(_ context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	var updated *models.Message
	for i := range s.messages {
		m := &s.messages[i]
		if m.ID == id && !m.IsRead {
			m.IsRead = true
			row := *m
			updated = &row
			break
		}
	}
	s.mu.Unlock()

	if updated == nil {
		return 0, nil
	}
	s.bus.Publish(backend.Event{Kind: backend.Update, Table: backend.TableMessages, Message: updated})
	return 1, nil
}

func (s *Store) UnreadSenders(_ context.Context, recipient uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uuid.UUID
	for _, m := range s.messages {
		if m.RecipientID == recipient && !m.IsRead {
			out = append(out, m.SenderID)
		}
	}
	return out, nil
}

// products

func (s *Store) ListProducts(_ context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ProductByID(_ context.Context, id int64) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ProductsBySeller(_ context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Product
	for _, p := range s.products {
		if p.SellerID == sellerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateProduct(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProductID++
	product.ID = s.nextProductID
	product.CreatedAt = s.now()
	product.UpdatedAt = product.CreatedAt
	s.products[product.ID] = *product
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, id int64, sellerID uuid.UUID, patch map[string]any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.SellerID != sellerID {
		return 0, nil
	}
	for column, value := range patch {
		switch column {
		case "name":
			p.Name = value.(string)
		case "price":
			p.Price = value.(float64)
		case "image":
			p.Image = value.(string)
		case "info":
			p.Info = value.(string)
		case "category":
			p.Category = value.(string)
		case "description":
			p.Description = value.(string)
		case "link":
			p.Link = asStringPtr(value)
		case "stock":
			p.Stock = asIntPtr(value)
		}
	}
	p.UpdatedAt = s.now()
	s.products[id] = p
	return 1, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64, sellerID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.SellerID != sellerID {
		return 0, nil
	}
	delete(s.products, id)
	return 1, nil
}

func (s *Store) AdminDeleteProduct(_ context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return 0, nil
	}
	delete(s.products, id)
	return 1, nil
}

// ratings

func (s *Store) RatingsForProduct(_ context.Context, productID int64) ([]models.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Rating
	for _, r := range s.ratings {
		if r.ProductID != nil && *r.ProductID == productID {
			out = append(out, s.withAuthor(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) RatingsForSeller(_ context.Context, sellerID uuid.UUID) ([]models.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Rating
	for _, r := range s.ratings {
		if r.RatedSellerID != nil && *r.RatedSellerID == sellerID {
			out = append(out, s.withAuthor(r))
			continue
		}
		if r.ProductID != nil {
			if p, ok := s.products[*r.ProductID]; ok && p.SellerID == sellerID {
				out = append(out, s.withAuthor(r))
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertRating(_ context.Context, rating *models.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRatingID++
	rating.ID = s.nextRatingID
	rating.CreatedAt = s.now()
	rating.UpdatedAt = rating.CreatedAt
	s.ratings[rating.ID] = *rating
	return nil
}

func (s *Store) UpdateRating(_ context.Context, id int64, userID uuid.UUID, patch map[string]any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ratings[id]
	if !ok || r.UserID != userID {
		return 0, nil
	}
	for column, value := range patch {
		switch column {
		case "rating":
			r.Rating = value.(int)
		case "comment":
			r.Comment = asStringPtr(value)
		case "image_url":
			r.ImageURL = asStringPtr(value)
		}
	}
	r.UpdatedAt = s.now()
	s.ratings[id] = r
	return 1, nil
}

func (s *Store) DeleteRating(_ context.Context, id int64, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ratings[id]
	if !ok || r.UserID != userID {
		return 0, nil
	}
	delete(s.ratings, id)
	return 1, nil
}

func (s *Store) AdminDeleteRating(_ context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ratings[id]; !ok {
		return 0, nil
	}
	delete(s.ratings, id)
	return 1, nil
}

// archived conversations

func (s *Store) ArchivedIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uuid.UUID
	for key := range s.archived {
		if key.userID == userID {
			out = append(out, key.other)
		}
	}
	return out, nil
}

func (s *Store) ArchiveConversation(_ context.Context, userID, otherID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := archiveKey{userID: userID, other: otherID}
	if _, ok := s.archived[key]; ok {
		return nil
	}
	s.archived[key] = models.ArchivedConversation{
		UserID:         userID,
		ArchivedUserID: otherID,
		CreatedAt:      s.now(),
	}
	return nil
}

func (s *Store) UnarchiveConversation(_ context.Context, userID, otherID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := archiveKey{userID: userID, other: otherID}
	if _, ok := s.archived[key]; !ok {
		return 0, nil
	}
	delete(s.archived, key)
	return 1, nil
}

// withAuthor mirrors the author-profile join the hosted store performs.
// Callers hold at least a read lock.
func (s *Store) withAuthor(r models.Rating) models.Rating {
	if p, ok := s.profiles[r.UserID]; ok {
		r.Author = p
	}
	return r
}

func asStringPtr(value any) *string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return &v
	case *string:
		return v
	}
	return nil
}

func asIntPtr(value any) *int {
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		return &v
	case *int:
		return v
	}
	return nil
}

func asTimePtr(value any) *time.Time {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return &v
	case *time.Time:
		return v
	}
	return nil
}
