// Package postgres implements backend.Store on the hosted Postgres
// datastore through GORM. Change-feed delivery lives in feed.go.
package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ backend.Store = (*Store)(nil)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return backend.ErrNotFound
	}
	return err
}

// users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return backend.ErrNotFound
	}
	return nil
}

// profiles

func (s *Store) ProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (s *Store) ProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (s *Store) ProfileByBadge(ctx context.Context, badge string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("badge = ?", badge).Limit(1).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := s.db.WithContext(ctx).Order("username asc").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (s *Store) CreateProfile(ctx context.Context, profile *models.Profile) error {
	return s.db.WithContext(ctx).Create(profile).Error
}

func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, patch map[string]any) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(patch)
	return result.RowsAffected, result.Error
}

// messages

func (s *Store) MessagesBetween(ctx context.Context, a, b uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", a, b, b, a).
		Order("created_at asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *Store) InsertMessage(ctx context.Context, msg *models.Message) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *Store) MarkConversationRead(ctx context.Context, recipient, sender uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("recipient_id = ? AND sender_id = ? AND is_read = ?", recipient, sender, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (s *Store) MarkMessageRead(ctx context.Context, id uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND is_read = ?", id, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (s *Store) UnreadSenders(ctx context.Context, recipient uuid.UUID) ([]uuid.UUID, error) {
	var senders []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("recipient_id = ? AND is_read = ?", recipient, false).
		Pluck("sender_id", &senders).Error
	if err != nil {
		return nil, err
	}
	return senders, nil
}

// products

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

func (s *Store) ProductsBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at desc").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	return s.db.WithContext(ctx).Create(product).Error
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, sellerID uuid.UUID, patch map[string]any) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND seller_id = ?", id, sellerID).
		Updates(patch)
	return result.RowsAffected, result.Error
}

func (s *Store) DeleteProduct(ctx context.Context, id int64, sellerID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("id = ? AND seller_id = ?", id, sellerID).
		Delete(&models.Product{})
	return result.RowsAffected, result.Error
}

func (s *Store) AdminDeleteProduct(ctx context.Context, id int64) (int64, error) {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	return result.RowsAffected, result.Error
}

// ratings

func (s *Store) RatingsForProduct(ctx context.Context, productID int64) ([]models.Rating, error) {
	var ratings []models.Rating
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("product_id = ?", productID).
		Order("created_at desc").
		Find(&ratings).Error
	if err != nil {
		return nil, err
	}
	return ratings, nil
}

func (s *Store) RatingsForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Rating, error) {
	var ratings []models.Rating
	err := s.db.WithContext(ctx).
		Preload("Author").
		Joins("LEFT JOIN products ON products.id = ratings.product_id").
		Where("ratings.rated_seller_id = ? OR products.seller_id = ?", sellerID, sellerID).
		Order("ratings.created_at desc").
		Find(&ratings).Error
	if err != nil {
		return nil, err
	}
	return ratings, nil
}

func (s *Store) InsertRating(ctx context.Context, rating *models.Rating) error {
	return s.db.WithContext(ctx).Create(rating).Error
}

func (s *Store) UpdateRating(ctx context.Context, id int64, userID uuid.UUID, patch map[string]any) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Rating{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(patch)
	return result.RowsAffected, result.Error
}

func (s *Store) DeleteRating(ctx context.Context, id int64, userID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Rating{})
	return result.RowsAffected, result.Error
}

func (s *Store) AdminDeleteRating(ctx context.Context, id int64) (int64, error) {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Rating{})
	return result.RowsAffected, result.Error
}

// archived conversations

func (s *Store) ArchivedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.ArchivedConversation{}).
		Where("user_id = ?", userID).
		Pluck("archived_user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) ArchiveConversation(ctx context.Context, userID, otherID uuid.UUID) error {
	row := models.ArchivedConversation{UserID: userID, ArchivedUserID: otherID}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *Store) UnarchiveConversation(ctx context.Context, userID, otherID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND archived_user_id = ?", userID, otherID).
		Delete(&models.ArchivedConversation{})
	return result.RowsAffected, result.Error
}
