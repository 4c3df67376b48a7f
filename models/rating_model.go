package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating reviews either a product or a seller directly. Exactly one of
// ProductID and RatedSellerID is set.
type Rating struct {
	ID            int64      `gorm:"primary_key;autoIncrement" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ProductID     *int64     `gorm:"index" json:"product_id"`
	RatedSellerID *uuid.UUID `gorm:"type:uuid;index" json:"rated_seller_id"`
	Rating        int        `gorm:"not null" json:"rating"`
	Comment       *string    `gorm:"type:text" json:"comment"`
	ImageURL      *string    `gorm:"size:255" json:"image_url"`

	Author Profile `gorm:"foreignkey:UserID" json:"author"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
