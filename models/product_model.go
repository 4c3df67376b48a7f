package models

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID          int64     `gorm:"primary_key;autoIncrement" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Price       float64   `gorm:"type:numeric(10,2);not null" json:"price"`
	Image       string    `gorm:"size:1024;not null" json:"image"`
	Info        string    `gorm:"size:255;not null" json:"info"`
	Category    string    `gorm:"size:100;not null" json:"category"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Link        *string   `gorm:"size:512" json:"link,omitempty"`
	Stock       *int      `json:"stock,omitempty"`
	SellerID    uuid.UUID `gorm:"type:uuid;not null;index" json:"seller_id"`

	Seller Profile `gorm:"foreignkey:SellerID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
