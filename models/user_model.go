package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the credential record behind a Profile. Everything shown to other
// users lives on Profile; this row never leaves the auth handlers.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Email    string    `gorm:"size:255;not null;unique" json:"email"`
	Password string    `gorm:"not null" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
