package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the public face of a user. Its ID is the owning user's ID,
// created alongside the account and lazily backfilled for accounts that
// predate profiles.
type Profile struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Username    string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	AvatarURL   *string    `gorm:"size:255" json:"avatar_url"`
	Badge       *string    `gorm:"size:50" json:"badge"`
	IsAdmin     bool       `gorm:"not null;default:false" json:"is_admin"`
	IsBanned    bool       `gorm:"not null;default:false" json:"is_banned"`
	BannedUntil *time.Time `json:"banned_until"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
