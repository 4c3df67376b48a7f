package models

import (
	"time"

	"github.com/google/uuid"
)

// ArchivedConversation hides the conversation with ArchivedUserID from
// UserID's inbox. The row is deleted automatically the moment a new inbound
// message from ArchivedUserID arrives.
type ArchivedConversation struct {
	UserID         uuid.UUID `gorm:"type:uuid;primary_key" json:"user_id"`
	ArchivedUserID uuid.UUID `gorm:"type:uuid;primary_key" json:"archived_user_id"`

	CreatedAt time.Time `json:"created_at"`
}
