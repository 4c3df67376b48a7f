package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a direct message between two users. Rows are immutable except
// IsRead, which flips false to true exactly once, by the recipient's client.
type Message struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SenderID    uuid.UUID `gorm:"type:uuid;not null;index" json:"sender_id"`
	RecipientID uuid.UUID `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Content     *string   `gorm:"type:text" json:"content"`
	ImageURL    *string   `gorm:"size:255" json:"image_url"`
	IsRead      bool      `gorm:"not null;default:false" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
}

// InConversation reports whether the message belongs to the conversation
// between a and b, in either direction.
func (m *Message) InConversation(a, b uuid.UUID) bool {
	return (m.SenderID == a && m.RecipientID == b) ||
		(m.SenderID == b && m.RecipientID == a)
}
