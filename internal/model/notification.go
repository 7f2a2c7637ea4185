package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification is the persisted side of the notify() contract. Delivery
// over the websocket hub is fire-and-forget; the row is the durable copy.
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Message   string    `gorm:"type:text" json:"message"`
	Link      string    `gorm:"type:varchar(255)" json:"link"`
	Metadata  string    `gorm:"type:jsonb" json:"metadata"`
	IsRead    bool      `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
