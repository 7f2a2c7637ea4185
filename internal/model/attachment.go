package model

import (
	"time"

	"github.com/google/uuid"
)

// Attachment references a file stored in the object store (MinIO) for one request
type Attachment struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID   uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	FileName    string    `gorm:"type:varchar(255);not null" json:"file_name"`
	ObjectKey   string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"object_key"`
	ContentType string    `gorm:"type:varchar(100)" json:"content_type"`
	Size        int64     `gorm:"type:bigint;not null" json:"size"`
	UploadedBy  uuid.UUID `gorm:"type:uuid;not null" json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
