package model

import (
	"time"

	"github.com/google/uuid"
)

// DepartmentType enum constants; the "domain" driving approval chain selection
const (
	DeptTypeMedical     = "MEDICAL"
	DeptTypeOperational = "OPERATIONAL"
)

// Department groups requesters and department-scoped approvers (e.g. HOD)
type Department struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Type      string    `gorm:"type:varchar(20);not null;index" json:"type"` // MEDICAL, OPERATIONAL
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
