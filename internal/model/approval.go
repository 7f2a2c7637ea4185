package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApprovalStatus enum constants
const (
	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
)

// Approval is one level of a request's sign-off chain. ApproverID is null
// when the level was auto-approved because no eligible user existed.
// At most one approval per (request_id, approval_level); at most one
// approval per request is active while the request is open.
type Approval struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_approval_request_level,unique,priority:1" json:"request_id"`
	Request       *Request   `gorm:"foreignKey:RequestID" json:"request,omitempty"`
	ApprovalLevel int        `gorm:"type:int;not null;index:idx_approval_request_level,unique,priority:2" json:"approval_level"`
	Role          string     `gorm:"type:varchar(50);not null" json:"role"` // required role resolved at assignment time
	ApproverID    *uuid.UUID `gorm:"type:uuid;index" json:"approver_id"`
	Approver      *User      `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Status        string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	IsActive      bool       `gorm:"not null;default:false;index" json:"is_active"`
	IsUrgent      bool       `gorm:"not null;default:false" json:"is_urgent"`
	SelfApproved  bool       `gorm:"not null;default:false" json:"self_approved"` // level-1 requester shortcut, exempt from the role-consistency check
	Comments      string     `gorm:"type:text" json:"comments"`
	ApprovedAt    *time.Time `json:"approved_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ApprovalRoute is read-only routing policy: which role signs at which
// level for a (request_type, department_type) pair within an amount band.
// Null bounds mean 0 and +infinity respectively.
type ApprovalRoute struct {
	ID             uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestType    string           `gorm:"type:varchar(30);not null;index:idx_route_lookup,priority:1" json:"request_type"`
	DepartmentType string           `gorm:"type:varchar(20);not null;index:idx_route_lookup,priority:2" json:"department_type"`
	ApprovalLevel  int              `gorm:"type:int;not null" json:"approval_level"`
	Role           string           `gorm:"type:varchar(50);not null" json:"role"`
	MinAmount      *decimal.Decimal `gorm:"type:decimal(18,4)" json:"min_amount"`
	MaxAmount      *decimal.Decimal `gorm:"type:decimal(18,4)" json:"max_amount"`
	CreatedAt      time.Time        `json:"created_at"` // stable tie-break within a level
	UpdatedAt      time.Time        `json:"updated_at"`
}
