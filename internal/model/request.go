package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestType enum constants
const (
	RequestTypeStock           = "STOCK"
	RequestTypeNonStock        = "NON_STOCK"
	RequestTypeMedicalDevice   = "MEDICAL_DEVICE"
	RequestTypeITItem          = "IT_ITEM"
	RequestTypeMaintenance     = "MAINTENANCE"
	RequestTypeWarehouseSupply = "WAREHOUSE_SUPPLY"
)

// RequestStatus enum constants
const (
	RequestStatusSubmitted = "SUBMITTED"
	RequestStatusApproved  = "APPROVED"
	RequestStatusRejected  = "REJECTED"
	RequestStatusCompleted = "COMPLETED"
	RequestStatusReceived  = "RECEIVED"
)

// Request represents a purchase request traversing the approval pipeline.
// The workflow engine owns status and estimated_cost after creation; item
// management owns the item contents.
type Request struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestCode   string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"request_code"`
	RequestType   string          `gorm:"type:varchar(30);not null;index" json:"request_type"`
	DepartmentID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"department_id"`
	Department    *Department     `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Domain        string          `gorm:"type:varchar(20);not null" json:"domain"` // MEDICAL, OPERATIONAL; derived from the department unless overridden
	RequesterID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester     *User           `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	EstimatedCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"estimated_cost"`
	Status        string          `gorm:"type:varchar(20);not null;default:'SUBMITTED';index" json:"status"`
	IsUrgent      bool            `gorm:"not null;default:false" json:"is_urgent"`
	Purpose       string          `gorm:"type:text" json:"purpose"`
	Items         []RequestedItem `gorm:"foreignKey:RequestID" json:"items,omitempty"`
	Approvals     []Approval      `gorm:"foreignKey:RequestID" json:"approvals,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ItemApprovalStatus enum constants (Item Decision Overlay)
const (
	ItemStatusPending  = "PENDING"
	ItemStatusApproved = "APPROVED"
	ItemStatusRejected = "REJECTED"
)

// RequestedItem is a line item within a Request. ApprovalStatus belongs to
// the item decision overlay; DecidedBy records the approver identity that
// enforces the cross-identity rejection lock.
type RequestedItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"request_id"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	Quantity       int             `gorm:"type:int;not null" json:"quantity"`
	UnitCost       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_cost"`
	TotalCost      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_cost"` // quantity x unit_cost
	ApprovalStatus string          `gorm:"type:varchar(20);not null;default:'PENDING'" json:"approval_status"`
	DecidedBy      *uuid.UUID      `gorm:"type:uuid" json:"decided_by"`
	Comments       string          `gorm:"type:text" json:"comments"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
