package model

import (
	"time"

	"github.com/google/uuid"
)

// Workflow audit actions
const (
	ActionCreateRequest     = "CREATE_REQUEST"
	ActionApproveRequest    = "APPROVE_REQUEST"
	ActionRejectRequest     = "REJECT_REQUEST"
	ActionLevelActivated    = "LEVEL_ACTIVATED"
	ActionAutoApproveLevel  = "AUTO_APPROVE_LEVEL"
	ActionSelfApproveLevel  = "SELF_APPROVE_LEVEL"
	ActionReassignApprover  = "REASSIGN_APPROVER"
	ActionItemDecisions     = "ITEM_DECISIONS"
	ActionItemsAutoApproved = "ITEMS_AUTO_APPROVED"
	ActionCostUpdated       = "COST_UPDATED"
	ActionRequesterTransfer = "REQUESTER_TRANSFER"
	ActionRequestCompleted  = "COMPLETE_REQUEST"
	ActionRequestReceived   = "RECEIVE_REQUEST"
)

// RequestLog is an append-only audit row, one per workflow transition.
// Never mutated or deleted.
type RequestLog struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID uuid.UUID  `gorm:"type:uuid;not null;index" json:"request_id"`
	ActorID   *uuid.UUID `gorm:"type:uuid;index" json:"actor_id"` // null for system-initiated transitions
	Actor     *User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Action    string     `gorm:"type:varchar(50);not null;index" json:"action"`
	Comments  string     `gorm:"type:text" json:"comments"`
	Details   string     `gorm:"type:jsonb" json:"details"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

// ApprovalLog is an append-only audit row, one per approval decision.
type ApprovalLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ApprovalID uuid.UUID  `gorm:"type:uuid;not null;index" json:"approval_id"`
	RequestID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"request_id"`
	ApproverID *uuid.UUID `gorm:"type:uuid" json:"approver_id"`
	Approver   *User      `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null" json:"action"`
	Comments   string     `gorm:"type:text" json:"comments"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
