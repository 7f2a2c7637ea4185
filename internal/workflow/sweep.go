package workflow

import (
	"fmt"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
)

// SweepResolution is the outcome chosen for one stalled approval
type SweepResolution string

const (
	SweepReassigned   SweepResolution = "REASSIGNED"
	SweepAutoApproved SweepResolution = "AUTO_APPROVED"
)

// SweepPlan describes the repair of one approval stalled on an inactive
// approver. Mirrors the decision effects of Advance: the transactional
// layer applies the plan, the notifications go out after commit.
type SweepPlan struct {
	ApprovalID    uuid.UUID
	Resolution    SweepResolution
	NewApproverID *uuid.UUID // nil for fail-open auto-approval
	DecidedAt     *time.Time // set only when auto-approving
	ActivateLevel int        // next dormant level to open, 0 when none
	Logs          []LogEntry
	Notifications []NotificationEvent
}

// PlanReassignment decides how to repair a pending, active approval whose
// approver has been deactivated. With a replacement the approval is handed
// over; without one it is auto-approved fail-open. Either way the next
// dormant level is opened immediately; reassignment implicitly clears the
// current level.
func PlanReassignment(req *model.Request, stale model.Approval, replacement *model.User, chain []model.Approval, now time.Time) SweepPlan {
	plan := SweepPlan{ApprovalID: stale.ID}

	if next := NextDormant(chain, stale.ApprovalLevel); next != nil {
		plan.ActivateLevel = next.ApprovalLevel
	}

	if replacement != nil {
		id := replacement.ID
		plan.Resolution = SweepReassigned
		plan.NewApproverID = &id
		plan.Logs = append(plan.Logs, LogEntry{
			Action: model.ActionReassignApprover,
			Details: map[string]interface{}{
				"approval_level": stale.ApprovalLevel,
				"role":           stale.Role,
				"new_approver":   id.String(),
			},
		})
		plan.Notifications = append(plan.Notifications, NotificationEvent{
			UserID:  id,
			Title:   "Approval reassigned to you",
			Message: fmt.Sprintf("Request %s level %d now awaits your approval", req.RequestCode, stale.ApprovalLevel),
			Link:    "/approvals/" + stale.ID.String(),
			Metadata: map[string]interface{}{
				"request_id":  req.ID.String(),
				"approval_id": stale.ID.String(),
				"level":       stale.ApprovalLevel,
			},
		})
		return plan
	}

	plan.Resolution = SweepAutoApproved
	plan.DecidedAt = &now
	plan.Logs = append(plan.Logs, LogEntry{
		Action:   model.ActionAutoApproveLevel,
		Comments: fmt.Sprintf("no active %s in department", stale.Role),
		Details: map[string]interface{}{
			"approval_level": stale.ApprovalLevel,
			"role":           stale.Role,
		},
	})
	return plan
}
