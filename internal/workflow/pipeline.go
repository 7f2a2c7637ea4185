package workflow

import (
	"fmt"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
)

// Decision is one approve/reject action against the active approval level
type Decision struct {
	ApprovalID uuid.UUID
	ActorID    uuid.UUID
	ActorRole  string
	Status     string // APPROVED or REJECTED
	Comments   string
	IsUrgent   bool
	Now        time.Time
}

// LogEntry is an audit row to append inside the same transaction as the
// state change
type LogEntry struct {
	Action   string
	Comments string
	Details  map[string]interface{}
}

// NotificationEvent is an outbox entry drained only after commit
type NotificationEvent struct {
	UserID   uuid.UUID
	Title    string
	Message  string
	Link     string
	Metadata map[string]interface{}
}

// Transition is the full effect of one decision. The transactional layer
// persists everything except Notifications, which are dispatched
// fire-and-forget after the transaction commits.
type Transition struct {
	ApprovalID uuid.UUID
	NewStatus  string
	Comments   string
	IsUrgent   bool
	DecidedAt  time.Time

	RequestStatus    string // "" means request status unchanged
	ActivateLevel    int    // 0 means no dormant level to open
	AutoApproveItems bool   // finalize: bulk-approve undecided items

	RequestLogs   []LogEntry
	ApprovalLogs  []LogEntry
	Notifications []NotificationEvent
}

// Advance validates and applies one decision against the pipeline of a
// request. It is a pure function: approvals is the complete, level-sorted
// approval set of the request, and the returned Transition describes every
// state change without performing any of them.
func Advance(req *model.Request, approvals []model.Approval, d Decision) (*Transition, error) {
	if d.Status != model.ApprovalApproved && d.Status != model.ApprovalRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, d.Status)
	}

	var target *model.Approval
	for i := range approvals {
		if approvals[i].ID == d.ApprovalID {
			target = &approvals[i]
			break
		}
	}
	if target == nil {
		return nil, ErrApprovalNotFound
	}

	// Authorization: pending, active, and owned by the acting user
	if target.Status != model.ApprovalPending {
		return nil, fmt.Errorf("%w: level %d is %s", ErrNotPending, target.ApprovalLevel, target.Status)
	}
	if !target.IsActive {
		return nil, fmt.Errorf("%w: level %d", ErrNotActive, target.ApprovalLevel)
	}
	if target.ApproverID == nil || *target.ApproverID != d.ActorID {
		return nil, ErrWrongApprover
	}

	// Role consistency, except for the level-1 self-approval shortcut
	if !target.SelfApproved && target.Role != "" {
		if role, ok := ParseRole(target.Role); ok && !SameRole(d.ActorRole, role) {
			return nil, fmt.Errorf("%w: need %s, got %s", ErrWrongRole, target.Role, d.ActorRole)
		}
	}

	// Strict sequential ordering: every lower level must be approved
	for i := range approvals {
		if approvals[i].ApprovalLevel < target.ApprovalLevel && approvals[i].Status != model.ApprovalApproved {
			return nil, fmt.Errorf("%w: level %d", ErrPreviousLevelPending, approvals[i].ApprovalLevel)
		}
	}

	t := &Transition{
		ApprovalID: target.ID,
		NewStatus:  d.Status,
		Comments:   d.Comments,
		IsUrgent:   d.IsUrgent,
		DecidedAt:  d.Now,
	}

	action := model.ActionApproveRequest
	if d.Status == model.ApprovalRejected {
		action = model.ActionRejectRequest
	}
	details := map[string]interface{}{
		"approval_level": target.ApprovalLevel,
		"role":           target.Role,
	}
	t.RequestLogs = append(t.RequestLogs, LogEntry{Action: action, Comments: d.Comments, Details: details})
	t.ApprovalLogs = append(t.ApprovalLogs, LogEntry{Action: action, Comments: d.Comments, Details: details})

	if d.Status == model.ApprovalRejected {
		// Rejection is terminal: no further levels are activated
		t.RequestStatus = model.RequestStatusRejected
		t.Notifications = append(t.Notifications, NotificationEvent{
			UserID:  req.RequesterID,
			Title:   "Request rejected",
			Message: fmt.Sprintf("Request %s was rejected at level %d", req.RequestCode, target.ApprovalLevel),
			Link:    "/requests/" + req.ID.String(),
			Metadata: map[string]interface{}{
				"request_id": req.ID.String(),
				"level":      target.ApprovalLevel,
			},
		})
		return t, nil
	}

	// Siblings at the same level must all clear before advancing
	for i := range approvals {
		a := &approvals[i]
		if a.ID != target.ID && a.ApprovalLevel == target.ApprovalLevel && a.Status == model.ApprovalPending {
			return t, nil
		}
	}

	if next := NextDormant(approvals, target.ApprovalLevel); next != nil {
		t.ActivateLevel = next.ApprovalLevel
		t.RequestLogs = append(t.RequestLogs, LogEntry{
			Action: model.ActionLevelActivated,
			Details: map[string]interface{}{
				"approval_level": next.ApprovalLevel,
				"role":           next.Role,
			},
		})
		if next.ApproverID != nil {
			t.Notifications = append(t.Notifications, NotificationEvent{
				UserID:  *next.ApproverID,
				Title:   "Approval required",
				Message: fmt.Sprintf("Request %s awaits your approval at level %d", req.RequestCode, next.ApprovalLevel),
				Link:    "/approvals/" + next.ID.String(),
				Metadata: map[string]interface{}{
					"request_id":  req.ID.String(),
					"approval_id": next.ID.String(),
					"level":       next.ApprovalLevel,
				},
			})
		}
		return t, nil
	}

	// No dormant level remains, but a later level can still be pending and
	// active (reassignment opens the next level while the stale one stays
	// pending). Finalize only when the rest of the chain has cleared, so the
	// stepwise update agrees with DeriveRequestStatus.
	for i := range approvals {
		a := &approvals[i]
		if a.ID != target.ID && a.Status != model.ApprovalApproved {
			return t, nil
		}
	}

	// Chain exhausted: finalize the request. Items left undecided are
	// auto-approved; nobody flagged them on the way through.
	t.RequestStatus = model.RequestStatusApproved
	t.AutoApproveItems = true
	t.Notifications = append(t.Notifications, NotificationEvent{
		UserID:  req.RequesterID,
		Title:   "Request approved",
		Message: fmt.Sprintf("Request %s has passed all approval levels", req.RequestCode),
		Link:    "/requests/" + req.ID.String(),
		Metadata: map[string]interface{}{
			"request_id": req.ID.String(),
		},
	})
	return t, nil
}

// NextDormant returns the lowest-level pending, inactive approval above
// the given level, or nil when the chain is exhausted.
func NextDormant(approvals []model.Approval, afterLevel int) *model.Approval {
	var next *model.Approval
	for i := range approvals {
		a := &approvals[i]
		if a.ApprovalLevel <= afterLevel || a.Status != model.ApprovalPending || a.IsActive {
			continue
		}
		if next == nil || a.ApprovalLevel < next.ApprovalLevel {
			next = a
		}
	}
	return next
}

// DeriveRequestStatus recomputes request status as a pure function of the
// approval set: rejected dominates, approved requires a unanimous chain,
// anything else is still pending. Must agree with the stepwise updates in
// Advance.
func DeriveRequestStatus(approvals []model.Approval) string {
	if len(approvals) == 0 {
		return model.ApprovalPending
	}
	allApproved := true
	for i := range approvals {
		switch approvals[i].Status {
		case model.ApprovalRejected:
			return model.RequestStatusRejected
		case model.ApprovalApproved:
		default:
			allApproved = false
		}
	}
	if allApproved {
		return model.RequestStatusApproved
	}
	return model.ApprovalPending
}

// ActiveCount reports how many approvals are currently active; the
// pipeline invariant keeps this at most one while a request is open.
func ActiveCount(approvals []model.Approval) int {
	n := 0
	for i := range approvals {
		if approvals[i].IsActive {
			n++
		}
	}
	return n
}
