package service

import (
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// resolveApprover finds the active user who should hold an approval for a
// role. Global roles resolve by role alone; department-scoped roles narrow
// by the requesting department. Candidates are ordered by id so resolution
// is deterministic. A nil user with nil error means nobody is eligible,
// the fail-open case.
func resolveApprover(tx *gorm.DB, role workflow.Role, departmentID uuid.UUID) (*model.User, error) {
	query := tx.Where("LOWER(role) = LOWER(?)", string(role)).Where("is_active = ?", true)
	if !role.IsGlobal() {
		query = query.Where("department_id = ?", departmentID)
	}

	var user model.User
	err := query.Order("id ASC").First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s approver: %w", role, err)
	}
	return &user, nil
}

// materializeSteps inserts one Approval row per route step against a
// request, applying the assignment rules of the workflow engine:
//
//   - the level-1 self-approval shortcut when the requester already holds
//     the first required role,
//   - fail-open auto-approval (nil approver, immediately approved) when no
//     eligible user exists,
//   - exactly one pending approval left active, the lowest one, unless
//     the chain already has an active level.
//
// It never mutates existing rows. Returned logs and notifications belong
// to the caller's transaction outbox.
func materializeSteps(tx *gorm.DB, req *model.Request, steps []workflow.RouteStep, requester *model.User, hasActiveLevel bool) ([]model.Approval, []workflow.LogEntry, []workflow.NotificationEvent, error) {
	now := time.Now()
	created := make([]model.Approval, 0, len(steps))
	var logs []workflow.LogEntry
	var notifications []workflow.NotificationEvent

	activated := hasActiveLevel
	for i, step := range steps {
		approval := model.Approval{
			RequestID:     req.ID,
			ApprovalLevel: step.Level,
			Role:          string(step.Role),
			Status:        model.ApprovalPending,
			IsUrgent:      req.IsUrgent,
		}

		// Self-approval shortcut: only for the very first chain step, and
		// only when the requester's own role is the required one.
		if i == 0 && step.Level == 1 && requester != nil && workflow.SameRole(requester.Role, step.Role) {
			id := requester.ID
			at := now
			approval.ApproverID = &id
			approval.Status = model.ApprovalApproved
			approval.ApprovedAt = &at
			approval.SelfApproved = true
			logs = append(logs, workflow.LogEntry{
				Action:   model.ActionSelfApproveLevel,
				Comments: "requester holds the first required role",
				Details:  map[string]interface{}{"approval_level": step.Level, "role": string(step.Role)},
			})
			if err := tx.Create(&approval).Error; err != nil {
				return nil, nil, nil, fmt.Errorf("failed to create approval level %d: %w", step.Level, err)
			}
			created = append(created, approval)
			continue
		}

		approver, err := resolveApprover(tx, step.Role, req.DepartmentID)
		if err != nil {
			return nil, nil, nil, err
		}

		if approver == nil {
			// Fail-open: an unresolvable routing step never blocks the pipeline
			at := now
			approval.Status = model.ApprovalApproved
			approval.ApprovedAt = &at
			logs = append(logs, workflow.LogEntry{
				Action:   model.ActionAutoApproveLevel,
				Comments: fmt.Sprintf("no active %s in department", step.Role),
				Details:  map[string]interface{}{"approval_level": step.Level, "role": string(step.Role)},
			})
			if err := tx.Create(&approval).Error; err != nil {
				return nil, nil, nil, fmt.Errorf("failed to create approval level %d: %w", step.Level, err)
			}
			created = append(created, approval)
			continue
		}

		id := approver.ID
		approval.ApproverID = &id
		if !activated {
			approval.IsActive = true
			activated = true
		}

		if err := tx.Create(&approval).Error; err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create approval level %d: %w", step.Level, err)
		}

		if approval.IsActive {
			notifications = append(notifications, workflow.NotificationEvent{
				UserID:  approver.ID,
				Title:   "Approval required",
				Message: fmt.Sprintf("Request %s awaits your approval at level %d", req.RequestCode, step.Level),
				Link:    "/approvals/" + approval.ID.String(),
				Metadata: map[string]interface{}{
					"request_id":  req.ID.String(),
					"approval_id": approval.ID.String(),
					"level":       step.Level,
				},
			})
		}
		created = append(created, approval)
	}

	return created, logs, notifications, nil
}
