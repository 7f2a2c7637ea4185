package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SweepResult struct {
	Scanned      int      `json:"scanned"`
	Reassigned   int      `json:"reassigned"`
	AutoApproved int      `json:"auto_approved"`
	Failed       []string `json:"failed,omitempty"` // approval ids that errored, left for the next run
}

type SweeperService interface {
	Sweep(ctx context.Context) (*SweepResult, error)
}

type sweeperService struct {
	db            *gorm.DB
	notifications NotificationService
}

func NewSweeperService(db *gorm.DB, notifications NotificationService) SweeperService {
	return &sweeperService{db: db, notifications: notifications}
}

// Sweep finds pending active approvals whose assigned approver has been
// deactivated and repairs each one: reassign to another eligible user of
// the same role, or auto-approve the level and open the next one when
// nobody is left. Each approval is repaired in its own transaction so a
// single bad row cannot poison the batch, and the state is re-verified
// under lock so the sweep stays safe against concurrent decisions.
func (s *sweeperService) Sweep(ctx context.Context) (*SweepResult, error) {
	var stale []model.Approval
	err := s.db.WithContext(ctx).
		Joins("JOIN users ON users.id = approvals.approver_id").
		Where("approvals.status = ? AND approvals.is_active = ? AND users.is_active = ?",
			model.ApprovalPending, true, false).
		Find(&stale).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan stale approvals: %w", err)
	}

	result := &SweepResult{Scanned: len(stale)}
	for _, candidate := range stale {
		resolution, err := s.repair(ctx, candidate.ID)
		if err != nil {
			log.Printf("sweep: approval %s: %v", candidate.ID, err)
			result.Failed = append(result.Failed, candidate.ID.String())
			continue
		}
		switch resolution {
		case workflow.SweepReassigned:
			result.Reassigned++
		case workflow.SweepAutoApproved:
			result.AutoApproved++
		}
	}
	return result, nil
}

// repair handles one stale approval. The empty resolution means the row
// no longer needed repair by the time the lock was taken.
func (s *sweeperService) repair(ctx context.Context, approvalID uuid.UUID) (workflow.SweepResolution, error) {
	var resolution workflow.SweepResolution
	var outbox []workflow.NotificationEvent

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var approval model.Approval
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&approval, "id = ?", approvalID).Error; err != nil {
			return err
		}

		var request model.Request
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&request, "id = ?", approval.RequestID).Error; err != nil {
			return err
		}

		// Re-verify under lock: the approver may have decided or been
		// reactivated between the scan and now.
		if approval.Status != model.ApprovalPending || !approval.IsActive || approval.ApproverID == nil {
			return nil
		}
		var approver model.User
		if err := tx.First(&approver, "id = ?", *approval.ApproverID).Error; err != nil {
			return err
		}
		if approver.IsActive {
			return nil
		}

		replacement, err := resolveApprover(tx, workflow.Role(approval.Role), request.DepartmentID)
		if err != nil {
			return err
		}
		if replacement != nil && replacement.ID == *approval.ApproverID {
			replacement = nil
		}

		var chain []model.Approval
		if err := tx.Where("request_id = ?", request.ID).
			Order("approval_level ASC").Find(&chain).Error; err != nil {
			return err
		}

		plan := workflow.PlanReassignment(&request, approval, replacement, chain, time.Now())
		resolution = plan.Resolution

		switch plan.Resolution {
		case workflow.SweepReassigned:
			updates := map[string]interface{}{"approver_id": *plan.NewApproverID}
			if err := tx.Model(&model.Approval{}).Where("id = ?", approval.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to reassign: %w", err)
			}
		case workflow.SweepAutoApproved:
			updates := map[string]interface{}{
				"status":      model.ApprovalApproved,
				"approver_id": nil,
				"is_active":   false,
				"approved_at": *plan.DecidedAt,
			}
			if err := tx.Model(&model.Approval{}).Where("id = ?", approval.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to auto-approve: %w", err)
			}
		}

		if plan.ActivateLevel > 0 {
			if err := tx.Model(&model.Approval{}).
				Where("request_id = ? AND approval_level = ?", request.ID, plan.ActivateLevel).
				Update("is_active", true).Error; err != nil {
				return fmt.Errorf("failed to activate level %d: %w", plan.ActivateLevel, err)
			}
		}

		// Auto-approving the last open level can complete the chain.
		if plan.Resolution == workflow.SweepAutoApproved && plan.ActivateLevel == 0 {
			var refreshed []model.Approval
			if err := tx.Where("request_id = ?", request.ID).Find(&refreshed).Error; err != nil {
				return err
			}
			if workflow.DeriveRequestStatus(refreshed) == model.RequestStatusApproved {
				if err := finalizeRequest(tx, &request, nil); err != nil {
					return err
				}
			}
		}

		if err := appendRequestLogs(tx, request.ID, nil, plan.Logs); err != nil {
			return err
		}

		outbox = plan.Notifications
		return nil
	})
	if err != nil {
		return "", err
	}

	s.notifications.Dispatch(outbox)
	return resolution, nil
}
