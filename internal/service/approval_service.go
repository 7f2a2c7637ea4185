package service

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- DTOs ---

type DecideDTO struct {
	Status        string           `json:"status" binding:"required,oneof=APPROVED REJECTED"`
	Comments      string           `json:"comments"`
	IsUrgent      bool             `json:"is_urgent"`
	EstimatedCost *decimal.Decimal `json:"estimated_cost"` // requires the cost-update permission
}

type DecideResponse struct {
	ApprovalID       string `json:"approval_id"`
	ApprovalStatus   string `json:"approval_status"`
	NewRequestStatus string `json:"new_request_status"`
	ActivatedLevel   int    `json:"activated_level,omitempty"`
}

type PendingApprovalResponse struct {
	ApprovalSummary
	RequestID     string          `json:"request_id"`
	RequestCode   string          `json:"request_code"`
	RequestType   string          `json:"request_type"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	IsUrgent      bool            `json:"is_urgent"`
}

// --- Interface ---

type ApprovalService interface {
	Decide(ctx context.Context, approvalID, actorID string, req DecideDTO) (*DecideResponse, error)
	ListMyPending(ctx context.Context, approverID string, page, limit int) ([]PendingApprovalResponse, int64, error)
}

type approvalService struct {
	db            *gorm.DB
	notifications NotificationService
}

func NewApprovalService(db *gorm.DB, notifications NotificationService) ApprovalService {
	return &approvalService{db: db, notifications: notifications}
}

// --- Implementation ---

// Decide records one approve/reject decision on the active approval of a
// request. The whole state change (approval row, request status, level
// activation, audit rows, chain extension) is one transaction holding
// row locks on both the approval and its request, so two concurrent
// decisions cannot double-advance a level. Notifications are dispatched
// only after the transaction commits.
func (s *approvalService) Decide(ctx context.Context, approvalID, actorID string, req DecideDTO) (*DecideResponse, error) {
	aID, err := uuid.Parse(approvalID)
	if err != nil {
		return nil, fmt.Errorf("invalid approval id: %w", err)
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	var resp DecideResponse
	var outbox []workflow.NotificationEvent

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row locks first: approval, then its request. Every pipeline
		// mutation takes locks in this order.
		var approval model.Approval
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&approval, "id = ?", aID).Error; err != nil {
			return fmt.Errorf("approval not found: %w", err)
		}

		var request model.Request
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&request, "id = ?", approval.RequestID).Error; err != nil {
			return fmt.Errorf("request not found: %w", err)
		}

		var actor model.User
		if err := tx.First(&actor, "id = ?", actorUUID).Error; err != nil {
			return fmt.Errorf("acting user not found: %w", err)
		}

		// A cost change riding along with the decision is applied first so
		// the re-resolved chain sees the new amount. Permission is checked
		// at the handler.
		if req.EstimatedCost != nil {
			previous := request.EstimatedCost
			request.EstimatedCost = *req.EstimatedCost
			if err := tx.Model(&request).Update("estimated_cost", *req.EstimatedCost).Error; err != nil {
				return fmt.Errorf("failed to update estimated cost: %w", err)
			}
			if err := appendRequestLogs(tx, request.ID, &actorUUID, []workflow.LogEntry{{
				Action: model.ActionCostUpdated,
				Details: map[string]interface{}{
					"previous": previous.String(),
					"current":  req.EstimatedCost.String(),
				},
			}}); err != nil {
				return err
			}
		}

		if req.Status == model.ApprovalApproved {
			// The maintenance confirmation step transfers ownership to the
			// confirming approver and materializes the real chain, exactly
			// once, only while no higher level exists yet.
			confirmed, notifications, err := s.confirmMaintenance(tx, &request, &approval, &actor)
			if err != nil {
				return err
			}
			outbox = append(outbox, notifications...)

			if !confirmed && req.EstimatedCost != nil {
				// Cost grew mid-flight: append whatever levels the new
				// amount requires before advancing.
				notifications, err := extendChain(tx, &request)
				if err != nil {
					return err
				}
				outbox = append(outbox, notifications...)
			}
		}

		var approvals []model.Approval
		if err := tx.Where("request_id = ?", request.ID).
			Order("approval_level ASC").Find(&approvals).Error; err != nil {
			return fmt.Errorf("failed to load approvals: %w", err)
		}

		transition, err := workflow.Advance(&request, approvals, workflow.Decision{
			ApprovalID: approval.ID,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Status:     req.Status,
			Comments:   req.Comments,
			IsUrgent:   req.IsUrgent,
			Now:        time.Now(),
		})
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":      transition.NewStatus,
			"comments":    transition.Comments,
			"is_active":   false,
			"is_urgent":   transition.IsUrgent,
			"approved_at": transition.DecidedAt,
		}
		if err := tx.Model(&model.Approval{}).Where("id = ?", approval.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update approval: %w", err)
		}

		if transition.ActivateLevel > 0 {
			if err := tx.Model(&model.Approval{}).
				Where("request_id = ? AND approval_level = ?", request.ID, transition.ActivateLevel).
				Update("is_active", true).Error; err != nil {
				return fmt.Errorf("failed to activate level %d: %w", transition.ActivateLevel, err)
			}
		}

		switch transition.RequestStatus {
		case model.RequestStatusRejected:
			if err := tx.Model(&request).Update("status", model.RequestStatusRejected).Error; err != nil {
				return fmt.Errorf("failed to reject request: %w", err)
			}
		case model.RequestStatusApproved:
			if err := finalizeRequest(tx, &request, &actorUUID); err != nil {
				return err
			}
		}

		if err := appendRequestLogs(tx, request.ID, &actorUUID, transition.RequestLogs); err != nil {
			return err
		}
		if err := appendApprovalLogs(tx, approval.ID, request.ID, &actorUUID, transition.ApprovalLogs); err != nil {
			return err
		}

		outbox = append(outbox, transition.Notifications...)
		resp = DecideResponse{
			ApprovalID:       approval.ID.String(),
			ApprovalStatus:   transition.NewStatus,
			NewRequestStatus: transition.RequestStatus,
			ActivatedLevel:   transition.ActivateLevel,
		}
		if resp.NewRequestStatus == "" {
			resp.NewRequestStatus = request.Status
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.notifications.Dispatch(outbox)
	return &resp, nil
}

// confirmMaintenance handles the special first step of maintenance
// requests: on approval of the confirmation level, the request transfers
// to the confirming approver and the actual approval chain is resolved
// with the now-known domain and cost. Returns true when the transfer
// happened in this call.
func (s *approvalService) confirmMaintenance(tx *gorm.DB, request *model.Request, approval *model.Approval, actor *model.User) (bool, []workflow.NotificationEvent, error) {
	if request.RequestType != model.RequestTypeMaintenance || approval.Status != model.ApprovalPending {
		return false, nil, nil
	}

	var higher int64
	if err := tx.Model(&model.Approval{}).
		Where("request_id = ? AND approval_level > ?", request.ID, approval.ApprovalLevel).
		Count(&higher).Error; err != nil {
		return false, nil, err
	}
	if higher > 0 {
		return false, nil, nil
	}

	request.RequesterID = actor.ID
	if err := tx.Model(request).Update("requester_id", actor.ID).Error; err != nil {
		return false, nil, fmt.Errorf("failed to transfer requester: %w", err)
	}
	if err := appendRequestLogs(tx, request.ID, &actor.ID, []workflow.LogEntry{{
		Action:  model.ActionRequesterTransfer,
		Details: map[string]interface{}{"new_requester": actor.ID.String()},
	}}); err != nil {
		return false, nil, err
	}

	dynamic, err := dynamicRoutes(tx, request)
	if err != nil {
		return false, nil, err
	}
	steps, err := workflow.ResolveMaintenance(request.Domain, request.EstimatedCost, dynamic, approval.ApprovalLevel)
	if err != nil {
		return false, nil, err
	}

	var existing []model.Approval
	if err := tx.Where("request_id = ?", request.ID).
		Order("approval_level ASC").Find(&existing).Error; err != nil {
		return false, nil, err
	}

	missing := workflow.MissingSteps(steps, existing)
	_, logs, notifications, err := materializeSteps(tx, request, missing, nil, true)
	if err != nil {
		return false, nil, err
	}
	if err := appendRequestLogs(tx, request.ID, nil, logs); err != nil {
		return false, nil, err
	}
	return true, notifications, nil
}

func (s *approvalService) ListMyPending(ctx context.Context, approverID string, page, limit int) ([]PendingApprovalResponse, int64, error) {
	uid, err := uuid.Parse(approverID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid user id: %w", err)
	}

	query := s.db.WithContext(ctx).Model(&model.Approval{}).
		Where("approver_id = ? AND status = ? AND is_active = ?", uid, model.ApprovalPending, true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var approvals []model.Approval
	offset := (page - 1) * limit
	err = s.db.WithContext(ctx).
		Preload("Request").
		Where("approver_id = ? AND status = ? AND is_active = ?", uid, model.ApprovalPending, true).
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&approvals).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]PendingApprovalResponse, 0, len(approvals))
	for _, a := range approvals {
		resp := PendingApprovalResponse{ApprovalSummary: toApprovalSummary(a)}
		if a.Request != nil {
			resp.RequestID = a.Request.ID.String()
			resp.RequestCode = a.Request.RequestCode
			resp.RequestType = a.Request.RequestType
			resp.EstimatedCost = a.Request.EstimatedCost
			resp.IsUrgent = a.Request.IsUrgent
		}
		out = append(out, resp)
	}
	return out, total, nil
}
