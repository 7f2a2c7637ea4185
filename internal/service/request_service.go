package service

import (
	"context"
	"errors"
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

type CreateItemDTO struct {
	Name     string          `json:"name" binding:"required"`
	Quantity int             `json:"quantity" binding:"required,gt=0"`
	UnitCost decimal.Decimal `json:"unit_cost" binding:"required"`
	Comments string          `json:"comments"`
}

type CreateRequestDTO struct {
	RequestType   string           `json:"request_type" binding:"required,oneof=STOCK NON_STOCK MEDICAL_DEVICE IT_ITEM MAINTENANCE WAREHOUSE_SUPPLY"`
	DepartmentID  string           `json:"department_id" binding:"required"`
	Domain        string           `json:"domain" binding:"omitempty,oneof=MEDICAL OPERATIONAL"` // optional override of the department type
	EstimatedCost *decimal.Decimal `json:"estimated_cost"`                                       // defaults to the item sum
	IsUrgent      bool             `json:"is_urgent"`
	Purpose       string           `json:"purpose"`
	Items         []CreateItemDTO  `json:"items" binding:"omitempty,dive"`
}

type RequestFilter struct {
	Status       string
	RequestType  string
	DepartmentID string
	RequesterID  string
	Page         int
	Limit        int
}

type ItemResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	ApprovalStatus string          `json:"approval_status"`
	Comments       string          `json:"comments"`
}

type ApprovalSummary struct {
	ID            string  `json:"id"`
	ApprovalLevel int     `json:"approval_level"`
	Role          string  `json:"role"`
	ApproverID    *string `json:"approver_id"`
	ApproverName  string  `json:"approver_name,omitempty"`
	Status        string  `json:"status"`
	IsActive      bool    `json:"is_active"`
	SelfApproved  bool    `json:"self_approved"`
	Comments      string  `json:"comments"`
	ApprovedAt    *string `json:"approved_at"`
}

type RequestResponse struct {
	ID            string            `json:"id"`
	RequestCode   string            `json:"request_code"`
	RequestType   string            `json:"request_type"`
	DepartmentID  string            `json:"department_id"`
	Domain        string            `json:"domain"`
	RequesterID   string            `json:"requester_id"`
	EstimatedCost decimal.Decimal   `json:"estimated_cost"`
	Status        string            `json:"status"`
	IsUrgent      bool              `json:"is_urgent"`
	Purpose       string            `json:"purpose"`
	Items         []ItemResponse    `json:"items,omitempty"`
	Approvals     []ApprovalSummary `json:"approvals,omitempty"`
	CreatedAt     string            `json:"created_at"`
}

// --- Interface ---

type RequestService interface {
	CreateRequest(ctx context.Context, requesterID string, req CreateRequestDTO) (*RequestResponse, error)
	GetRequest(ctx context.Context, id string) (*RequestResponse, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]RequestResponse, int64, error)
	UpdateEstimatedCost(ctx context.Context, id, actorID string, cost decimal.Decimal) (*RequestResponse, error)
	MarkCompleted(ctx context.Context, id, actorID string) (*RequestResponse, error)
	MarkReceived(ctx context.Context, id, actorID string) (*RequestResponse, error)
}

type requestService struct {
	db            *gorm.DB
	notifications NotificationService
}

func NewRequestService(db *gorm.DB, notifications NotificationService) RequestService {
	return &requestService{db: db, notifications: notifications}
}

// --- Implementation ---

// CreateRequest persists the request, resolves its approval chain and
// materializes the Approval rows atomically. Request and pipeline are
// created in one transaction; notifications go out after commit.
func (s *requestService) CreateRequest(ctx context.Context, requesterID string, req CreateRequestDTO) (*RequestResponse, error) {
	reqID, err := uuid.Parse(requesterID)
	if err != nil {
		return nil, fmt.Errorf("invalid requester id: %w", err)
	}
	deptID, err := uuid.Parse(req.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("invalid department id: %w", err)
	}

	var request model.Request
	var outbox []workflow.NotificationEvent

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var requester model.User
		if err := tx.First(&requester, "id = ?", reqID).Error; err != nil {
			return fmt.Errorf("requester not found: %w", err)
		}

		var dept model.Department
		if err := tx.First(&dept, "id = ?", deptID).Error; err != nil {
			return fmt.Errorf("department not found: %w", err)
		}

		// Domain follows the department type unless explicitly overridden
		domain := dept.Type
		if req.Domain != "" {
			domain = req.Domain
		}

		// Estimated cost: explicit value wins, otherwise the item sum
		cost := decimal.Zero
		for _, item := range req.Items {
			cost = cost.Add(item.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		if req.EstimatedCost != nil {
			cost = *req.EstimatedCost
		}

		code, err := generateRequestCode(tx)
		if err != nil {
			return fmt.Errorf("failed to generate request code: %w", err)
		}

		request = model.Request{
			RequestCode:   code,
			RequestType:   req.RequestType,
			DepartmentID:  deptID,
			Domain:        domain,
			RequesterID:   reqID,
			EstimatedCost: cost,
			Status:        model.RequestStatusSubmitted,
			IsUrgent:      req.IsUrgent,
			Purpose:       req.Purpose,
		}
		if err := tx.Create(&request).Error; err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		for _, item := range req.Items {
			row := model.RequestedItem{
				RequestID:      request.ID,
				Name:           item.Name,
				Quantity:       item.Quantity,
				UnitCost:       item.UnitCost,
				TotalCost:      item.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity))),
				ApprovalStatus: model.ItemStatusPending,
				Comments:       item.Comments,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to create requested item: %w", err)
			}
		}

		if err := appendRequestLogs(tx, request.ID, &reqID, []workflow.LogEntry{{
			Action: model.ActionCreateRequest,
			Details: map[string]interface{}{
				"request_type":   req.RequestType,
				"domain":         domain,
				"estimated_cost": cost.String(),
			},
		}}); err != nil {
			return err
		}

		steps, err := resolveChainFor(tx, &request)
		if err != nil {
			return err
		}

		created, logs, notifications, err := materializeSteps(tx, &request, steps, &requester, false)
		if err != nil {
			return err
		}
		if err := appendRequestLogs(tx, request.ID, nil, logs); err != nil {
			return err
		}
		outbox = append(outbox, notifications...)

		// Every level may have been self- or auto-approved on creation;
		// in that case the request finalizes without a single decision.
		if len(created) > 0 && workflow.DeriveRequestStatus(created) == model.RequestStatusApproved {
			if err := finalizeRequest(tx, &request, nil); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.notifications.Dispatch(outbox)
	return s.GetRequest(ctx, request.ID.String())
}

// resolveChainFor resolves the route chain for a request. Maintenance
// requests bypass the resolver: their pipeline opens with a single
// confirmation step assigned to the maintenance manager, and the real
// chain is resolved when that step is approved.
func resolveChainFor(tx *gorm.DB, request *model.Request) ([]workflow.RouteStep, error) {
	if request.RequestType == model.RequestTypeMaintenance {
		return []workflow.RouteStep{{Level: 1, Role: workflow.RoleMaintenanceManager}}, nil
	}

	dynamic, err := dynamicRoutes(tx, request)
	if err != nil {
		return nil, err
	}

	steps, err := workflow.Resolve(request.RequestType, request.Domain, request.EstimatedCost, dynamic)
	if err != nil {
		return nil, err
	}
	return steps, nil
}

// dynamicRoutes loads the dynamic routing rows for a request's type and domain
func dynamicRoutes(tx *gorm.DB, request *model.Request) ([]model.ApprovalRoute, error) {
	var dynamic []model.ApprovalRoute
	if err := tx.
		Where("request_type = ? AND department_type = ?", request.RequestType, request.Domain).
		Order("approval_level ASC, created_at ASC").
		Find(&dynamic).Error; err != nil {
		return nil, fmt.Errorf("failed to load routing policy: %w", err)
	}
	return dynamic, nil
}

func (s *requestService) GetRequest(ctx context.Context, id string) (*RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}

	var request model.Request
	err = s.db.WithContext(ctx).
		Preload("Items").
		Preload("Approvals", func(db *gorm.DB) *gorm.DB { return db.Order("approval_level ASC") }).
		Preload("Approvals.Approver").
		First(&request, "id = ?", requestID).Error
	if err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}

	resp := toRequestResponse(request)
	return &resp, nil
}

func (s *requestService) ListRequests(ctx context.Context, filter RequestFilter) ([]RequestResponse, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Request{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.RequestType != "" {
		query = query.Where("request_type = ?", filter.RequestType)
	}
	if filter.DepartmentID != "" {
		query = query.Where("department_id = ?", filter.DepartmentID)
	}
	if filter.RequesterID != "" {
		query = query.Where("requester_id = ?", filter.RequesterID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count requests: %w", err)
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	var requests []model.Request
	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&requests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch requests: %w", err)
	}

	out := make([]RequestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, toRequestResponse(r))
	}
	return out, total, nil
}

// UpdateEstimatedCost sets a new estimated cost on an open request and
// re-runs the route resolver: levels the larger amount now requires are
// inserted dormant, already-decided levels stay untouched. Caller must
// hold the cost-update permission (enforced at the handler).
func (s *requestService) UpdateEstimatedCost(ctx context.Context, id, actorID string, cost decimal.Decimal) (*RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}
	if cost.IsNegative() {
		return nil, errors.New("estimated cost cannot be negative")
	}

	var outbox []workflow.NotificationEvent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request model.Request
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&request, "id = ?", requestID).Error; err != nil {
			return fmt.Errorf("request not found: %w", err)
		}
		if request.Status != model.RequestStatusSubmitted {
			return fmt.Errorf("request is already %s", request.Status)
		}

		previous := request.EstimatedCost
		request.EstimatedCost = cost
		if err := tx.Model(&request).Update("estimated_cost", cost).Error; err != nil {
			return fmt.Errorf("failed to update estimated cost: %w", err)
		}

		if err := appendRequestLogs(tx, request.ID, &actor, []workflow.LogEntry{{
			Action: model.ActionCostUpdated,
			Details: map[string]interface{}{
				"previous": previous.String(),
				"current":  cost.String(),
			},
		}}); err != nil {
			return err
		}

		notifications, err := extendChain(tx, &request)
		if err != nil {
			return err
		}
		outbox = append(outbox, notifications...)
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.notifications.Dispatch(outbox)
	return s.GetRequest(ctx, id)
}

// extendChain re-resolves the route chain after a cost change and inserts
// whatever levels are missing, deduplicated against existing ones. Used by
// the cost-update path and by decisions that carry a cost update.
func extendChain(tx *gorm.DB, request *model.Request) ([]workflow.NotificationEvent, error) {
	if request.RequestType == model.RequestTypeMaintenance {
		// Maintenance chains are materialized by the confirmation step
		var n int64
		if err := tx.Model(&model.Approval{}).
			Where("request_id = ? AND approval_level > 1", request.ID).
			Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
	}

	steps, err := resolveChainFor(tx, request)
	if err != nil {
		return nil, err
	}

	var existing []model.Approval
	if err := tx.Where("request_id = ?", request.ID).
		Order("approval_level ASC").Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to load approvals: %w", err)
	}

	missing := workflow.MissingSteps(steps, existing)
	if len(missing) == 0 {
		return nil, nil
	}

	hasActive := workflow.ActiveCount(existing) > 0
	_, logs, notifications, err := materializeSteps(tx, request, missing, nil, hasActive)
	if err != nil {
		return nil, err
	}
	if err := appendRequestLogs(tx, request.ID, nil, logs); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *requestService) MarkCompleted(ctx context.Context, id, actorID string) (*RequestResponse, error) {
	return s.transition(ctx, id, actorID, model.RequestStatusApproved, model.RequestStatusCompleted, model.ActionRequestCompleted)
}

func (s *requestService) MarkReceived(ctx context.Context, id, actorID string) (*RequestResponse, error) {
	return s.transition(ctx, id, actorID, model.RequestStatusCompleted, model.RequestStatusReceived, model.ActionRequestReceived)
}

// transition moves a request between the post-approval fulfilment states
func (s *requestService) transition(ctx context.Context, id, actorID, from, to, action string) (*RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request model.Request
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&request, "id = ?", requestID).Error; err != nil {
			return fmt.Errorf("request not found: %w", err)
		}
		if request.Status != from {
			return fmt.Errorf("request is %s, expected %s", request.Status, from)
		}
		if err := tx.Model(&request).Update("status", to).Error; err != nil {
			return fmt.Errorf("failed to update request status: %w", err)
		}
		return appendRequestLogs(tx, request.ID, &actor, []workflow.LogEntry{{Action: action}})
	})

	if err != nil {
		return nil, err
	}
	return s.GetRequest(ctx, id)
}

// finalizeRequest marks a request approved and bulk-approves every item
// still undecided; the absence of a per-item decision at this point means
// no reviewer flagged it.
func finalizeRequest(tx *gorm.DB, request *model.Request, actorID *uuid.UUID) error {
	if err := tx.Model(request).Update("status", model.RequestStatusApproved).Error; err != nil {
		return fmt.Errorf("failed to finalize request: %w", err)
	}

	result := tx.Model(&model.RequestedItem{}).
		Where("request_id = ? AND approval_status = ?", request.ID, model.ItemStatusPending).
		Update("approval_status", model.ItemStatusApproved)
	if result.Error != nil {
		return fmt.Errorf("failed to auto-approve items: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		if err := appendRequestLogs(tx, request.ID, actorID, []workflow.LogEntry{{
			Action:  model.ActionItemsAutoApproved,
			Details: map[string]interface{}{"count": result.RowsAffected},
		}}); err != nil {
			return err
		}
	}
	return nil
}

// generateRequestCode produces REQ-YYYYMMDD-NNNNN, serialized per day
func generateRequestCode(tx *gorm.DB) (string, error) {
	today := time.Now().Format("20060102")
	prefix := "REQ-" + today + "-"

	// Use advisory lock to prevent concurrent duplicate request codes
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix).Error; err != nil {
		return "", fmt.Errorf("failed to acquire request code lock: %w", err)
	}

	var count int64
	if err := tx.Model(&model.Request{}).
		Where("request_code LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

// --- Helpers ---

func toItemResponse(i model.RequestedItem) ItemResponse {
	return ItemResponse{
		ID:             i.ID.String(),
		Name:           i.Name,
		Quantity:       i.Quantity,
		UnitCost:       i.UnitCost,
		TotalCost:      i.TotalCost,
		ApprovalStatus: i.ApprovalStatus,
		Comments:       i.Comments,
	}
}

func toApprovalSummary(a model.Approval) ApprovalSummary {
	resp := ApprovalSummary{
		ID:            a.ID.String(),
		ApprovalLevel: a.ApprovalLevel,
		Role:          a.Role,
		Status:        a.Status,
		IsActive:      a.IsActive,
		SelfApproved:  a.SelfApproved,
		Comments:      a.Comments,
	}
	if a.ApproverID != nil {
		s := a.ApproverID.String()
		resp.ApproverID = &s
	}
	if a.Approver != nil {
		resp.ApproverName = a.Approver.Username
	}
	if a.ApprovedAt != nil {
		s := a.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &s
	}
	return resp
}

func toRequestResponse(r model.Request) RequestResponse {
	resp := RequestResponse{
		ID:            r.ID.String(),
		RequestCode:   r.RequestCode,
		RequestType:   r.RequestType,
		DepartmentID:  r.DepartmentID.String(),
		Domain:        r.Domain,
		RequesterID:   r.RequesterID.String(),
		EstimatedCost: r.EstimatedCost,
		Status:        r.Status,
		IsUrgent:      r.IsUrgent,
		Purpose:       r.Purpose,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	for _, item := range r.Items {
		resp.Items = append(resp.Items, toItemResponse(item))
	}
	for _, a := range r.Approvals {
		resp.Approvals = append(resp.Approvals, toApprovalSummary(a))
	}
	return resp
}
