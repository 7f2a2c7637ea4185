package service

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- DTOs ---

type ItemDecisionDTO struct {
	ItemID   string `json:"item_id" binding:"required,uuid"`
	Status   string `json:"status" binding:"required,oneof=APPROVED REJECTED PENDING"`
	Quantity *int   `json:"quantity"` // optional revision, approved items only
	Comments string `json:"comments"`
}

type DecideItemsDTO struct {
	Decisions []ItemDecisionDTO `json:"decisions" binding:"required,min=1,dive"`
}

type DecideItemsResponse struct {
	UpdatedItems         []ItemResponse   `json:"updated_items"`
	ApprovedCount        int              `json:"approved_count"`
	RejectedCount        int              `json:"rejected_count"`
	LockedItems          []string         `json:"locked_items,omitempty"` // skipped: already rejected by someone else
	UpdatedEstimatedCost *decimal.Decimal `json:"updated_estimated_cost,omitempty"`
}

// --- Interface ---

type ItemService interface {
	DecideItems(ctx context.Context, approvalID, actorID string, req DecideItemsDTO) (*DecideItemsResponse, error)
}

type itemService struct {
	db *gorm.DB
}

func NewItemService(db *gorm.DB) ItemService {
	return &itemService{db: db}
}

// applyItemDecision works out the column updates for one item decision and
// mutates the in-memory item to match. A rejection recorded by a different
// identity locks the item: the decision returns ErrItemLocked and the batch
// reports the item instead of overwriting it.
func applyItemDecision(item *model.RequestedItem, d ItemDecisionDTO, actor uuid.UUID) (map[string]interface{}, error) {
	if item.ApprovalStatus == model.ItemStatusRejected &&
		item.DecidedBy != nil && *item.DecidedBy != actor {
		return nil, fmt.Errorf("item %s: %w", item.ID, workflow.ErrItemLocked)
	}

	updates := map[string]interface{}{
		"approval_status": d.Status,
		"decided_by":      actor,
		"comments":        d.Comments,
	}

	if d.Quantity != nil {
		if d.Status != model.ItemStatusApproved {
			return nil, fmt.Errorf("quantity revision requires an approved item, got %s", d.Status)
		}
		if *d.Quantity <= 0 {
			return nil, fmt.Errorf("quantity must be positive, got %d", *d.Quantity)
		}
		newTotal := item.UnitCost.Mul(decimal.NewFromInt(int64(*d.Quantity)))
		updates["quantity"] = *d.Quantity
		updates["total_cost"] = newTotal
		item.Quantity = *d.Quantity
		item.TotalCost = newTotal
	}

	item.ApprovalStatus = d.Status
	id := actor
	item.DecidedBy = &id
	item.Comments = d.Comments
	return updates, nil
}

// DecideItems records per-item marks against an active approval, ahead of
// the level decision itself: approve, reject, or a reset back to pending.
// An item already rejected by a different approver is locked: the call
// skips it and reports it instead of failing the whole batch. Quantity
// revisions recompute the item total and re-aggregate the request's
// estimated cost.
func (s *itemService) DecideItems(ctx context.Context, approvalID, actorID string, req DecideItemsDTO) (*DecideItemsResponse, error) {
	aID, err := uuid.Parse(approvalID)
	if err != nil {
		return nil, fmt.Errorf("invalid approval id: %w", err)
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	var resp DecideItemsResponse

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
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

		if request.RequestType == model.RequestTypeWarehouseSupply {
			return workflow.ErrItemOverlayUnsupported
		}
		if request.Status != model.RequestStatusSubmitted {
			return fmt.Errorf("%w: request is %s", workflow.ErrInvalidStatus, request.Status)
		}
		if approval.Status != model.ApprovalPending {
			return workflow.ErrNotPending
		}
		if !approval.IsActive {
			return workflow.ErrNotActive
		}
		if approval.ApproverID == nil || *approval.ApproverID != actorUUID {
			return workflow.ErrWrongApprover
		}

		var items []model.RequestedItem
		if err := tx.Where("request_id = ?", request.ID).Find(&items).Error; err != nil {
			return fmt.Errorf("failed to load items: %w", err)
		}
		byID := make(map[uuid.UUID]*model.RequestedItem, len(items))
		for i := range items {
			byID[items[i].ID] = &items[i]
		}

		costChanged := false
		pendingCount := 0
		details := make([]map[string]interface{}, 0, len(req.Decisions))

		for _, d := range req.Decisions {
			itemID, err := uuid.Parse(d.ItemID)
			if err != nil {
				return fmt.Errorf("invalid item id %q: %w", d.ItemID, err)
			}
			item, ok := byID[itemID]
			if !ok {
				return fmt.Errorf("item %s does not belong to request %s", d.ItemID, request.RequestCode)
			}

			updates, err := applyItemDecision(item, d, actorUUID)
			if errors.Is(err, workflow.ErrItemLocked) {
				resp.LockedItems = append(resp.LockedItems, item.ID.String())
				continue
			}
			if err != nil {
				return err
			}
			if _, ok := updates["quantity"]; ok {
				costChanged = true
			}

			if err := tx.Model(&model.RequestedItem{}).Where("id = ?", item.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update item %s: %w", item.ID, err)
			}

			switch d.Status {
			case model.ItemStatusApproved:
				resp.ApprovedCount++
			case model.ItemStatusRejected:
				resp.RejectedCount++
			default:
				pendingCount++
			}
			resp.UpdatedItems = append(resp.UpdatedItems, toItemResponse(*item))
			detail := map[string]interface{}{"item_id": item.ID.String(), "status": d.Status}
			if d.Quantity != nil {
				detail["quantity"] = *d.Quantity
			}
			details = append(details, detail)
		}

		if costChanged {
			total := decimal.Zero
			for i := range items {
				total = total.Add(items[i].TotalCost)
			}
			if err := tx.Model(&request).Update("estimated_cost", total).Error; err != nil {
				return fmt.Errorf("failed to update estimated cost: %w", err)
			}
			resp.UpdatedEstimatedCost = &total
		}

		return appendRequestLogs(tx, request.ID, &actorUUID, []workflow.LogEntry{{
			Action: model.ActionItemDecisions,
			Details: map[string]interface{}{
				"approval_id": approval.ID.String(),
				"approved":    resp.ApprovedCount,
				"rejected":    resp.RejectedCount,
				"pending":     pendingCount,
				"locked":      len(resp.LockedItems),
				"decisions":   details,
			},
		}})
	})

	if err != nil {
		return nil, err
	}
	return &resp, nil
}
