package service

import (
	"testing"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem(unitCost string, qty int) *model.RequestedItem {
	unit := decimal.RequireFromString(unitCost)
	return &model.RequestedItem{
		ID:             uuid.New(),
		Name:           "syringe 10ml",
		Quantity:       qty,
		UnitCost:       unit,
		TotalCost:      unit.Mul(decimal.NewFromInt(int64(qty))),
		ApprovalStatus: model.ItemStatusPending,
	}
}

func intPtr(n int) *int { return &n }

func TestApplyItemDecisionApprove(t *testing.T) {
	item := testItem("12.50", 4)
	actor := uuid.New()

	updates, err := applyItemDecision(item, ItemDecisionDTO{
		ItemID: item.ID.String(), Status: model.ItemStatusApproved, Comments: "ok",
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusApproved, updates["approval_status"])
	assert.Equal(t, model.ItemStatusApproved, item.ApprovalStatus)
	require.NotNil(t, item.DecidedBy)
	assert.Equal(t, actor, *item.DecidedBy)
	// no quantity revision, total untouched
	_, hasQty := updates["quantity"]
	assert.False(t, hasQty)
	assert.True(t, item.TotalCost.Equal(decimal.RequireFromString("50.00")))
}

func TestApplyItemDecisionQuantityRevision(t *testing.T) {
	item := testItem("12.50", 4)
	actor := uuid.New()

	updates, err := applyItemDecision(item, ItemDecisionDTO{
		ItemID: item.ID.String(), Status: model.ItemStatusApproved, Quantity: intPtr(2),
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, 2, updates["quantity"])
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.TotalCost.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, updates["total_cost"].(decimal.Decimal).Equal(item.TotalCost))
}

func TestApplyItemDecisionQuantityGuards(t *testing.T) {
	actor := uuid.New()

	// revision on a rejection
	item := testItem("5", 1)
	_, err := applyItemDecision(item, ItemDecisionDTO{
		ItemID: item.ID.String(), Status: model.ItemStatusRejected, Quantity: intPtr(2),
	}, actor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires an approved item")

	// non-positive quantity
	item = testItem("5", 1)
	_, err = applyItemDecision(item, ItemDecisionDTO{
		ItemID: item.ID.String(), Status: model.ItemStatusApproved, Quantity: intPtr(0),
	}, actor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestApplyItemDecisionPendingReset(t *testing.T) {
	actor := uuid.New()

	item := testItem("5", 2)
	item.ApprovalStatus = model.ItemStatusApproved
	item.DecidedBy = &actor

	updates, err := applyItemDecision(item, ItemDecisionDTO{
		ItemID: item.ID.String(), Status: model.ItemStatusPending,
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusPending, updates["approval_status"])
	assert.Equal(t, model.ItemStatusPending, item.ApprovalStatus)

	// the lock rule still guards a reset of someone else's rejection
	other := uuid.New()
	item.ApprovalStatus = model.ItemStatusRejected
	item.DecidedBy = &other
	_, err = applyItemDecision(item, ItemDecisionDTO{
		ItemID: item.ID.String(), Status: model.ItemStatusPending,
	}, actor)
	assert.ErrorIs(t, err, workflow.ErrItemLocked)

	// a revision cannot ride a reset
	item = testItem("5", 2)
	_, err = applyItemDecision(item, ItemDecisionDTO{
		ItemID: item.ID.String(), Status: model.ItemStatusPending, Quantity: intPtr(3),
	}, actor)
	require.Error(t, err)
}

func TestApplyItemDecisionLockRule(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	item := testItem("5", 1)
	item.ApprovalStatus = model.ItemStatusRejected
	item.DecidedBy = &first

	// a different approver cannot overturn the rejection
	updates, err := applyItemDecision(item, ItemDecisionDTO{
		ItemID: item.ID.String(), Status: model.ItemStatusApproved,
	}, second)
	assert.ErrorIs(t, err, workflow.ErrItemLocked)
	assert.Nil(t, updates)
	assert.Equal(t, model.ItemStatusRejected, item.ApprovalStatus)
	assert.Equal(t, first, *item.DecidedBy)

	// the original decider may revise their own mark
	_, err = applyItemDecision(item, ItemDecisionDTO{
		ItemID: item.ID.String(), Status: model.ItemStatusApproved,
	}, first)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusApproved, item.ApprovalStatus)
}
