package workflow

import (
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanReassignmentWithReplacement(t *testing.T) {
	req, chain := newChain(RoleHOD, RoleCMO, RoleSCM)
	replacement := &model.User{ID: uuid.New(), Role: "HOD", IsActive: true}

	plan := PlanReassignment(req, chain[0], replacement, chain, time.Now())

	assert.Equal(t, SweepReassigned, plan.Resolution)
	require.NotNil(t, plan.NewApproverID)
	assert.Equal(t, replacement.ID, *plan.NewApproverID)
	assert.Nil(t, plan.DecidedAt)
	assert.Equal(t, 2, plan.ActivateLevel)

	require.Len(t, plan.Notifications, 1)
	assert.Equal(t, replacement.ID, plan.Notifications[0].UserID)
	require.Len(t, plan.Logs, 1)
	assert.Equal(t, model.ActionReassignApprover, plan.Logs[0].Action)
}

func TestPlanReassignmentFailOpen(t *testing.T) {
	req, chain := newChain(RoleHOD, RoleCMO)

	plan := PlanReassignment(req, chain[0], nil, chain, time.Now())

	assert.Equal(t, SweepAutoApproved, plan.Resolution)
	assert.Nil(t, plan.NewApproverID)
	require.NotNil(t, plan.DecidedAt)
	assert.Equal(t, 2, plan.ActivateLevel)

	require.Len(t, plan.Logs, 1)
	assert.Equal(t, model.ActionAutoApproveLevel, plan.Logs[0].Action)
	assert.Contains(t, plan.Logs[0].Comments, "no active HOD in department")
	assert.Empty(t, plan.Notifications)
}

func TestPlanReassignmentLastLevelHasNothingToActivate(t *testing.T) {
	req, chain := newChain(RoleHOD)

	plan := PlanReassignment(req, chain[0], nil, chain, time.Now())
	assert.Zero(t, plan.ActivateLevel)
}
