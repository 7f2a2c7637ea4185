package workflow

import (
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rolesOf(steps []RouteStep) []Role {
	out := make([]Role, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.Role)
	}
	return out
}

func TestResolveStockMedicalLowBand(t *testing.T) {
	steps, err := Resolve(model.RequestTypeStock, model.DeptTypeMedical, decimal.NewFromInt(3000), nil)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleHOD, RoleCMO, RoleSCM}, rolesOf(steps))
	for i, s := range steps {
		assert.Equal(t, i+1, s.Level)
	}
}

func TestResolveNonStockOperationalHighTier(t *testing.T) {
	steps, err := Resolve(model.RequestTypeNonStock, model.DeptTypeOperational, decimal.NewFromInt(15000), nil)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleHOD, RoleWarehouseManager, RoleSCM, RoleCOO, RoleCFO}, rolesOf(steps))
}

func TestResolveBandBoundaries(t *testing.T) {
	low, err := Resolve(model.RequestTypeStock, model.DeptTypeMedical, decimal.NewFromInt(5000), nil)
	require.NoError(t, err)
	assert.Len(t, low, 3)

	high, err := Resolve(model.RequestTypeStock, model.DeptTypeMedical, decimal.NewFromInt(5001), nil)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleHOD, RoleCMO, RoleSCM, RoleCOO, RoleCFO}, rolesOf(high))
}

func TestResolveMaintenanceSkipsRouting(t *testing.T) {
	steps, err := Resolve(model.RequestTypeMaintenance, model.DeptTypeOperational, decimal.NewFromInt(100), nil)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestResolveMissingChainIsConfigurationError(t *testing.T) {
	_, err := Resolve(model.RequestTypeMedicalDevice, model.DeptTypeOperational, decimal.NewFromInt(100), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRouteChain)
}

func dynRoute(level int, role string, min, max int64, createdAt time.Time) model.ApprovalRoute {
	lo := decimal.NewFromInt(min)
	hi := decimal.NewFromInt(max)
	return model.ApprovalRoute{
		ID:             uuid.New(),
		RequestType:    model.RequestTypeStock,
		DepartmentType: model.DeptTypeMedical,
		ApprovalLevel:  level,
		Role:           role,
		MinAmount:      &lo,
		MaxAmount:      &hi,
		CreatedAt:      createdAt,
	}
}

func TestResolveDynamicTakesPrecedence(t *testing.T) {
	now := time.Now()
	dynamic := []model.ApprovalRoute{
		dynRoute(2, "SCM", 0, 100000, now),
		dynRoute(1, "HOD", 0, 100000, now),
	}

	steps, err := Resolve(model.RequestTypeStock, model.DeptTypeMedical, decimal.NewFromInt(3000), dynamic)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleHOD, RoleSCM}, rolesOf(steps))
	assert.Equal(t, []int{1, 2}, []int{steps[0].Level, steps[1].Level})
}

func TestResolveDynamicOutOfBandFallsBackToStatic(t *testing.T) {
	dynamic := []model.ApprovalRoute{
		dynRoute(1, "CEO", 50000, 100000, time.Now()),
	}

	steps, err := Resolve(model.RequestTypeStock, model.DeptTypeMedical, decimal.NewFromInt(3000), dynamic)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleHOD, RoleCMO, RoleSCM}, rolesOf(steps))
}

func TestResolveDynamicStableTieBreak(t *testing.T) {
	base := time.Now()
	dynamic := []model.ApprovalRoute{
		dynRoute(1, "CMO", 0, 100000, base.Add(time.Minute)),
		dynRoute(1, "HOD", 0, 100000, base),
	}

	steps, err := Resolve(model.RequestTypeStock, model.DeptTypeMedical, decimal.NewFromInt(3000), dynamic)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleHOD, RoleCMO}, rolesOf(steps))
}

func TestResolveNilBoundsAreOpenEnded(t *testing.T) {
	row := dynRoute(1, "HOD", 0, 0, time.Now())
	row.MinAmount = nil
	row.MaxAmount = nil

	steps, err := Resolve(model.RequestTypeStock, model.DeptTypeMedical, decimal.NewFromInt(987654), []model.ApprovalRoute{row})
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleHOD}, rolesOf(steps))
}

func TestMissingStepsDeduplicatesLevelsAndRoles(t *testing.T) {
	steps := []RouteStep{
		{Level: 1, Role: RoleHOD},
		{Level: 2, Role: RoleCMO},
		{Level: 3, Role: RoleSCM},
	}
	existing := []model.Approval{
		{ApprovalLevel: 1, Role: "HOD"},
		{ApprovalLevel: 4, Role: "scm"}, // same role, legacy casing
	}

	missing := MissingSteps(steps, existing)
	require.Len(t, missing, 1)
	assert.Equal(t, RoleCMO, missing[0].Role)
	assert.Equal(t, 2, missing[0].Level)
}

func TestRoleCapabilities(t *testing.T) {
	hod, ok := ParseRole("hod")
	require.True(t, ok)
	assert.False(t, hod.IsGlobal())

	for _, global := range []Role{RoleSCM, RoleCOO, RoleCMO, RoleCFO, RoleCEO, RoleWarehouseManager, RoleITManager, RoleMaintenanceManager} {
		assert.True(t, global.IsGlobal(), string(global))
	}

	_, ok = ParseRole("INTERN")
	assert.False(t, ok)
}
