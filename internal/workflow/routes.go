package workflow

import (
	"fmt"
	"sort"
	"strings"

	"backend/internal/model"

	"github.com/shopspring/decimal"
)

// RouteStep is one entry of a resolved approval chain
type RouteStep struct {
	Level int
	Role  Role
}

// costBand is one precomputed amount range of the static routing table
type costBand struct {
	label string
	min   decimal.Decimal
	max   decimal.Decimal
}

var (
	bandCeiling = decimal.NewFromInt(999999999)

	bandLow5k   = costBand{label: "0-5000", min: decimal.Zero, max: decimal.NewFromInt(5000)}
	bandHigh5k  = costBand{label: "5001-999999999", min: decimal.NewFromInt(5001), max: bandCeiling}
	bandLow10k  = costBand{label: "0-10000", min: decimal.Zero, max: decimal.NewFromInt(10000)}
	bandHigh10k = costBand{label: "10001-999999999", min: decimal.NewFromInt(10001), max: bandCeiling}
	bandLow20k  = costBand{label: "0-20000", min: decimal.Zero, max: decimal.NewFromInt(20000)}
	bandHigh20k = costBand{label: "20001-999999999", min: decimal.NewFromInt(20001), max: bandCeiling}
	bandAll     = costBand{label: "0-999999999", min: decimal.Zero, max: bandCeiling}
)

// staticBands lists the cost tiers defined per "{type}-{Domain}" pair
var staticBands = map[string][]costBand{
	"STOCK-Medical":                {bandLow5k, bandHigh5k},
	"STOCK-Operational":            {bandLow5k, bandHigh5k},
	"NON_STOCK-Medical":            {bandLow10k, bandHigh10k},
	"NON_STOCK-Operational":        {bandLow10k, bandHigh10k},
	"MEDICAL_DEVICE-Medical":       {bandLow20k, bandHigh20k},
	"IT_ITEM-Medical":              {bandLow10k, bandHigh10k},
	"IT_ITEM-Operational":          {bandLow10k, bandHigh10k},
	"WAREHOUSE_SUPPLY-Medical":     {bandAll},
	"WAREHOUSE_SUPPLY-Operational": {bandAll},
	"MAINTENANCE-Medical":          {bandLow10k, bandHigh10k},
	"MAINTENANCE-Operational":      {bandLow10k, bandHigh10k},
}

// staticChains is the fallback routing table used when no dynamic
// ApprovalRoute rows match. Keys are "{type}-{Domain}-{band}". A missing
// entry for a computed key is a configuration error fatal to request
// creation.
var staticChains = map[string][]Role{
	"STOCK-Medical-0-5000":                      {RoleHOD, RoleCMO, RoleSCM},
	"STOCK-Medical-5001-999999999":              {RoleHOD, RoleCMO, RoleSCM, RoleCOO, RoleCFO},
	"STOCK-Operational-0-5000":                  {RoleHOD, RoleSCM},
	"STOCK-Operational-5001-999999999":          {RoleHOD, RoleSCM, RoleCOO, RoleCFO},
	"NON_STOCK-Medical-0-10000":                 {RoleHOD, RoleCMO, RoleWarehouseManager, RoleSCM},
	"NON_STOCK-Medical-10001-999999999":         {RoleHOD, RoleCMO, RoleWarehouseManager, RoleSCM, RoleCOO, RoleCFO},
	"NON_STOCK-Operational-0-10000":             {RoleHOD, RoleWarehouseManager, RoleSCM},
	"NON_STOCK-Operational-10001-999999999":     {RoleHOD, RoleWarehouseManager, RoleSCM, RoleCOO, RoleCFO},
	"MEDICAL_DEVICE-Medical-0-20000":            {RoleHOD, RoleCMO, RoleSCM},
	"MEDICAL_DEVICE-Medical-20001-999999999":    {RoleHOD, RoleCMO, RoleSCM, RoleCFO, RoleCEO},
	"IT_ITEM-Medical-0-10000":                   {RoleHOD, RoleITManager, RoleSCM},
	"IT_ITEM-Medical-10001-999999999":           {RoleHOD, RoleITManager, RoleSCM, RoleCOO, RoleCFO},
	"IT_ITEM-Operational-0-10000":               {RoleHOD, RoleITManager, RoleSCM},
	"IT_ITEM-Operational-10001-999999999":       {RoleHOD, RoleITManager, RoleSCM, RoleCOO, RoleCFO},
	"WAREHOUSE_SUPPLY-Medical-0-999999999":     {RoleWarehouseManager, RoleSCM},
	"WAREHOUSE_SUPPLY-Operational-0-999999999": {RoleWarehouseManager, RoleSCM},
	"MAINTENANCE-Medical-0-10000":              {RoleHOD, RoleSCM},
	"MAINTENANCE-Medical-10001-999999999":      {RoleHOD, RoleSCM, RoleCOO, RoleCFO},
	"MAINTENANCE-Operational-0-10000":          {RoleHOD, RoleSCM},
	"MAINTENANCE-Operational-10001-999999999":  {RoleHOD, RoleSCM, RoleCOO, RoleCFO},
}

// capitalizeDomain renders the department type the way static keys expect:
// MEDICAL -> Medical, OPERATIONAL -> Operational.
func capitalizeDomain(departmentType string) string {
	d := strings.ToLower(strings.TrimSpace(departmentType))
	if d == "" {
		return ""
	}
	return strings.ToUpper(d[:1]) + d[1:]
}

// Resolve computes the ordered approver chain for (requestType,
// departmentType, amount). Dynamic ApprovalRoute rows matching the amount
// band take precedence, ordered by level then insertion order; otherwise
// the static table applies. Maintenance requests legitimately resolve to
// an empty chain; their pipeline starts with a requester confirmation
// step created outside this resolver.
//
// Resolve is safe to call again with an updated amount: the caller
// deduplicates the returned steps against levels that already exist.
func Resolve(requestType, departmentType string, amount decimal.Decimal, dynamic []model.ApprovalRoute) ([]RouteStep, error) {
	if requestType == model.RequestTypeMaintenance {
		return nil, nil
	}
	return resolveChain(requestType, departmentType, amount, dynamic)
}

// ResolveMaintenance computes the chain inserted after a maintenance
// request's confirmation step, once domain and cost are known. Levels are
// offset so they slot in above the confirmation level.
func ResolveMaintenance(departmentType string, amount decimal.Decimal, dynamic []model.ApprovalRoute, afterLevel int) ([]RouteStep, error) {
	steps, err := resolveChain(model.RequestTypeMaintenance, departmentType, amount, dynamic)
	if err != nil {
		return nil, err
	}
	for i := range steps {
		steps[i].Level += afterLevel
	}
	return steps, nil
}

func resolveChain(requestType, departmentType string, amount decimal.Decimal, dynamic []model.ApprovalRoute) ([]RouteStep, error) {
	if steps := resolveDynamic(requestType, departmentType, amount, dynamic); len(steps) > 0 {
		return steps, nil
	}
	return resolveStatic(requestType, departmentType, amount)
}

func resolveDynamic(requestType, departmentType string, amount decimal.Decimal, dynamic []model.ApprovalRoute) []RouteStep {
	matched := make([]model.ApprovalRoute, 0, len(dynamic))
	for _, row := range dynamic {
		if row.RequestType != requestType || !strings.EqualFold(row.DepartmentType, departmentType) {
			continue
		}
		min := decimal.Zero
		if row.MinAmount != nil {
			min = *row.MinAmount
		}
		if amount.LessThan(min) {
			continue
		}
		if row.MaxAmount != nil && amount.GreaterThan(*row.MaxAmount) {
			continue
		}
		matched = append(matched, row)
	}

	// Stable: level first, insertion order as tie-break
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].ApprovalLevel != matched[j].ApprovalLevel {
			return matched[i].ApprovalLevel < matched[j].ApprovalLevel
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	steps := make([]RouteStep, 0, len(matched))
	for _, row := range matched {
		role, ok := ParseRole(row.Role)
		if !ok {
			continue
		}
		steps = append(steps, RouteStep{Level: row.ApprovalLevel, Role: role})
	}
	return steps
}

func resolveStatic(requestType, departmentType string, amount decimal.Decimal) ([]RouteStep, error) {
	pair := requestType + "-" + capitalizeDomain(departmentType)
	bands, ok := staticBands[pair]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRouteChain, pair)
	}

	var band *costBand
	for i := range bands {
		if amount.GreaterThanOrEqual(bands[i].min) && amount.LessThanOrEqual(bands[i].max) {
			band = &bands[i]
			break
		}
	}
	if band == nil {
		return nil, fmt.Errorf("%w: %s amount %s outside all bands", ErrNoRouteChain, pair, amount.String())
	}

	key := pair + "-" + band.label
	roles, ok := staticChains[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRouteChain, key)
	}

	steps := make([]RouteStep, 0, len(roles))
	for i, role := range roles {
		steps = append(steps, RouteStep{Level: i + 1, Role: role})
	}
	return steps, nil
}

// MissingSteps filters a resolved chain down to the steps that still need
// Approval rows: a step is dropped when its level already exists or when
// its role already appears somewhere in the existing chain
// (role-deduplication: a signer never signs the same request twice).
func MissingSteps(steps []RouteStep, existing []model.Approval) []RouteStep {
	levels := make(map[int]bool, len(existing))
	roles := make(map[Role]bool, len(existing))
	for _, a := range existing {
		levels[a.ApprovalLevel] = true
		if r, ok := ParseRole(a.Role); ok {
			roles[r] = true
		}
	}

	missing := make([]RouteStep, 0, len(steps))
	for _, s := range steps {
		if levels[s.Level] || roles[s.Role] {
			continue
		}
		missing = append(missing, s)
	}
	return missing
}
