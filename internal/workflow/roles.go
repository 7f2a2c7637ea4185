package workflow

import "strings"

// Role is an approver role understood by the routing engine. The set is
// closed: routing policy may only reference roles listed here.
type Role string

const (
	RoleHOD                Role = "HOD"
	RoleCMO                Role = "CMO"
	RoleCOO                Role = "COO"
	RoleCFO                Role = "CFO"
	RoleCEO                Role = "CEO"
	RoleSCM                Role = "SCM"
	RoleWarehouseManager   Role = "WAREHOUSE_MANAGER"
	RoleMaintenanceManager Role = "MAINTENANCE_MANAGER"
	RoleITManager          Role = "IT_MANAGER"
)

// roleTraits maps each role to its resolution capability. Global roles are
// resolved by role alone; the rest are scoped to the requesting department.
var roleTraits = map[Role]struct{ Global bool }{
	RoleHOD:                {Global: false},
	RoleCMO:                {Global: true},
	RoleCOO:                {Global: true},
	RoleCFO:                {Global: true},
	RoleCEO:                {Global: true},
	RoleSCM:                {Global: true},
	RoleWarehouseManager:   {Global: true},
	RoleMaintenanceManager: {Global: true},
	RoleITManager:          {Global: true},
}

// Roles returns the closed role set in a stable order
func Roles() []Role {
	return []Role{
		RoleHOD, RoleCMO, RoleCOO, RoleCFO, RoleCEO,
		RoleSCM, RoleWarehouseManager, RoleMaintenanceManager, RoleITManager,
	}
}

// ParseRole normalizes a stored role string into a known Role. Comparison
// is case-insensitive once, here at the boundary.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := roleTraits[r]
	return r, ok
}

// IsGlobal reports whether the role is resolved without regard to department
func (r Role) IsGlobal() bool {
	return roleTraits[r].Global
}

// SameRole compares a stored role string against a Role, tolerating case
// differences in legacy rows.
func SameRole(stored string, r Role) bool {
	return strings.EqualFold(strings.TrimSpace(stored), string(r))
}
