package service

import (
	"context"
	"fmt"

	"backend/internal/model"
	"backend/internal/workflow"

	"gorm.io/gorm"
)

// --- DTOs ---

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// --- Interface ---

// RoleService manages the permission catalog. Workflow roles themselves
// are a closed set (internal/workflow/roles.go); what is configurable
// here is which portal permissions each role carries.
type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	db *gorm.DB
}

func NewRoleService(db *gorm.DB) RoleService {
	return &roleService{db: db}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	var roles []model.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("name ASC").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	var perms []model.Permission
	if err := s.db.WithContext(ctx).Order(`"group" ASC, code ASC`).Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

func (s *roleService) GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error) {
	var role model.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").First(&role, "name = ?", roleName).Error; err != nil {
		return nil, fmt.Errorf("role not found: %w", err)
	}

	codes := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		codes = append(codes, p.Code)
	}
	return codes, nil
}

// SeedDefaultRolesAndPermissions creates the default permissions and roles if not already present
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	// Define all permissions
	defaultPermissions := []model.Permission{
		{Code: "dashboard.read", Name: "View dashboard and statistics", Group: "dashboard"},
		{Code: "requests.read", Name: "View requests", Group: "requests"},
		{Code: "requests.write", Name: "Create requests", Group: "requests"},
		{Code: "requests.cost_update", Name: "Update estimated cost mid-approval", Group: "requests"},
		{Code: "requests.fulfil", Name: "Mark requests completed / received", Group: "requests"},
		{Code: "approvals.read", Name: "View approval queue", Group: "approvals"},
		{Code: "approvals.decide", Name: "Approve / reject requests", Group: "approvals"},
		{Code: "approvals.items", Name: "Record item-level decisions", Group: "approvals"},
		{Code: "routes.read", Name: "View approval routes", Group: "routes"},
		{Code: "routes.manage", Name: "Manage approval routes", Group: "routes"},
		{Code: "users.read", Name: "View users", Group: "users"},
		{Code: "users.write", Name: "Manage users", Group: "users"},
		{Code: "departments.read", Name: "View departments", Group: "departments"},
		{Code: "departments.write", Name: "Manage departments", Group: "departments"},
		{Code: "audit.read", Name: "View audit trail", Group: "audit"},
		{Code: "sweeper.run", Name: "Run the reassignment sweeper", Group: "admin"},
		{Code: "roles.manage", Name: "Manage roles and permissions", Group: "roles"},
		{Code: "attachments.write", Name: "Upload request attachments", Group: "attachments"},
	}

	// Upsert permissions
	for i := range defaultPermissions {
		p := &defaultPermissions[i]
		var existing model.Permission
		result := s.db.WithContext(ctx).Where("code = ?", p.Code).First(&existing)
		if result.Error != nil {
			// Not found, create
			if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
				return fmt.Errorf("failed to seed permission '%s': %w", p.Code, err)
			}
		} else {
			p.ID = existing.ID // Use existing ID
			// Update name/group if changed
			s.db.WithContext(ctx).Exec(
				`UPDATE permissions SET name = ?, "group" = ? WHERE id = ?`,
				p.Name, p.Group, existing.ID,
			)
		}
	}

	permByCode := make(map[string]model.Permission)
	for _, p := range defaultPermissions {
		permByCode[p.Code] = p
	}

	approverPerms := []string{
		"dashboard.read", "requests.read", "requests.write",
		"approvals.read", "approvals.decide", "approvals.items",
		"audit.read", "attachments.write",
	}

	// Define roles with their permissions
	roleDefinitions := map[string]struct {
		Description string
		PermCodes   []string
	}{
		"admin": {
			Description: "System administrator with full access",
			PermCodes: []string{
				"dashboard.read",
				"requests.read", "requests.write", "requests.cost_update", "requests.fulfil",
				"approvals.read", "approvals.decide", "approvals.items",
				"routes.read", "routes.manage",
				"users.read", "users.write",
				"departments.read", "departments.write",
				"audit.read", "sweeper.run", "roles.manage",
				"attachments.write",
			},
		},
	}
	for _, r := range workflow.Roles() {
		perms := approverPerms
		switch r {
		case workflow.RoleSCM:
			perms = append(append([]string{}, approverPerms...),
				"requests.cost_update", "requests.fulfil", "routes.read")
		case workflow.RoleWarehouseManager:
			perms = append(append([]string{}, approverPerms...), "requests.fulfil")
		}
		roleDefinitions[string(r)] = struct {
			Description string
			PermCodes   []string
		}{
			Description: "Workflow role " + string(r),
			PermCodes:   perms,
		}
	}

	for roleName, def := range roleDefinitions {
		var role model.Role
		result := s.db.WithContext(ctx).Where("name = ?", roleName).First(&role)
		if result.Error != nil {
			// Create role
			role = model.Role{
				Name:        roleName,
				Description: def.Description,
				IsSystem:    true,
			}
			if err := s.db.WithContext(ctx).Create(&role).Error; err != nil {
				return fmt.Errorf("failed to seed role '%s': %w", roleName, err)
			}
		}

		// Assign permissions
		perms := make([]model.Permission, 0, len(def.PermCodes))
		for _, code := range def.PermCodes {
			if p, ok := permByCode[code]; ok {
				perms = append(perms, p)
			}
		}
		if err := s.db.WithContext(ctx).Model(&role).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("failed to assign permissions to role '%s': %w", roleName, err)
		}
	}

	return nil
}

// --- Helpers ---

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}

	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:    p.ID.String(),
		Code:  p.Code,
		Name:  p.Name,
		Group: p.Group,
	}
}
