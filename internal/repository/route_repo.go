package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RouteRepository exposes the read-only routing policy store plus the
// department-type lookup the resolver needs to derive a request's domain.
type RouteRepository interface {
	LookupRoutes(ctx context.Context, requestType, departmentType string) ([]model.ApprovalRoute, error)
	LookupDepartmentType(ctx context.Context, departmentID uuid.UUID) (string, error)
	ListAll(ctx context.Context, page, limit int) ([]model.ApprovalRoute, int64, error)
	Create(ctx context.Context, route *model.ApprovalRoute) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type routeRepository struct {
	db *gorm.DB
}

func NewRouteRepository(db *gorm.DB) RouteRepository {
	return &routeRepository{db: db}
}

// LookupRoutes returns every dynamic route row for the (type, domain)
// pair; band filtering and ordering belong to the workflow resolver.
func (r *routeRepository) LookupRoutes(ctx context.Context, requestType, departmentType string) ([]model.ApprovalRoute, error) {
	var routes []model.ApprovalRoute
	err := GetDB(ctx, r.db).
		Where("request_type = ? AND department_type = ?", requestType, departmentType).
		Order("approval_level ASC, created_at ASC").
		Find(&routes).Error
	if err != nil {
		return nil, err
	}
	return routes, nil
}

func (r *routeRepository) LookupDepartmentType(ctx context.Context, departmentID uuid.UUID) (string, error) {
	var dept model.Department
	if err := GetDB(ctx, r.db).First(&dept, "id = ?", departmentID).Error; err != nil {
		return "", err
	}
	return dept.Type, nil
}

func (r *routeRepository) ListAll(ctx context.Context, page, limit int) ([]model.ApprovalRoute, int64, error) {
	var routes []model.ApprovalRoute
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.ApprovalRoute{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.Order("request_type ASC, department_type ASC, approval_level ASC").
		Offset(offset).Limit(limit).Find(&routes).Error
	if err != nil {
		return nil, 0, err
	}
	return routes, total, nil
}

func (r *routeRepository) Create(ctx context.Context, route *model.ApprovalRoute) error {
	return GetDB(ctx, r.db).Create(route).Error
}

func (r *routeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.ApprovalRoute{}).Error
}
