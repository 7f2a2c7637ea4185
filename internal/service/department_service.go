package service

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateDepartmentRequest struct {
	Name string `json:"name" binding:"required"`
	Type string `json:"type" binding:"required"`
}

type UpdateDepartmentRequest struct {
	Name     *string `json:"name"`
	Type     *string `json:"type"`
	IsActive *bool   `json:"is_active"`
}

type DepartmentResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// --- Interface ---

type DepartmentService interface {
	CreateDepartment(ctx context.Context, req CreateDepartmentRequest) (DepartmentResponse, error)
	UpdateDepartment(ctx context.Context, id string, req UpdateDepartmentRequest) (DepartmentResponse, error)
	GetDepartments(ctx context.Context, search string, page, limit int) ([]DepartmentResponse, int64, error)
	GetDepartment(ctx context.Context, id string) (DepartmentResponse, error)
}

// --- Implementation ---

type departmentService struct {
	db *gorm.DB
}

func NewDepartmentService(db *gorm.DB) DepartmentService {
	return &departmentService{db: db}
}

var validDepartmentTypes = map[string]bool{
	model.DeptTypeMedical:     true,
	model.DeptTypeOperational: true,
}

func (s *departmentService) CreateDepartment(ctx context.Context, req CreateDepartmentRequest) (DepartmentResponse, error) {
	if !validDepartmentTypes[req.Type] {
		return DepartmentResponse{}, fmt.Errorf("type must be one of: MEDICAL, OPERATIONAL")
	}

	var existing model.Department
	if err := s.db.WithContext(ctx).First(&existing, "name = ?", req.Name).Error; err == nil {
		return DepartmentResponse{}, fmt.Errorf("department %q already exists", req.Name)
	}

	dept := model.Department{
		Name:     req.Name,
		Type:     req.Type,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&dept).Error; err != nil {
		return DepartmentResponse{}, fmt.Errorf("failed to create department: %w", err)
	}

	return toDepartmentResponse(dept), nil
}

func (s *departmentService) UpdateDepartment(ctx context.Context, id string, req UpdateDepartmentRequest) (DepartmentResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return DepartmentResponse{}, fmt.Errorf("invalid department ID")
	}

	var dept model.Department
	if err := s.db.WithContext(ctx).First(&dept, "id = ?", uid).Error; err != nil {
		return DepartmentResponse{}, fmt.Errorf("department not found: %w", err)
	}

	if req.Name != nil {
		if *req.Name == "" {
			return DepartmentResponse{}, fmt.Errorf("name cannot be empty")
		}
		dept.Name = *req.Name
	}
	if req.Type != nil {
		if !validDepartmentTypes[*req.Type] {
			return DepartmentResponse{}, fmt.Errorf("type must be one of: MEDICAL, OPERATIONAL")
		}
		dept.Type = *req.Type
	}
	if req.IsActive != nil {
		dept.IsActive = *req.IsActive
	}

	if err := s.db.WithContext(ctx).Save(&dept).Error; err != nil {
		return DepartmentResponse{}, fmt.Errorf("failed to update department: %w", err)
	}

	return toDepartmentResponse(dept), nil
}

func (s *departmentService) GetDepartments(ctx context.Context, search string, page, limit int) ([]DepartmentResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	query := s.db.WithContext(ctx).Model(&model.Department{})
	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var depts []model.Department
	offset := (page - 1) * limit
	if err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&depts).Error; err != nil {
		return nil, 0, err
	}

	res := make([]DepartmentResponse, 0, len(depts))
	for _, d := range depts {
		res = append(res, toDepartmentResponse(d))
	}
	return res, total, nil
}

func (s *departmentService) GetDepartment(ctx context.Context, id string) (DepartmentResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return DepartmentResponse{}, fmt.Errorf("invalid department ID")
	}
	var dept model.Department
	if err := s.db.WithContext(ctx).First(&dept, "id = ?", uid).Error; err != nil {
		return DepartmentResponse{}, fmt.Errorf("department not found: %w", err)
	}
	return toDepartmentResponse(dept), nil
}

func toDepartmentResponse(d model.Department) DepartmentResponse {
	return DepartmentResponse{
		ID:        d.ID,
		Name:      d.Name,
		Type:      d.Type,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
