package service

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateRouteRequest struct {
	RequestType    string           `json:"request_type" binding:"required"`
	DepartmentType string           `json:"department_type" binding:"required"`
	ApprovalLevel  int              `json:"approval_level" binding:"required,min=1"`
	Role           string           `json:"role" binding:"required"`
	MinAmount      *decimal.Decimal `json:"min_amount"`
	MaxAmount      *decimal.Decimal `json:"max_amount"`
}

type RouteResponse struct {
	ID             uuid.UUID        `json:"id"`
	RequestType    string           `json:"request_type"`
	DepartmentType string           `json:"department_type"`
	ApprovalLevel  int              `json:"approval_level"`
	Role           string           `json:"role"`
	MinAmount      *decimal.Decimal `json:"min_amount"`
	MaxAmount      *decimal.Decimal `json:"max_amount"`
	CreatedAt      time.Time        `json:"created_at"`
}

// --- Interface ---

// RouteService administers dynamic routing policy rows. Dynamic rows
// take precedence over the built-in static chains at resolution time,
// so adding rows here retargets future requests without a deploy.
type RouteService interface {
	ListRoutes(ctx context.Context, page, limit int) ([]RouteResponse, int64, error)
	CreateRoute(ctx context.Context, req CreateRouteRequest) (RouteResponse, error)
	DeleteRoute(ctx context.Context, id string) error
	PreviewChain(ctx context.Context, requestType, departmentType string, amount decimal.Decimal) ([]workflow.RouteStep, error)
}

type routeService struct {
	repo repository.RouteRepository
}

func NewRouteService(repo repository.RouteRepository) RouteService {
	return &routeService{repo: repo}
}

// --- Implementation ---

var validRequestTypes = map[string]bool{
	model.RequestTypeStock:           true,
	model.RequestTypeNonStock:        true,
	model.RequestTypeMedicalDevice:   true,
	model.RequestTypeITItem:          true,
	model.RequestTypeMaintenance:     true,
	model.RequestTypeWarehouseSupply: true,
}

func (s *routeService) ListRoutes(ctx context.Context, page, limit int) ([]RouteResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	routes, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch routes: %w", err)
	}

	res := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		res = append(res, toRouteResponse(r))
	}
	return res, total, nil
}

func (s *routeService) CreateRoute(ctx context.Context, req CreateRouteRequest) (RouteResponse, error) {
	if !validRequestTypes[req.RequestType] {
		return RouteResponse{}, fmt.Errorf("unknown request type %q", req.RequestType)
	}
	if !validDepartmentTypes[req.DepartmentType] {
		return RouteResponse{}, fmt.Errorf("department_type must be one of: MEDICAL, OPERATIONAL")
	}
	role, ok := workflow.ParseRole(req.Role)
	if !ok {
		return RouteResponse{}, fmt.Errorf("unknown role %q", req.Role)
	}
	if req.MinAmount != nil && req.MaxAmount != nil && req.MaxAmount.LessThan(*req.MinAmount) {
		return RouteResponse{}, fmt.Errorf("max_amount must not be below min_amount")
	}

	route := model.ApprovalRoute{
		RequestType:    req.RequestType,
		DepartmentType: req.DepartmentType,
		ApprovalLevel:  req.ApprovalLevel,
		Role:           string(role),
		MinAmount:      req.MinAmount,
		MaxAmount:      req.MaxAmount,
	}
	if err := s.repo.Create(ctx, &route); err != nil {
		return RouteResponse{}, fmt.Errorf("failed to create route: %w", err)
	}
	return toRouteResponse(route), nil
}

func (s *routeService) DeleteRoute(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid route ID")
	}
	return s.repo.Delete(ctx, uid)
}

// PreviewChain resolves the chain a hypothetical request would get,
// without creating anything. Useful for validating policy changes.
func (s *routeService) PreviewChain(ctx context.Context, requestType, departmentType string, amount decimal.Decimal) ([]workflow.RouteStep, error) {
	if !validRequestTypes[requestType] {
		return nil, fmt.Errorf("unknown request type %q", requestType)
	}
	dynamic, err := s.repo.LookupRoutes(ctx, requestType, departmentType)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch routes: %w", err)
	}
	if requestType == model.RequestTypeMaintenance {
		return workflow.ResolveMaintenance(departmentType, amount, dynamic, 1)
	}
	return workflow.Resolve(requestType, departmentType, amount, dynamic)
}

func toRouteResponse(r model.ApprovalRoute) RouteResponse {
	return RouteResponse{
		ID:             r.ID,
		RequestType:    r.RequestType,
		DepartmentType: r.DepartmentType,
		ApprovalLevel:  r.ApprovalLevel,
		Role:           r.Role,
		MinAmount:      r.MinAmount,
		MaxAmount:      r.MaxAmount,
		CreatedAt:      r.CreatedAt,
	}
}
