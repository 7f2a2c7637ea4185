package service

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetStatistics aggregates procurement activity inside a time bracket
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	var response model.StatisticsResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	inRange := func(db *gorm.DB) *gorm.DB {
		return db.Where("requests.created_at >= ? AND requests.created_at <= ?", startDate, endDate)
	}

	if err := s.db.WithContext(ctx).Model(&model.Request{}).
		Scopes(inRange).Count(&response.TotalRequests).Error; err != nil {
		return response, err
	}

	// Open approvals across the whole system, not just the bracket
	if err := s.db.WithContext(ctx).Model(&model.Approval{}).
		Where("status = ? AND is_active = ?", model.ApprovalPending, true).
		Count(&response.PendingApprovals).Error; err != nil {
		return response, err
	}

	var approvedValue struct {
		Value decimal.NullDecimal
	}
	s.db.WithContext(ctx).Model(&model.Request{}).
		Select("SUM(estimated_cost) as value").
		Scopes(inRange).
		Where("status IN ?", []string{
			model.RequestStatusApproved, model.RequestStatusCompleted, model.RequestStatusReceived,
		}).
		Scan(&approvedValue)
	if approvedValue.Value.Valid {
		response.TotalApprovedValue = approvedValue.Value.Decimal
	}

	var byStatus []model.StatusCount
	if err := s.db.WithContext(ctx).Model(&model.Request{}).
		Select("status, COUNT(*) as count").
		Scopes(inRange).
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return response, err
	}
	response.ByStatus = byStatus

	var byType []model.TypeCount
	if err := s.db.WithContext(ctx).Model(&model.Request{}).
		Select("request_type, COUNT(*) as count").
		Scopes(inRange).
		Group("request_type").
		Scan(&byType).Error; err != nil {
		return response, err
	}
	response.ByType = byType

	var topDepartments []model.DepartmentSpend
	if err := s.db.WithContext(ctx).Table("requests").
		Select("departments.id as department_id, departments.name as department_name, COUNT(requests.id) as request_count, SUM(requests.estimated_cost) as total_value").
		Joins("JOIN departments ON departments.id = requests.department_id").
		Scopes(inRange).
		Where("requests.status IN ?", []string{
			model.RequestStatusApproved, model.RequestStatusCompleted, model.RequestStatusReceived,
		}).
		Group("departments.id, departments.name").
		Order("total_value DESC").
		Limit(5).
		Scan(&topDepartments).Error; err != nil {
		return response, err
	}
	response.TopDepartments = topDepartments

	return response, nil
}
