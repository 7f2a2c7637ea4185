package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatusCount is one slice of the dashboard status breakdown
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// TypeCount is one slice of the dashboard request-type breakdown
type TypeCount struct {
	RequestType string `json:"request_type"`
	Count       int64  `json:"count"`
}

// DepartmentSpend ranks departments by approved request value
type DepartmentSpend struct {
	DepartmentID   uuid.UUID       `json:"department_id"`
	DepartmentName string          `json:"department_name"`
	RequestCount   int64           `json:"request_count"`
	TotalValue     decimal.Decimal `json:"total_value"`
}

// StatisticsResponse aggregates procurement activity for a time range
type StatisticsResponse struct {
	TimeRangeStartDate time.Time         `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time         `json:"time_range_end_date"`
	TotalRequests      int64             `json:"total_requests"`
	PendingApprovals   int64             `json:"pending_approvals"`
	TotalApprovedValue decimal.Decimal   `json:"total_approved_value"`
	ByStatus           []StatusCount     `json:"by_status"`
	ByType             []TypeCount       `json:"by_type"`
	TopDepartments     []DepartmentSpend `json:"top_departments"`
}
