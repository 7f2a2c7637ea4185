package service

import (
	"context"
	"encoding/json"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestLogResponse struct {
	ID        string                 `json:"id"`
	RequestID string                 `json:"request_id"`
	ActorID   string                 `json:"actor_id,omitempty"`
	Actor     string                 `json:"actor"`
	Action    string                 `json:"action"`
	Comments  string                 `json:"comments,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt string                 `json:"created_at"`
}

type ApprovalLogResponse struct {
	ID         string `json:"id"`
	ApprovalID string `json:"approval_id"`
	RequestID  string `json:"request_id"`
	ApproverID string `json:"approver_id,omitempty"`
	Approver   string `json:"approver"`
	Action     string `json:"action"`
	Comments   string `json:"comments,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetRequestLogs(ctx context.Context, requestID string, page, limit int) ([]RequestLogResponse, int64, error)
	GetApprovalLogs(ctx context.Context, requestID string) ([]ApprovalLogResponse, error)
}

type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditService instance
func NewAuditService(db *gorm.DB) AuditService {
	return &auditService{db: db}
}

// GetRequestLogs returns the chronological audit trail of one request.
// System entries (sweeper repairs, auto-approvals) carry a nil actor and
// render as "System".
func (s *auditService) GetRequestLogs(ctx context.Context, requestID string, page, limit int) ([]RequestLogResponse, int64, error) {
	rid, err := uuid.Parse(requestID)
	if err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&model.RequestLog{}).
		Where("request_id = ?", rid).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []model.RequestLog
	offset := (page - 1) * limit
	if err := s.db.WithContext(ctx).Preload("Actor").
		Where("request_id = ?", rid).
		Order("created_at ASC").Offset(offset).Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	res := make([]RequestLogResponse, 0, len(logs))
	for _, l := range logs {
		entry := RequestLogResponse{
			ID:        l.ID.String(),
			RequestID: l.RequestID.String(),
			Actor:     "System",
			Action:    l.Action,
			Comments:  l.Comments,
			CreatedAt: l.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if l.Details != "" {
			_ = json.Unmarshal([]byte(l.Details), &entry.Details)
		}
		if l.ActorID != nil {
			entry.ActorID = l.ActorID.String()
		}
		if l.Actor != nil {
			entry.Actor = l.Actor.Username
		}
		res = append(res, entry)
	}
	return res, total, nil
}

func (s *auditService) GetApprovalLogs(ctx context.Context, requestID string) ([]ApprovalLogResponse, error) {
	rid, err := uuid.Parse(requestID)
	if err != nil {
		return nil, err
	}

	var logs []model.ApprovalLog
	if err := s.db.WithContext(ctx).Preload("Approver").
		Where("request_id = ?", rid).
		Order("created_at ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}

	res := make([]ApprovalLogResponse, 0, len(logs))
	for _, l := range logs {
		entry := ApprovalLogResponse{
			ID:         l.ID.String(),
			ApprovalID: l.ApprovalID.String(),
			RequestID:  l.RequestID.String(),
			Approver:   "System",
			Action:     l.Action,
			Comments:   l.Comments,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if l.ApproverID != nil {
			entry.ApproverID = l.ApproverID.String()
			if l.Approver != nil {
				entry.Approver = l.Approver.Username
			}
		}
		res = append(res, entry)
	}
	return res, nil
}
