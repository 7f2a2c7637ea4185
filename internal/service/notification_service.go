package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"backend/internal/model"
	"backend/internal/workflow"
	ws "backend/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Link      string `json:"link"`
	Metadata  string `json:"metadata"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// NotificationService persists notifications and pushes them over the
// websocket hub. Dispatch is fire-and-forget with at-least-once semantics:
// callers must never depend on delivery, so no method returns a delivery
// error.
type NotificationService interface {
	Dispatch(events []workflow.NotificationEvent)
	ListForUser(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}

type notificationService struct {
	db  *gorm.DB
	hub *ws.Hub
}

func NewNotificationService(db *gorm.DB, hub *ws.Hub) NotificationService {
	return &notificationService{db: db, hub: hub}
}

// Dispatch drains a transition's notification outbox. Called only after
// the workflow transaction has committed; failures are logged and
// swallowed so they cannot roll anything back.
func (s *notificationService) Dispatch(events []workflow.NotificationEvent) {
	for _, evt := range events {
		metadata, _ := json.Marshal(evt.Metadata)
		row := model.Notification{
			UserID:   evt.UserID,
			Title:    evt.Title,
			Message:  evt.Message,
			Link:     evt.Link,
			Metadata: string(metadata),
		}
		if err := s.db.Create(&row).Error; err != nil {
			log.Printf("notification persist failed for user %s: %v", evt.UserID, err)
			continue
		}

		if s.hub != nil {
			payload, err := json.Marshal(wsPayload(row))
			if err == nil {
				s.hub.SendToUser(evt.UserID, payload)
			}
		}
	}
}

// wsPayload shapes the websocket payload like the REST responses
func wsPayload(n model.Notification) map[string]interface{} {
	return map[string]interface{}{
		"type":       "notification",
		"id":         n.ID.String(),
		"title":      n.Title,
		"message":    n.Message,
		"link":       n.Link,
		"metadata":   n.Metadata,
		"created_at": n.CreatedAt.Format(time.RFC3339),
	}
}

func (s *notificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", uid)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.Notification
	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]NotificationResponse, 0, len(rows))
	for _, n := range rows {
		out = append(out, NotificationResponse{
			ID:        n.ID.String(),
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			Metadata:  n.Metadata,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return err
	}
	nid, err := uuid.Parse(notificationID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", nid, uid).
		Update("is_read", true).Error
}
