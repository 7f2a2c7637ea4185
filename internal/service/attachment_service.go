package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"backend/internal/model"
	"backend/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxAttachmentSize = 25 << 20 // 25 MiB

type AttachmentResponse struct {
	ID          string `json:"id"`
	RequestID   string `json:"request_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	UploadedBy  string `json:"uploaded_by"`
	URL         string `json:"url,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type AttachmentService interface {
	Upload(ctx context.Context, requestID, userID, filename, contentType string, size int64, r io.Reader) (*AttachmentResponse, error)
	List(ctx context.Context, requestID string) ([]AttachmentResponse, error)
	Delete(ctx context.Context, attachmentID, userID string) error
}

type attachmentService struct {
	db    *gorm.DB
	store *storage.ObjectStore
}

func NewAttachmentService(db *gorm.DB, store *storage.ObjectStore) AttachmentService {
	return &attachmentService{db: db, store: store}
}

func (s *attachmentService) Upload(ctx context.Context, requestID, userID, filename, contentType string, size int64, r io.Reader) (*AttachmentResponse, error) {
	rid, err := uuid.Parse(requestID)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}
	if size <= 0 || size > maxAttachmentSize {
		return nil, fmt.Errorf("attachment size must be between 1 byte and %d bytes", maxAttachmentSize)
	}

	var request model.Request
	if err := s.db.WithContext(ctx).First(&request, "id = ?", rid).Error; err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}

	key, err := s.store.Put(ctx, rid, filename, contentType, size, r)
	if err != nil {
		return nil, err
	}

	attachment := model.Attachment{
		RequestID:   rid,
		FileName:    filename,
		ObjectKey:   key,
		ContentType: contentType,
		Size:        size,
		UploadedBy:  uid,
	}
	if err := s.db.WithContext(ctx).Create(&attachment).Error; err != nil {
		// Orphaned object is cheaper than a dangling row
		_ = s.store.Delete(ctx, key)
		return nil, fmt.Errorf("failed to save attachment: %w", err)
	}

	resp := toAttachmentResponse(attachment)
	return &resp, nil
}

func (s *attachmentService) List(ctx context.Context, requestID string) ([]AttachmentResponse, error) {
	rid, err := uuid.Parse(requestID)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}

	var rows []model.Attachment
	if err := s.db.WithContext(ctx).Where("request_id = ?", rid).
		Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]AttachmentResponse, 0, len(rows))
	for _, a := range rows {
		resp := toAttachmentResponse(a)
		if url, err := s.store.PresignedURL(ctx, a.ObjectKey, time.Hour); err == nil {
			resp.URL = url
		}
		out = append(out, resp)
	}
	return out, nil
}

func (s *attachmentService) Delete(ctx context.Context, attachmentID, userID string) error {
	aid, err := uuid.Parse(attachmentID)
	if err != nil {
		return fmt.Errorf("invalid attachment id: %w", err)
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	var attachment model.Attachment
	if err := s.db.WithContext(ctx).First(&attachment, "id = ?", aid).Error; err != nil {
		return fmt.Errorf("attachment not found: %w", err)
	}
	if attachment.UploadedBy != uid {
		return fmt.Errorf("only the uploader can delete an attachment")
	}

	if err := s.db.WithContext(ctx).Delete(&attachment).Error; err != nil {
		return err
	}
	return s.store.Delete(ctx, attachment.ObjectKey)
}

func toAttachmentResponse(a model.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:          a.ID.String(),
		RequestID:   a.RequestID.String(),
		FileName:    a.FileName,
		ContentType: a.ContentType,
		Size:        a.Size,
		UploadedBy:  a.UploadedBy.String(),
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}
