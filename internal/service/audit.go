package service

import (
	"encoding/json"
	"fmt"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// appendRequestLogs persists transition log entries as append-only
// RequestLog rows inside the caller's transaction.
func appendRequestLogs(tx *gorm.DB, requestID uuid.UUID, actorID *uuid.UUID, entries []workflow.LogEntry) error {
	for _, e := range entries {
		details, _ := json.Marshal(e.Details)
		row := model.RequestLog{
			RequestID: requestID,
			ActorID:   actorID,
			Action:    e.Action,
			Comments:  e.Comments,
			Details:   string(details),
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to write request log: %w", err)
		}
	}
	return nil
}

// appendApprovalLogs persists decision log entries as append-only
// ApprovalLog rows inside the caller's transaction.
func appendApprovalLogs(tx *gorm.DB, approvalID, requestID uuid.UUID, approverID *uuid.UUID, entries []workflow.LogEntry) error {
	for _, e := range entries {
		row := model.ApprovalLog{
			ApprovalID: approvalID,
			RequestID:  requestID,
			ApproverID: approverID,
			Action:     e.Action,
			Comments:   e.Comments,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to write approval log: %w", err)
		}
	}
	return nil
}
