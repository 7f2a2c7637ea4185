package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/internal/service"
	"backend/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubApprovalService struct {
	decideErr  error
	decideResp *service.DecideResponse
	pending    []service.PendingApprovalResponse
	total      int64
}

func (s *stubApprovalService) Decide(ctx context.Context, approvalID, actorID string, req service.DecideDTO) (*service.DecideResponse, error) {
	if s.decideErr != nil {
		return nil, s.decideErr
	}
	return s.decideResp, nil
}

func (s *stubApprovalService) ListMyPending(ctx context.Context, approverID string, page, limit int) ([]service.PendingApprovalResponse, int64, error) {
	return s.pending, s.total, nil
}

type stubItemService struct {
	err  error
	resp *service.DecideItemsResponse
}

func (s *stubItemService) DecideItems(ctx context.Context, approvalID, actorID string, req service.DecideItemsDTO) (*service.DecideItemsResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

// newApprovalRouter wires the handler without the permission middleware so
// the error mapping can be exercised against the stubs directly.
func newApprovalRouter(approvals service.ApprovalService, items service.ItemService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewApprovalHandler(approvals, items, nil)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", "8f14e45f-ceea-467f-a0f5-b6a1c62c0f51")
		c.Set("userRole", "SUPERVISOR")
	})
	router.GET("/approvals/pending", h.ListMyPending)
	router.POST("/approvals/:id/decide", h.Decide)
	router.POST("/approvals/:id/items", h.DecideItems)
	return router
}

func postJSON(router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestDecideStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{workflow.ErrWrongApprover, http.StatusForbidden},
		{workflow.ErrWrongRole, http.StatusForbidden},
		{workflow.ErrNotPending, http.StatusConflict},
		{workflow.ErrNotActive, http.StatusConflict},
		{workflow.ErrPreviousLevelPending, http.StatusConflict},
		{workflow.ErrApprovalNotFound, http.StatusNotFound},
		{workflow.ErrInvalidStatus, http.StatusConflict},
		{fmt.Errorf("advance: %w", workflow.ErrNotActive), http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			router := newApprovalRouter(&stubApprovalService{decideErr: tc.err}, &stubItemService{})

			w := postJSON(router, "/approvals/abc/decide", map[string]interface{}{
				"status": "APPROVED",
			})

			assert.Equal(t, tc.want, w.Code)

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "error", resp["status"])
		})
	}
}

func TestDecideRejectsInvalidPayload(t *testing.T) {
	router := newApprovalRouter(&stubApprovalService{}, &stubItemService{})

	// status outside the oneof set must never reach the service
	w := postJSON(router, "/approvals/abc/decide", map[string]interface{}{
		"status": "MAYBE",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecideSuccessEnvelope(t *testing.T) {
	stub := &stubApprovalService{decideResp: &service.DecideResponse{
		ApprovalID:       "a1",
		NewRequestStatus: "APPROVED",
	}}
	router := newApprovalRouter(stub, &stubItemService{})

	w := postJSON(router, "/approvals/a1/decide", map[string]interface{}{
		"status":   "APPROVED",
		"comments": "looks fine",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string                 `json:"status"`
		Data   map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "APPROVED", resp.Data["new_request_status"])
}

func TestDecideItemsLockedConflict(t *testing.T) {
	router := newApprovalRouter(&stubApprovalService{}, &stubItemService{
		err: fmt.Errorf("item 42: %w", workflow.ErrItemLocked),
	})

	w := postJSON(router, "/approvals/a1/items", map[string]interface{}{
		"decisions": []map[string]interface{}{
			{"item_id": "5a2e9efc-1c5c-4f3e-9d4e-1db1a7c8e001", "status": "REJECTED"},
		},
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDecideItemsOverlayUnsupported(t *testing.T) {
	router := newApprovalRouter(&stubApprovalService{}, &stubItemService{
		err: workflow.ErrItemOverlayUnsupported,
	})

	w := postJSON(router, "/approvals/a1/items", map[string]interface{}{
		"decisions": []map[string]interface{}{
			{"item_id": "5a2e9efc-1c5c-4f3e-9d4e-1db1a7c8e001", "status": "APPROVED"},
		},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecideItemsRequiresDecisions(t *testing.T) {
	router := newApprovalRouter(&stubApprovalService{}, &stubItemService{})

	w := postJSON(router, "/approvals/a1/items", map[string]interface{}{
		"decisions": []map[string]interface{}{},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListMyPendingEnvelope(t *testing.T) {
	stub := &stubApprovalService{
		pending: []service.PendingApprovalResponse{
			{ApprovalSummary: service.ApprovalSummary{ID: "a1"}},
			{ApprovalSummary: service.ApprovalSummary{ID: "a2"}},
		},
		total:   2,
	}
	router := newApprovalRouter(stub, &stubItemService{})

	req, _ := http.NewRequest(http.MethodGet, "/approvals/pending?page=1&limit=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Approvals []service.PendingApprovalResponse `json:"approvals"`
			Total     int64                             `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Approvals, 2)
	assert.Equal(t, int64(2), resp.Data.Total)
}
