package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	perms        *middleware.Permissions
}

func NewAuditHandler(auditService service.AuditService, perms *middleware.Permissions) *AuditHandler {
	return &AuditHandler{auditService: auditService, perms: perms}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/requests/:id/logs", h.perms.Require("audit.read"), h.GetRequestLogs)
	router.GET("/requests/:id/approval-logs", h.perms.Require("audit.read"), h.GetApprovalLogs)
}

// GetRequestLogs handles GET /requests/:id/logs
// @Summary      Get request audit trail
// @Description  Retrieves the chronological workflow log of one request
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        id     path   string  true   "Request ID"
// @Param        page   query  int     false  "Page number (default 1)"
// @Param        limit  query  int     false  "Items per page (default 50)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Router       /requests/{id}/logs [get]
func (h *AuditHandler) GetRequestLogs(c *gin.Context) {
	p := pagination.Parse(c, 50)

	logs, total, err := h.auditService.GetRequestLogs(c.Request.Context(), c.Param("id"), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "logs", logs, total, p.Page, p.Limit))
}

// GetApprovalLogs handles GET /requests/:id/approval-logs
// @Summary      Get approval decision log
// @Description  Retrieves every approval decision recorded for one request
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=[]service.ApprovalLogResponse}
// @Failure      400  {object}  response.Response
// @Router       /requests/{id}/approval-logs [get]
func (h *AuditHandler) GetApprovalLogs(c *gin.Context) {
	logs, err := h.auditService.GetApprovalLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, logs))
}
