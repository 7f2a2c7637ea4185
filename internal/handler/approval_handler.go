package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
	itemService     service.ItemService
	perms           *middleware.Permissions
}

func NewApprovalHandler(approvalService service.ApprovalService, itemService service.ItemService, perms *middleware.Permissions) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService, itemService: itemService, perms: perms}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approvals := router.Group("/approvals")
	{
		approvals.GET("/pending", h.perms.Require("approvals.read"), h.ListMyPending)
		approvals.POST("/:id/decide", h.perms.Require("approvals.decide"), h.Decide)
		approvals.POST("/:id/items", h.perms.Require("approvals.items"), h.DecideItems)
	}
}

// ListMyPending handles GET /approvals/pending, the approver inbox
// @Summary      List my pending approvals
// @Description  Retrieves the approvals currently waiting on the authenticated user
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Param        page   query  int  false  "Page number (default 1)"
// @Param        limit  query  int  false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /approvals/pending [get]
func (h *ApprovalHandler) ListMyPending(c *gin.Context) {
	p := pagination.Parse(c, 20)

	approvals, total, err := h.approvalService.ListMyPending(c.Request.Context(), c.GetString("userID"), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch approvals"))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "approvals", approvals, total, p.Page, p.Limit))
}

// Decide handles POST /approvals/:id/decide
// @Summary      Approve or reject
// @Description  Records a decision on the active approval; on approval the next level opens, on rejection the request terminates
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string             true  "Approval ID"
// @Param        payload  body      service.DecideDTO  true  "Decision"
// @Success      200      {object}  response.Response{data=service.DecideResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /approvals/{id}/decide [post]
func (h *ApprovalHandler) Decide(c *gin.Context) {
	var req service.DecideDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	// A cost change riding the decision needs its own permission
	if req.EstimatedCost != nil {
		codes, err := h.perms.ForRole(c.GetString("userRole"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
			return
		}
		allowed := false
		for _, code := range codes {
			if code == "requests.cost_update" {
				allowed = true
				break
			}
		}
		if !allowed {
			c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission 'requests.cost_update'"))
			return
		}
	}

	result, err := h.approvalService.Decide(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		status := statusForWorkflowErr(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DecideItems handles POST /approvals/:id/items
// @Summary      Record item decisions
// @Description  Records per-item approve/reject marks against the active approval, ahead of the level decision
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Approval ID"
// @Param        payload  body      service.DecideItemsDTO  true  "Item Decisions"
// @Success      200      {object}  response.Response{data=service.DecideItemsResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /approvals/{id}/items [post]
func (h *ApprovalHandler) DecideItems(c *gin.Context) {
	var req service.DecideItemsDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.itemService.DecideItems(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		status := statusForWorkflowErr(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
