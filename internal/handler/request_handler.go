package handler

import (
	"errors"
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/internal/workflow"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type RequestHandler struct {
	requestService service.RequestService
	perms          *middleware.Permissions
}

func NewRequestHandler(requestService service.RequestService, perms *middleware.Permissions) *RequestHandler {
	return &RequestHandler{requestService: requestService, perms: perms}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/requests")
	{
		requests.POST("", h.perms.Require("requests.write"), h.CreateRequest)
		requests.GET("", h.perms.Require("requests.read"), h.ListRequests)
		requests.GET("/:id", h.perms.Require("requests.read"), h.GetRequest)
		requests.PATCH("/:id/cost", h.perms.Require("requests.cost_update"), h.UpdateCost)
		requests.POST("/:id/complete", h.perms.Require("requests.fulfil"), h.MarkCompleted)
		requests.POST("/:id/receive", h.perms.Require("requests.fulfil"), h.MarkReceived)
	}
}

// statusForWorkflowErr maps workflow sentinel errors onto HTTP statuses.
// Validation problems are 400, authorization problems 403, state
// conflicts 409.
func statusForWorkflowErr(err error) int {
	switch {
	case errors.Is(err, workflow.ErrWrongApprover),
		errors.Is(err, workflow.ErrWrongRole):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrNotPending),
		errors.Is(err, workflow.ErrNotActive),
		errors.Is(err, workflow.ErrPreviousLevelPending),
		errors.Is(err, workflow.ErrInvalidStatus),
		errors.Is(err, workflow.ErrItemLocked):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrApprovalNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// CreateRequest handles POST /requests
// @Summary      Create a procurement request
// @Description  Creates a request, resolves its approval chain and assigns the first approver
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRequestDTO  true  "Create Request Payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.CreateRequest(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		c.JSON(statusForWorkflowErr(err), response.Error(statusForWorkflowErr(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListRequests handles GET /requests with filters
// @Summary      List requests
// @Description  Retrieves requests filtered by status, type, department or requester
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        status         query  string  false  "Request status"
// @Param        request_type   query  string  false  "Request type"
// @Param        department_id  query  string  false  "Department UUID"
// @Param        requester_id   query  string  false  "Requester UUID"
// @Param        page           query  int     false  "Page number (default 1)"
// @Param        limit          query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	p := pagination.Parse(c, 20)

	filter := service.RequestFilter{
		Status:       c.Query("status"),
		RequestType:  c.Query("request_type"),
		DepartmentID: c.Query("department_id"),
		RequesterID:  c.Query("requester_id"),
		Page:         p.Page,
		Limit:        p.Limit,
	}

	requests, total, err := h.requestService.ListRequests(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch requests"))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "requests", requests, total, p.Page, p.Limit))
}

// GetRequest handles GET /requests/:id
// @Summary      Get request by ID
// @Description  Fetch a request with its items and approval chain
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	result, err := h.requestService.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type updateCostRequest struct {
	EstimatedCost decimal.Decimal `json:"estimated_cost" binding:"required"`
}

// UpdateCost handles PATCH /requests/:id/cost
// @Summary      Update estimated cost
// @Description  Updates the estimated cost of an in-flight request; the approval chain is extended when the new amount crosses a band
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string             true  "Request ID"
// @Param        payload  body      updateCostRequest  true  "New Cost"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /requests/{id}/cost [patch]
func (h *RequestHandler) UpdateCost(c *gin.Context) {
	var req updateCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	result, err := h.requestService.UpdateEstimatedCost(c.Request.Context(), c.Param("id"), c.GetString("userID"), req.EstimatedCost)
	if err != nil {
		status := statusForWorkflowErr(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// MarkCompleted handles POST /requests/:id/complete
// @Summary      Mark request completed
// @Description  Transitions an approved request to COMPLETED once fulfilment is done
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      409  {object}  response.Response
// @Router       /requests/{id}/complete [post]
func (h *RequestHandler) MarkCompleted(c *gin.Context) {
	result, err := h.requestService.MarkCompleted(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		status := statusForWorkflowErr(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// MarkReceived handles POST /requests/:id/receive
// @Summary      Mark request received
// @Description  Transitions a completed request to RECEIVED when the goods arrive
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      409  {object}  response.Response
// @Router       /requests/{id}/receive [post]
func (h *RequestHandler) MarkReceived(c *gin.Context) {
	result, err := h.requestService.MarkReceived(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		status := statusForWorkflowErr(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
