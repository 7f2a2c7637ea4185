package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type RouteHandler struct {
	routeService   service.RouteService
	sweeperService service.SweeperService
	perms          *middleware.Permissions
}

func NewRouteHandler(routeService service.RouteService, sweeperService service.SweeperService, perms *middleware.Permissions) *RouteHandler {
	return &RouteHandler{routeService: routeService, sweeperService: sweeperService, perms: perms}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *RouteHandler) RegisterRoutes(router *gin.RouterGroup) {
	routes := router.Group("/routes")
	{
		routes.GET("", h.perms.Require("routes.read"), h.ListRoutes)
		routes.GET("/preview", h.perms.Require("routes.read"), h.PreviewChain)
		routes.POST("", h.perms.Require("routes.manage"), h.CreateRoute)
		routes.DELETE("/:id", h.perms.Require("routes.manage"), h.DeleteRoute)
	}

	router.POST("/admin/sweep", h.perms.Require("sweeper.run"), h.RunSweep)
}

// ListRoutes handles GET /routes
// @Summary      List approval routes
// @Description  Retrieves the dynamic routing policy rows
// @Tags         routes
// @Produce      json
// @Security     BearerAuth
// @Param        page   query  int  false  "Page number (default 1)"
// @Param        limit  query  int  false  "Items per page (default 50)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /routes [get]
func (h *RouteHandler) ListRoutes(c *gin.Context) {
	p := pagination.Parse(c, 50)

	routes, total, err := h.routeService.ListRoutes(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch routes"))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "routes", routes, total, p.Page, p.Limit))
}

// CreateRoute handles POST /routes
// @Summary      Create approval route
// @Description  Adds a dynamic routing row; dynamic rows override the built-in chains for matching requests
// @Tags         routes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRouteRequest  true  "Route"
// @Success      201      {object}  response.Response{data=service.RouteResponse}
// @Failure      400      {object}  response.Response
// @Router       /routes [post]
func (h *RouteHandler) CreateRoute(c *gin.Context) {
	var req service.CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	route, err := h.routeService.CreateRoute(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, route))
}

// DeleteRoute handles DELETE /routes/:id
// @Summary      Delete approval route
// @Tags         routes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Route ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /routes/{id} [delete]
func (h *RouteHandler) DeleteRoute(c *gin.Context) {
	if err := h.routeService.DeleteRoute(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Route deleted"))
}

// PreviewChain handles GET /routes/preview
// @Summary      Preview an approval chain
// @Description  Resolves the chain a hypothetical request would get, without creating anything
// @Tags         routes
// @Produce      json
// @Security     BearerAuth
// @Param        request_type     query  string  true  "Request type"
// @Param        department_type  query  string  true  "Department type"
// @Param        amount           query  string  true  "Estimated cost"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /routes/preview [get]
func (h *RouteHandler) PreviewChain(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid amount"))
		return
	}

	steps, err := h.routeService.PreviewChain(c.Request.Context(), c.Query("request_type"), c.Query("department_type"), amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, steps))
}

// RunSweep handles POST /admin/sweep
// @Summary      Run the reassignment sweeper
// @Description  Finds pending approvals stuck on deactivated approvers and reassigns or auto-approves them
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.SweepResult}
// @Failure      500  {object}  response.Response
// @Router       /admin/sweep [post]
func (h *RouteHandler) RunSweep(c *gin.Context) {
	result, err := h.sweeperService.Sweep(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
