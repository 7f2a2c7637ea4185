package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	roleService service.RoleService
	perms       *middleware.Permissions
}

func NewRoleHandler(roleService service.RoleService, perms *middleware.Permissions) *RoleHandler {
	return &RoleHandler{roleService: roleService, perms: perms}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	roles := router.Group("/roles", h.perms.Require("roles.manage"))
	{
		roles.GET("", h.ListRoles)
		roles.GET("/permissions", h.ListPermissions)
	}
}

// ListRoles handles GET /roles
// @Summary      List roles
// @Description  Retrieves every role with its permission codes
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.RoleResponse}
// @Failure      500  {object}  response.Response
// @Router       /roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch roles"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// ListPermissions handles GET /roles/permissions
// @Summary      List permissions
// @Description  Retrieves the full permission catalog
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.PermissionResponse}
// @Failure      500  {object}  response.Response
// @Router       /roles/permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.roleService.ListPermissions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch permissions"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms))
}
