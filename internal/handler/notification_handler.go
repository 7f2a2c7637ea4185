package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	ws "backend/internal/websocket"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	hub                 *ws.Hub
	perms               *middleware.Permissions
}

func NewNotificationHandler(notificationService service.NotificationService, hub *ws.Hub, perms *middleware.Permissions) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, hub: hub, perms: perms}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/notifications", middleware.RequireAuth())
	{
		notifications.GET("", h.ListNotifications)
		notifications.POST("/:id/read", h.MarkRead)
	}

	// Websocket endpoint authenticates via the token query param because
	// browsers cannot set headers on websocket upgrades
	router.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(h.hub, c, middleware.GetJWTSecret())
	})
}

// ListNotifications handles GET /notifications
// @Summary      List notifications
// @Description  Retrieves the authenticated user's notifications, newest first
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        unread  query  bool  false  "Only unread"
// @Param        page    query  int   false  "Page number (default 1)"
// @Param        limit   query  int   false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	p := pagination.Parse(c, 20)
	unreadOnly := c.Query("unread") == "true"

	notifications, total, err := h.notificationService.ListForUser(c.Request.Context(), c.GetString("userID"), unreadOnly, p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch notifications"))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "notifications", notifications, total, p.Page, p.Limit))
}

// MarkRead handles POST /notifications/:id/read
// @Summary      Mark notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notificationService.MarkRead(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Marked as read"))
}
