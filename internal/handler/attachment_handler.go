package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AttachmentHandler struct {
	attachmentService service.AttachmentService
	perms             *middleware.Permissions
}

func NewAttachmentHandler(attachmentService service.AttachmentService, perms *middleware.Permissions) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService, perms: perms}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AttachmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/requests/:id/attachments", h.perms.Require("attachments.write"), h.Upload)
	router.GET("/requests/:id/attachments", h.perms.Require("requests.read"), h.List)
	router.DELETE("/attachments/:id", h.perms.Require("attachments.write"), h.Delete)
}

// Upload handles POST /requests/:id/attachments (multipart)
// @Summary      Upload attachment
// @Description  Uploads a file for a request into the object store
// @Tags         attachments
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Request ID"
// @Param        file  formData  file    true  "File"
// @Success      201   {object}  response.Response{data=service.AttachmentResponse}
// @Failure      400   {object}  response.Response
// @Router       /requests/{id}/attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing file"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to read file"))
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	result, err := h.attachmentService.Upload(
		c.Request.Context(),
		c.Param("id"),
		c.GetString("userID"),
		fileHeader.Filename,
		contentType,
		fileHeader.Size,
		file,
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// List handles GET /requests/:id/attachments
// @Summary      List attachments
// @Description  Lists a request's attachments with temporary download URLs
// @Tags         attachments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=[]service.AttachmentResponse}
// @Failure      400  {object}  response.Response
// @Router       /requests/{id}/attachments [get]
func (h *AttachmentHandler) List(c *gin.Context) {
	attachments, err := h.attachmentService.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, attachments))
}

// Delete handles DELETE /attachments/:id
// @Summary      Delete attachment
// @Description  Deletes an attachment; only the uploader may delete
// @Tags         attachments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Attachment ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /attachments/{id} [delete]
func (h *AttachmentHandler) Delete(c *gin.Context) {
	if err := h.attachmentService.Delete(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Attachment deleted"))
}
