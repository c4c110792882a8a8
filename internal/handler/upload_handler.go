package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AurelMV/cbt-admin-api/internal/models"
	"github.com/AurelMV/cbt-admin-api/internal/service"
	appErrors "github.com/AurelMV/cbt-admin-api/pkg/errors"
	"github.com/AurelMV/cbt-admin-api/pkg/response"
)

// UploadHandler manages file upload endpoints.
type UploadHandler struct {
	service *service.UploadService
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{service: svc}
}

// Upload godoc
// @Summary Upload file
// @Description Store a receipt or banner file
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param kind formData string true "File kind (RECEIPT or BANNER)"
// @Param file formData file true "File"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	kind := models.UploadKind(strings.ToUpper(c.PostForm("kind")))
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return
		}
		reader = bytes.NewReader(buf)
	}

	claims := claimsFromContext(c)
	uploadedBy := ""
	if claims != nil {
		uploadedBy = claims.UserID
	}

	file, err := h.service.Upload(c.Request.Context(), service.UploadRequest{
		Kind:     kind,
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  reader,
	}, uploadedBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, file)
}

// List godoc
// @Summary List uploaded files
// @Tags Uploads
// @Produce json
// @Param kind query string false "Filter by kind"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /uploads [get]
func (h *UploadHandler) List(c *gin.Context) {
	var filter models.UploadFilter
	filter.Kind = c.Query("kind")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Download godoc
// @Summary Download uploaded file
// @Tags Uploads
// @Produce octet-stream
// @Param id path string true "File ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /uploads/{id}/download [get]
func (h *UploadHandler) Download(c *gin.Context) {
	download, err := h.service.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.DataFromReader(http.StatusOK, download.SizeBytes, download.MimeType, download.File, nil)
}

// Delete godoc
// @Summary Delete uploaded file
// @Tags Uploads
// @Produce json
// @Param id path string true "File ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /uploads/{id} [delete]
func (h *UploadHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
