package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AurelMV/cbt-admin-api/internal/service"
	"github.com/AurelMV/cbt-admin-api/pkg/response"
)

// ReportHandler exposes report export endpoints.
type ReportHandler struct {
	service *service.ExportService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(svc *service.ExportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// AttendanceSheet godoc
// @Summary Export attendance sheet
// @Description Render the cycle attendance matrix as CSV or PDF
// @Tags Reports
// @Produce octet-stream
// @Param id path string true "Cycle ID"
// @Param format query string false "Output format (csv or pdf)" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cycles/{id}/reports/attendance [get]
func (h *ReportHandler) AttendanceSheet(c *gin.Context) {
	format := service.ReportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	result, err := h.service.AttendanceSheet(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
