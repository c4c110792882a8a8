package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AurelMV/cbt-admin-api/internal/service"
	appErrors "github.com/AurelMV/cbt-admin-api/pkg/errors"
	"github.com/AurelMV/cbt-admin-api/pkg/response"
)

// AttendanceHandler exposes attendance and eligibility endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// MarkCell godoc
// @Summary Mark attendance cell
// @Description Toggle a single student/date attendance cell
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkCellRequest true "Attendance mark payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/marks [put]
func (h *AttendanceHandler) MarkCell(c *gin.Context) {
	var req service.MarkCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.MarkCell(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkMark godoc
// @Summary Bulk mark a session date
// @Description Mark one date for a list of students, or the whole cycle when the list is empty
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.BulkMarkRequest true "Bulk mark payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/marks/bulk [post]
func (h *AttendanceHandler) BulkMark(c *gin.Context) {
	var req service.BulkMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	count, err := h.service.BulkMarkDate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"marked": count}, nil)
}

// StudentStats godoc
// @Summary Attendance stats of a student
// @Description Live attendance statistics for one student in a cycle
// @Tags Attendance
// @Produce json
// @Param id path string true "Cycle ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cycles/{id}/students/{studentId}/attendance [get]
func (h *AttendanceHandler) StudentStats(c *gin.Context) {
	stats, err := h.service.StudentStats(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Eligibility godoc
// @Summary Cycle eligibility
// @Description Attendance statistics and flags for every student of a cycle
// @Tags Attendance
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cycles/{id}/eligibility [get]
func (h *AttendanceHandler) Eligibility(c *gin.Context) {
	result, err := h.service.CycleEligibility(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ApplyRestrictions godoc
// @Summary Restrict under-minimum students
// @Description Apply restricted status to every student below the cycle minimum. Safe to repeat.
// @Tags Attendance
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cycles/{id}/restrictions [post]
func (h *AttendanceHandler) ApplyRestrictions(c *gin.Context) {
	changed, err := h.service.ApplyRestrictionToUnderMinimum(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if changed == nil {
		changed = []string{}
	}
	response.JSON(c, http.StatusOK, gin.H{"restricted": changed}, nil)
}

// Restrict godoc
// @Summary Restrict a student
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/restrict [post]
func (h *AttendanceHandler) Restrict(c *gin.Context) {
	student, err := h.service.RestrictStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Unrestrict godoc
// @Summary Remove a student restriction
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/restrict [delete]
func (h *AttendanceHandler) Unrestrict(c *gin.Context) {
	student, err := h.service.RemoveRestriction(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
