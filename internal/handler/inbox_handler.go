package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AurelMV/cbt-admin-api/internal/models"
	"github.com/AurelMV/cbt-admin-api/internal/service"
	appErrors "github.com/AurelMV/cbt-admin-api/pkg/errors"
	"github.com/AurelMV/cbt-admin-api/pkg/response"
)

type inboxService interface {
	ListPendingEnrollments(ctx context.Context, filter models.InboxFilter) ([]models.PendingEnrollment, error)
	ListPendingPayments(ctx context.Context, filter models.InboxFilter) ([]models.PendingPayment, error)
	EnrollmentHistory(ctx context.Context, cycleID string) ([]models.PendingEnrollment, error)
	PendingCounts(ctx context.Context, cycleID string) (*models.PendingCounts, error)
	SubmitEnrollment(ctx context.Context, req service.SubmitEnrollmentRequest) (*models.PendingEnrollment, error)
	SubmitPayment(ctx context.Context, req service.SubmitPaymentRequest) (*models.PendingPayment, error)
	ApproveEnrollment(ctx context.Context, id string, req service.ApproveEnrollmentRequest) (*models.PendingEnrollment, error)
	RejectEnrollment(ctx context.Context, id string) (*models.PendingEnrollment, error)
	ApprovePayment(ctx context.Context, id string) (*models.PendingPayment, error)
	RejectPayment(ctx context.Context, id string) (*models.PendingPayment, error)
}

// InboxHandler exposes the reviewer inbox endpoints.
type InboxHandler struct {
	service inboxService
}

// NewInboxHandler constructs an inbox handler.
func NewInboxHandler(svc inboxService) *InboxHandler {
	return &InboxHandler{service: svc}
}

func inboxFilterFromQuery(c *gin.Context) models.InboxFilter {
	var filter models.InboxFilter
	filter.CycleID = c.Query("cycleId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortOrder = c.Query("order")
	return filter
}

// ListEnrollments godoc
// @Summary List pending enrollments
// @Tags Inbox
// @Produce json
// @Param cycleId query string false "Filter by cycle"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /inbox/enrollments [get]
func (h *InboxHandler) ListEnrollments(c *gin.Context) {
	items, err := h.service.ListPendingEnrollments(c.Request.Context(), inboxFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListPayments godoc
// @Summary List pending payments
// @Tags Inbox
// @Produce json
// @Param cycleId query string false "Filter by cycle"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /inbox/payments [get]
func (h *InboxHandler) ListPayments(c *gin.Context) {
	items, err := h.service.ListPendingPayments(c.Request.Context(), inboxFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// EnrollmentHistory godoc
// @Summary Decided enrollments
// @Description Approved and rejected enrollment requests, newest decision first
// @Tags Inbox
// @Produce json
// @Param cycleId query string false "Filter by cycle"
// @Success 200 {object} response.Envelope
// @Router /inbox/enrollments/history [get]
func (h *InboxHandler) EnrollmentHistory(c *gin.Context) {
	items, err := h.service.EnrollmentHistory(c.Request.Context(), c.Query("cycleId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Counts godoc
// @Summary Pending counters
// @Description Live counts of pending enrollments and payments
// @Tags Inbox
// @Produce json
// @Param cycleId query string false "Filter by cycle"
// @Success 200 {object} response.Envelope
// @Router /inbox/counts [get]
func (h *InboxHandler) Counts(c *gin.Context) {
	counts, err := h.service.PendingCounts(c.Request.Context(), c.Query("cycleId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// SubmitEnrollment godoc
// @Summary Submit enrollment request
// @Description Register a new pre-enrollment for review
// @Tags Inbox
// @Accept json
// @Produce json
// @Param payload body service.SubmitEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /inbox/enrollments [post]
func (h *InboxHandler) SubmitEnrollment(c *gin.Context) {
	var req service.SubmitEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.SubmitEnrollment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// SubmitPayment godoc
// @Summary Submit payment report
// @Description Register a payment report for review
// @Tags Inbox
// @Accept json
// @Produce json
// @Param payload body service.SubmitPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /inbox/payments [post]
func (h *InboxHandler) SubmitPayment(c *gin.Context) {
	var req service.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.SubmitPayment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// ApproveEnrollment godoc
// @Summary Approve pending enrollment
// @Description Approve an enrollment assigning group and class. Only pending items can transition.
// @Tags Inbox
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.ApproveEnrollmentRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /inbox/enrollments/{id}/approve [post]
func (h *InboxHandler) ApproveEnrollment(c *gin.Context) {
	var req service.ApproveEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.ApproveEnrollment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// RejectEnrollment godoc
// @Summary Reject pending enrollment
// @Tags Inbox
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /inbox/enrollments/{id}/reject [post]
func (h *InboxHandler) RejectEnrollment(c *gin.Context) {
	item, err := h.service.RejectEnrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// ApprovePayment godoc
// @Summary Approve pending payment
// @Description Approve a payment and mark the linked enrollment as paid
// @Tags Inbox
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /inbox/payments/{id}/approve [post]
func (h *InboxHandler) ApprovePayment(c *gin.Context) {
	item, err := h.service.ApprovePayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// RejectPayment godoc
// @Summary Reject pending payment
// @Tags Inbox
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /inbox/payments/{id}/reject [post]
func (h *InboxHandler) RejectPayment(c *gin.Context) {
	item, err := h.service.RejectPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
