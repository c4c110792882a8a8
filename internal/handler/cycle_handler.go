package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AurelMV/cbt-admin-api/internal/models"
	"github.com/AurelMV/cbt-admin-api/internal/service"
	appErrors "github.com/AurelMV/cbt-admin-api/pkg/errors"
	"github.com/AurelMV/cbt-admin-api/pkg/response"
)

// CycleHandler exposes academic cycle endpoints.
type CycleHandler struct {
	service *service.CycleService
}

// NewCycleHandler constructs a cycle handler.
func NewCycleHandler(svc *service.CycleService) *CycleHandler {
	return &CycleHandler{service: svc}
}

// List godoc
// @Summary List cycles
// @Description List academic cycles with filters
// @Tags Cycles
// @Produce json
// @Param state query string false "Filter by state (OPEN or CLOSED)"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /cycles [get]
func (h *CycleHandler) List(c *gin.Context) {
	var filter models.CycleFilter
	if state := c.Query("state"); state != "" {
		filter.State = models.CycleState(state)
	}
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	cycles, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cycles, pagination)
}

// Get godoc
// @Summary Get cycle detail
// @Description Get a cycle with its session dates
// @Tags Cycles
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cycles/{id} [get]
func (h *CycleHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create cycle
// @Tags Cycles
// @Accept json
// @Produce json
// @Param payload body service.CreateCycleRequest true "Cycle payload"
// @Success 201 {object} response.Envelope
// @Router /cycles [post]
func (h *CycleHandler) Create(c *gin.Context) {
	var req service.CreateCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cycle, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cycle)
}

// Update godoc
// @Summary Update cycle
// @Tags Cycles
// @Accept json
// @Produce json
// @Param id path string true "Cycle ID"
// @Param payload body service.UpdateCycleRequest true "Cycle payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cycles/{id} [put]
func (h *CycleHandler) Update(c *gin.Context) {
	var req service.UpdateCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cycle, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cycle, nil)
}

// AddSession godoc
// @Summary Add session date
// @Description Register a class session date for the cycle
// @Tags Cycles
// @Accept json
// @Produce json
// @Param id path string true "Cycle ID"
// @Param payload body service.AddSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cycles/{id}/sessions [post]
func (h *CycleHandler) AddSession(c *gin.Context) {
	var req service.AddSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.service.AddSession(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Summary godoc
// @Summary Cycle summary
// @Description Aggregated counters for a cycle. Pending counts are always live.
// @Tags Cycles
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cycles/{id}/summary [get]
func (h *CycleHandler) Summary(c *gin.Context) {
	summary, cached, err := h.service.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"cached": cached})
}
