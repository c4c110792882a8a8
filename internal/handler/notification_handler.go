package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AurelMV/cbt-admin-api/internal/service"
	"github.com/AurelMV/cbt-admin-api/pkg/response"
)

// NotificationHandler exposes dispatched notification history.
type NotificationHandler struct {
	service *service.NotificationService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// Recent godoc
// @Summary Recent notifications
// @Description Most recently dispatched notifications, newest first
// @Tags Notifications
// @Produce json
// @Param limit query int false "Max items"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	items, err := h.service.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
