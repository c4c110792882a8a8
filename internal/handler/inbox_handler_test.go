package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AurelMV/cbt-admin-api/internal/models"
	"github.com/AurelMV/cbt-admin-api/internal/service"
	appErrors "github.com/AurelMV/cbt-admin-api/pkg/errors"
)

type inboxServiceMock struct {
	enrollments []models.PendingEnrollment
	payments    []models.PendingPayment
	counts      *models.PendingCounts
	approveErr  error
	submitErr   error

	lastFilter    models.InboxFilter
	lastDecisions []string
}

func (m *inboxServiceMock) ListPendingEnrollments(ctx context.Context, filter models.InboxFilter) ([]models.PendingEnrollment, error) {
	m.lastFilter = filter
	return m.enrollments, nil
}

func (m *inboxServiceMock) ListPendingPayments(ctx context.Context, filter models.InboxFilter) ([]models.PendingPayment, error) {
	m.lastFilter = filter
	return m.payments, nil
}

func (m *inboxServiceMock) EnrollmentHistory(ctx context.Context, cycleID string) ([]models.PendingEnrollment, error) {
	return m.enrollments, nil
}

func (m *inboxServiceMock) PendingCounts(ctx context.Context, cycleID string) (*models.PendingCounts, error) {
	if m.counts == nil {
		return &models.PendingCounts{}, nil
	}
	return m.counts, nil
}

func (m *inboxServiceMock) SubmitEnrollment(ctx context.Context, req service.SubmitEnrollmentRequest) (*models.PendingEnrollment, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &models.PendingEnrollment{
		ID:           "enr-1",
		CycleID:      req.CycleID,
		FullName:     req.FullName,
		Status:       models.ReviewStatusPending,
		PaymentState: models.PaymentStateUnpaid,
	}, nil
}

func (m *inboxServiceMock) SubmitPayment(ctx context.Context, req service.SubmitPaymentRequest) (*models.PendingPayment, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &models.PendingPayment{ID: "pay-1", EnrollmentID: req.EnrollmentID, Status: models.ReviewStatusPending}, nil
}

func (m *inboxServiceMock) ApproveEnrollment(ctx context.Context, id string, req service.ApproveEnrollmentRequest) (*models.PendingEnrollment, error) {
	m.lastDecisions = append(m.lastDecisions, "approve-enrollment:"+id)
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	return &models.PendingEnrollment{ID: id, Status: models.ReviewStatusApproved, GroupID: &req.GroupID, AccessEnabled: true}, nil
}

func (m *inboxServiceMock) RejectEnrollment(ctx context.Context, id string) (*models.PendingEnrollment, error) {
	m.lastDecisions = append(m.lastDecisions, "reject-enrollment:"+id)
	return &models.PendingEnrollment{ID: id, Status: models.ReviewStatusRejected}, nil
}

func (m *inboxServiceMock) ApprovePayment(ctx context.Context, id string) (*models.PendingPayment, error) {
	m.lastDecisions = append(m.lastDecisions, "approve-payment:"+id)
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	return &models.PendingPayment{ID: id, Status: models.ReviewStatusApproved}, nil
}

func (m *inboxServiceMock) RejectPayment(ctx context.Context, id string) (*models.PendingPayment, error) {
	m.lastDecisions = append(m.lastDecisions, "reject-payment:"+id)
	return &models.PendingPayment{ID: id, Status: models.ReviewStatusRejected}, nil
}

func TestInboxHandlerListEnrollmentsParsesFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &inboxServiceMock{enrollments: []models.PendingEnrollment{{ID: "enr-1"}}}
	handler := NewInboxHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/inbox/enrollments?cycleId=cycle-1&page=2&limit=5", nil)
	c.Request = req

	handler.ListEnrollments(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cycle-1", mock.lastFilter.CycleID)
	assert.Equal(t, 2, mock.lastFilter.Page)
	assert.Equal(t, 5, mock.lastFilter.PageSize)

	var envelope struct {
		Data []models.PendingEnrollment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "enr-1", envelope.Data[0].ID)
}

func TestInboxHandlerSubmitEnrollmentCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewInboxHandler(&inboxServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.SubmitEnrollmentRequest{
		CycleID:  "cycle-1",
		FullName: "Maria Quispe",
		Document: "71234567",
		Email:    "maria@example.com",
		Program:  "Ciencias",
	})
	req, _ := http.NewRequest(http.MethodPost, "/inbox/enrollments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.SubmitEnrollment(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestInboxHandlerSubmitEnrollmentInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewInboxHandler(&inboxServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/inbox/enrollments", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.SubmitEnrollment(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInboxHandlerApproveEnrollment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &inboxServiceMock{}
	handler := NewInboxHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.ApproveEnrollmentRequest{GroupID: "group-1", ClassID: "class-1"})
	req, _ := http.NewRequest(http.MethodPost, "/inbox/enrollments/enr-1/approve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	handler.ApproveEnrollment(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"approve-enrollment:enr-1"}, mock.lastDecisions)
}

func TestInboxHandlerApproveAlreadyDecidedConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewInboxHandler(&inboxServiceMock{approveErr: appErrors.ErrInvalidTransition})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/inbox/payments/pay-1/approve", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "pay-1"}}

	handler.ApprovePayment(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, envelope.Error.Code)
}

func TestInboxHandlerApproveUnknownNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewInboxHandler(&inboxServiceMock{approveErr: appErrors.ErrNotFound})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.ApproveEnrollmentRequest{GroupID: "group-1", ClassID: "class-1"})
	req, _ := http.NewRequest(http.MethodPost, "/inbox/enrollments/missing/approve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.ApproveEnrollment(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInboxHandlerCounts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewInboxHandler(&inboxServiceMock{counts: &models.PendingCounts{Enrollments: 3, Payments: 1}})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/inbox/counts", nil)
	c.Request = req

	handler.Counts(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.PendingCounts `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 3, envelope.Data.Enrollments)
	assert.Equal(t, 1, envelope.Data.Payments)
}
