package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AurelMV/cbt-admin-api/internal/models"
	appErrors "github.com/AurelMV/cbt-admin-api/pkg/errors"
)

type mockEnrollmentQueue struct {
	items            map[string]*models.PendingEnrollment
	paymentStates    map[string][]models.PaymentState
	setPaymentErr    error
	decideCallCount  int
	createdCount     int
	pendingByCycleID map[string]int
}

func (m *mockEnrollmentQueue) ListPending(ctx context.Context, filter models.InboxFilter) ([]models.PendingEnrollment, error) {
	var list []models.PendingEnrollment
	for _, item := range m.items {
		if item.Status != models.ReviewStatusPending {
			continue
		}
		if filter.CycleID != "" && item.CycleID != filter.CycleID {
			continue
		}
		list = append(list, *item)
	}
	return list, nil
}

func (m *mockEnrollmentQueue) CountPending(ctx context.Context, cycleID string) (int, error) {
	if m.pendingByCycleID != nil {
		return m.pendingByCycleID[cycleID], nil
	}
	count := 0
	for _, item := range m.items {
		if item.Status == models.ReviewStatusPending {
			count++
		}
	}
	return count, nil
}

func (m *mockEnrollmentQueue) FindByID(ctx context.Context, id string) (*models.PendingEnrollment, error) {
	if item, ok := m.items[id]; ok {
		clone := *item
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentQueue) Create(ctx context.Context, item *models.PendingEnrollment) error {
	if m.items == nil {
		m.items = make(map[string]*models.PendingEnrollment)
	}
	if item.ID == "" {
		item.ID = "enr-new"
	}
	m.items[item.ID] = item
	m.createdCount++
	return nil
}

func (m *mockEnrollmentQueue) Decide(ctx context.Context, id string, status models.ReviewStatus, groupID, classID *string, accessEnabled bool) (bool, error) {
	m.decideCallCount++
	item, ok := m.items[id]
	if !ok || item.Status != models.ReviewStatusPending {
		return false, nil
	}
	item.Status = status
	item.GroupID = groupID
	item.ClassID = classID
	item.AccessEnabled = accessEnabled
	now := time.Now().UTC()
	item.ReviewedAt = &now
	return true, nil
}

func (m *mockEnrollmentQueue) ListByStatus(ctx context.Context, cycleID string, statuses ...models.ReviewStatus) ([]models.PendingEnrollment, error) {
	var list []models.PendingEnrollment
	for _, item := range m.items {
		for _, status := range statuses {
			if item.Status == status {
				list = append(list, *item)
				break
			}
		}
	}
	return list, nil
}

func (m *mockEnrollmentQueue) SetPaymentState(ctx context.Context, id string, state models.PaymentState) error {
	if m.setPaymentErr != nil {
		return m.setPaymentErr
	}
	if m.paymentStates == nil {
		m.paymentStates = make(map[string][]models.PaymentState)
	}
	m.paymentStates[id] = append(m.paymentStates[id], state)
	if item, ok := m.items[id]; ok {
		item.PaymentState = state
	}
	return nil
}

type mockPaymentQueue struct {
	items map[string]*models.PendingPayment
}

func (m *mockPaymentQueue) ListPending(ctx context.Context, filter models.InboxFilter) ([]models.PendingPayment, error) {
	var list []models.PendingPayment
	for _, item := range m.items {
		if item.Status == models.ReviewStatusPending {
			list = append(list, *item)
		}
	}
	return list, nil
}

func (m *mockPaymentQueue) CountPending(ctx context.Context, cycleID string) (int, error) {
	count := 0
	for _, item := range m.items {
		if item.Status == models.ReviewStatusPending {
			count++
		}
	}
	return count, nil
}

func (m *mockPaymentQueue) FindByID(ctx context.Context, id string) (*models.PendingPayment, error) {
	if item, ok := m.items[id]; ok {
		clone := *item
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentQueue) Create(ctx context.Context, item *models.PendingPayment) error {
	if m.items == nil {
		m.items = make(map[string]*models.PendingPayment)
	}
	if item.ID == "" {
		item.ID = "pay-new"
	}
	m.items[item.ID] = item
	return nil
}

func (m *mockPaymentQueue) Decide(ctx context.Context, id string, status models.ReviewStatus) (bool, error) {
	item, ok := m.items[id]
	if !ok || item.Status != models.ReviewStatusPending {
		return false, nil
	}
	item.Status = status
	now := time.Now().UTC()
	item.ReviewedAt = &now
	return true, nil
}

type mockAssignments struct{}

func (m *mockAssignments) FindByID(ctx context.Context, id string) (*models.Group, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Group{ID: id}, nil
}

func (m *mockAssignments) FindClassByID(ctx context.Context, id string) (*models.ClassSection, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.ClassSection{ID: id}, nil
}

type capturingPublisher struct {
	events []models.DomainEvent
}

func (p *capturingPublisher) Publish(ctx context.Context, event models.DomainEvent) {
	p.events = append(p.events, event)
}

func newInboxServiceForTest(enrollments *mockEnrollmentQueue, payments *mockPaymentQueue, events *capturingPublisher) *InboxService {
	// A typed nil stored in the interface would defeat the optional-publisher
	// check, so only a non-nil recorder is handed through.
	var publisher EventPublisher
	if events != nil {
		publisher = events
	}
	return NewInboxService(enrollments, payments, &mockAssignments{}, publisher, validator.New(), zap.NewNop())
}

func pendingEnrollment(id, cycleID string) *models.PendingEnrollment {
	return &models.PendingEnrollment{
		ID:           id,
		CycleID:      cycleID,
		FullName:     "Maria Quispe",
		Document:     "71234567",
		Email:        "maria@example.com",
		Program:      "MEDICINA",
		Status:       models.ReviewStatusPending,
		PaymentState: models.PaymentStateUnpaid,
	}
}

func pendingPayment(id, enrollmentID string) *models.PendingPayment {
	return &models.PendingPayment{
		ID:           id,
		CycleID:      "c1",
		EnrollmentID: enrollmentID,
		PayerName:    "Maria Quispe",
		PayerDoc:     "71234567",
		Amount:       350,
		PaidAt:       time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Bank:         "BCP",
		ReceiptRef:   "OP-123456",
		Status:       models.ReviewStatusPending,
	}
}

func TestSubmitEnrollmentStartsPending(t *testing.T) {
	enrollments := &mockEnrollmentQueue{}
	svc := newInboxServiceForTest(enrollments, &mockPaymentQueue{}, nil)

	item, err := svc.SubmitEnrollment(context.Background(), SubmitEnrollmentRequest{
		CycleID:  "c1",
		FullName: "Maria Quispe",
		Document: "71234567",
		Email:    "maria@example.com",
		Program:  "MEDICINA",
	})

	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusPending, item.Status)
	assert.False(t, item.AccessEnabled)
	assert.Equal(t, 1, enrollments.createdCount)
}

func TestSubmitEnrollmentValidation(t *testing.T) {
	svc := newInboxServiceForTest(&mockEnrollmentQueue{}, &mockPaymentQueue{}, nil)

	_, err := svc.SubmitEnrollment(context.Background(), SubmitEnrollmentRequest{CycleID: "c1"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApproveEnrollmentAssignsAndPublishes(t *testing.T) {
	enrollments := &mockEnrollmentQueue{items: map[string]*models.PendingEnrollment{
		"enr-1": pendingEnrollment("enr-1", "c1"),
	}}
	events := &capturingPublisher{}
	svc := newInboxServiceForTest(enrollments, &mockPaymentQueue{}, events)

	item, err := svc.ApproveEnrollment(context.Background(), "enr-1", ApproveEnrollmentRequest{GroupID: "g1", ClassID: "cl1"})

	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, item.Status)
	assert.True(t, item.AccessEnabled)
	require.NotNil(t, item.GroupID)
	assert.Equal(t, "g1", *item.GroupID)
	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventEnrollmentApproved, events.events[0].Type)
	assert.Equal(t, "maria@example.com", events.events[0].Recipient)
}

func TestApproveEnrollmentAlreadyDecided(t *testing.T) {
	decided := pendingEnrollment("enr-1", "c1")
	decided.Status = models.ReviewStatusRejected
	enrollments := &mockEnrollmentQueue{items: map[string]*models.PendingEnrollment{"enr-1": decided}}
	events := &capturingPublisher{}
	svc := newInboxServiceForTest(enrollments, &mockPaymentQueue{}, events)

	_, err := svc.ApproveEnrollment(context.Background(), "enr-1", ApproveEnrollmentRequest{GroupID: "g1", ClassID: "cl1"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, events.events)
}

func TestApproveEnrollmentUnknownID(t *testing.T) {
	svc := newInboxServiceForTest(&mockEnrollmentQueue{}, &mockPaymentQueue{}, nil)

	_, err := svc.ApproveEnrollment(context.Background(), "ghost", ApproveEnrollmentRequest{GroupID: "g1", ClassID: "cl1"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApproveEnrollmentUnknownGroup(t *testing.T) {
	enrollments := &mockEnrollmentQueue{items: map[string]*models.PendingEnrollment{
		"enr-1": pendingEnrollment("enr-1", "c1"),
	}}
	svc := newInboxServiceForTest(enrollments, &mockPaymentQueue{}, nil)

	_, err := svc.ApproveEnrollment(context.Background(), "enr-1", ApproveEnrollmentRequest{GroupID: "missing", ClassID: "cl1"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.ReviewStatusPending, enrollments.items["enr-1"].Status)
}

func TestRejectEnrollmentKeepsAccessBlocked(t *testing.T) {
	enrollments := &mockEnrollmentQueue{items: map[string]*models.PendingEnrollment{
		"enr-1": pendingEnrollment("enr-1", "c1"),
	}}
	events := &capturingPublisher{}
	svc := newInboxServiceForTest(enrollments, &mockPaymentQueue{}, events)

	item, err := svc.RejectEnrollment(context.Background(), "enr-1")

	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusRejected, item.Status)
	assert.False(t, item.AccessEnabled)
	assert.Nil(t, item.GroupID)
	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventEnrollmentRejected, events.events[0].Type)
}

func TestApprovePaymentSyncsEnrollmentOnce(t *testing.T) {
	enrollments := &mockEnrollmentQueue{items: map[string]*models.PendingEnrollment{
		"enr-1": pendingEnrollment("enr-1", "c1"),
	}}
	payments := &mockPaymentQueue{items: map[string]*models.PendingPayment{
		"pay-1": pendingPayment("pay-1", "enr-1"),
	}}
	events := &capturingPublisher{}
	svc := newInboxServiceForTest(enrollments, payments, events)

	item, err := svc.ApprovePayment(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, item.Status)
	require.Len(t, enrollments.paymentStates["enr-1"], 1)
	assert.Equal(t, models.PaymentStatePaid, enrollments.paymentStates["enr-1"][0])
	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventPaymentApproved, events.events[0].Type)

	// Retrying the approval is rejected and never re-syncs the enrollment.
	_, err = svc.ApprovePayment(context.Background(), "pay-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Len(t, enrollments.paymentStates["enr-1"], 1)
	assert.Len(t, events.events, 1)
}

func TestApprovePaymentSurvivesSyncFailure(t *testing.T) {
	enrollments := &mockEnrollmentQueue{
		items:         map[string]*models.PendingEnrollment{"enr-1": pendingEnrollment("enr-1", "c1")},
		setPaymentErr: sql.ErrConnDone,
	}
	payments := &mockPaymentQueue{items: map[string]*models.PendingPayment{
		"pay-1": pendingPayment("pay-1", "enr-1"),
	}}
	svc := newInboxServiceForTest(enrollments, payments, nil)

	item, err := svc.ApprovePayment(context.Background(), "pay-1")

	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, item.Status)
}

func TestRejectPaymentLeavesEnrollmentUntouched(t *testing.T) {
	enrollments := &mockEnrollmentQueue{items: map[string]*models.PendingEnrollment{
		"enr-1": pendingEnrollment("enr-1", "c1"),
	}}
	payments := &mockPaymentQueue{items: map[string]*models.PendingPayment{
		"pay-1": pendingPayment("pay-1", "enr-1"),
	}}
	events := &capturingPublisher{}
	svc := newInboxServiceForTest(enrollments, payments, events)

	item, err := svc.RejectPayment(context.Background(), "pay-1")

	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusRejected, item.Status)
	assert.Empty(t, enrollments.paymentStates)
	assert.Equal(t, models.PaymentStateUnpaid, enrollments.items["enr-1"].PaymentState)
	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventPaymentRejected, events.events[0].Type)
}

func TestSubmitPaymentRequiresEnrollment(t *testing.T) {
	svc := newInboxServiceForTest(&mockEnrollmentQueue{}, &mockPaymentQueue{}, nil)

	_, err := svc.SubmitPayment(context.Background(), SubmitPaymentRequest{
		CycleID:      "c1",
		EnrollmentID: "ghost",
		PayerName:    "Maria Quispe",
		PayerDoc:     "71234567",
		Amount:       350,
		PaidAt:       "2026-03-10",
		Bank:         "BCP",
		ReceiptRef:   "OP-123456",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPendingCountsAreLive(t *testing.T) {
	enrollments := &mockEnrollmentQueue{items: map[string]*models.PendingEnrollment{
		"enr-1": pendingEnrollment("enr-1", "c1"),
		"enr-2": pendingEnrollment("enr-2", "c1"),
	}}
	payments := &mockPaymentQueue{items: map[string]*models.PendingPayment{
		"pay-1": pendingPayment("pay-1", "enr-1"),
	}}
	svc := newInboxServiceForTest(enrollments, payments, nil)

	counts, err := svc.PendingCounts(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Enrollments)
	assert.Equal(t, 1, counts.Payments)

	_, err = svc.RejectEnrollment(context.Background(), "enr-1")
	require.NoError(t, err)
	_, err = svc.ApprovePayment(context.Background(), "pay-1")
	require.NoError(t, err)

	counts, err = svc.PendingCounts(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Enrollments)
	assert.Equal(t, 0, counts.Payments)
}

func TestEnrollmentHistoryListsDecidedOnly(t *testing.T) {
	approved := pendingEnrollment("enr-1", "c1")
	approved.Status = models.ReviewStatusApproved
	rejected := pendingEnrollment("enr-2", "c1")
	rejected.Status = models.ReviewStatusRejected
	enrollments := &mockEnrollmentQueue{items: map[string]*models.PendingEnrollment{
		"enr-1": approved,
		"enr-2": rejected,
		"enr-3": pendingEnrollment("enr-3", "c1"),
	}}
	svc := newInboxServiceForTest(enrollments, &mockPaymentQueue{}, nil)

	history, err := svc.EnrollmentHistory(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, item := range history {
		assert.True(t, item.Status.Terminal())
	}
}

func TestDecisionsSucceedWithoutPublisher(t *testing.T) {
	enrollments := &mockEnrollmentQueue{items: map[string]*models.PendingEnrollment{
		"enr-1": pendingEnrollment("enr-1", "c1"),
	}}
	payments := &mockPaymentQueue{items: map[string]*models.PendingPayment{
		"pay-1": pendingPayment("pay-1", "enr-1"),
	}}
	svc := newInboxServiceForTest(enrollments, payments, nil)

	item, err := svc.ApproveEnrollment(context.Background(), "enr-1", ApproveEnrollmentRequest{GroupID: "g1", ClassID: "cl1"})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, item.Status)

	payment, err := svc.ApprovePayment(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, payment.Status)
}
