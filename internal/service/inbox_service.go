package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/AurelMV/cbt-admin-api/internal/models"
	appErrors "github.com/AurelMV/cbt-admin-api/pkg/errors"
)

type preEnrollmentRepository interface {
	ListPending(ctx context.Context, filter models.InboxFilter) ([]models.PendingEnrollment, error)
	CountPending(ctx context.Context, cycleID string) (int, error)
	FindByID(ctx context.Context, id string) (*models.PendingEnrollment, error)
	Create(ctx context.Context, item *models.PendingEnrollment) error
	Decide(ctx context.Context, id string, status models.ReviewStatus, groupID, classID *string, accessEnabled bool) (bool, error)
	SetPaymentState(ctx context.Context, id string, state models.PaymentState) error
	ListByStatus(ctx context.Context, cycleID string, statuses ...models.ReviewStatus) ([]models.PendingEnrollment, error)
}

type prePaymentRepository interface {
	ListPending(ctx context.Context, filter models.InboxFilter) ([]models.PendingPayment, error)
	CountPending(ctx context.Context, cycleID string) (int, error)
	FindByID(ctx context.Context, id string) (*models.PendingPayment, error)
	Create(ctx context.Context, item *models.PendingPayment) error
	Decide(ctx context.Context, id string, status models.ReviewStatus) (bool, error)
}

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	FindClassByID(ctx context.Context, id string) (*models.ClassSection, error)
}

// EventPublisher receives domain events emitted by review transitions.
type EventPublisher interface {
	Publish(ctx context.Context, event models.DomainEvent)
}

// SubmitEnrollmentRequest is the intake-form payload.
type SubmitEnrollmentRequest struct {
	CycleID  string `json:"cycle_id" validate:"required"`
	FullName string `json:"full_name" validate:"required"`
	Document string `json:"document" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Program  string `json:"program" validate:"required"`
}

// SubmitPaymentRequest reports a payment for review.
type SubmitPaymentRequest struct {
	CycleID      string  `json:"cycle_id" validate:"required"`
	EnrollmentID string  `json:"enrollment_id" validate:"required"`
	PayerName    string  `json:"payer_name" validate:"required"`
	PayerDoc     string  `json:"payer_doc" validate:"required"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	PaidAt       string  `json:"paid_at" validate:"required,datetime=2006-01-02"`
	Bank         string  `json:"bank" validate:"required"`
	ReceiptRef   string  `json:"receipt_ref" validate:"required"`
}

// ApproveEnrollmentRequest carries the group/class assignment recorded on approval.
type ApproveEnrollmentRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	ClassID string `json:"class_id" validate:"required"`
}

// InboxService maintains the two reviewer queues and performs their state
// transitions. Every successful transition emits exactly one domain event.
type InboxService struct {
	enrollments preEnrollmentRepository
	payments    prePaymentRepository
	assignments assignmentReader
	events      EventPublisher
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewInboxService constructs InboxService.
func NewInboxService(enrollments preEnrollmentRepository, payments prePaymentRepository, assignments assignmentReader, events EventPublisher, validate *validator.Validate, logger *zap.Logger) *InboxService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InboxService{enrollments: enrollments, payments: payments, assignments: assignments, events: events, validator: validate, logger: logger}
}

// ListPendingEnrollments returns the enrollment queue, optionally scoped to a cycle.
func (s *InboxService) ListPendingEnrollments(ctx context.Context, filter models.InboxFilter) ([]models.PendingEnrollment, error) {
	items, err := s.enrollments.ListPending(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending enrollments")
	}
	return items, nil
}

// ListPendingPayments returns the payment queue sorted by payment date,
// most recent first unless the filter asks for ascending order.
func (s *InboxService) ListPendingPayments(ctx context.Context, filter models.InboxFilter) ([]models.PendingPayment, error) {
	items, err := s.payments.ListPending(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending payments")
	}
	return items, nil
}

// EnrollmentHistory returns decided enrollment requests for audit views,
// newest decision first.
func (s *InboxService) EnrollmentHistory(ctx context.Context, cycleID string) ([]models.PendingEnrollment, error) {
	items, err := s.enrollments.ListByStatus(ctx, cycleID, models.ReviewStatusApproved, models.ReviewStatusRejected)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list decided enrollments")
	}
	return items, nil
}

// PendingCounts reports the live queue lengths. Computed on read so it can
// never drift from the underlying collections.
func (s *InboxService) PendingCounts(ctx context.Context, cycleID string) (*models.PendingCounts, error) {
	enrollments, err := s.enrollments.CountPending(ctx, cycleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending enrollments")
	}
	payments, err := s.payments.CountPending(ctx, cycleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending payments")
	}
	return &models.PendingCounts{Enrollments: enrollments, Payments: payments}, nil
}

// SubmitEnrollment registers an intake-form submission in the queue.
func (s *InboxService) SubmitEnrollment(ctx context.Context, req SubmitEnrollmentRequest) (*models.PendingEnrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	item := &models.PendingEnrollment{
		CycleID:  req.CycleID,
		FullName: req.FullName,
		Document: req.Document,
		Email:    req.Email,
		Program:  req.Program,
		Status:   models.ReviewStatusPending,
	}
	if err := s.enrollments.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment request")
	}
	return item, nil
}

// SubmitPayment registers a reported payment in the queue.
func (s *InboxService) SubmitPayment(ctx context.Context, req SubmitPaymentRequest) (*models.PendingPayment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	paidAt, err := time.Parse(models.DateKeyLayout, req.PaidAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment date")
	}
	if _, err := s.enrollments.FindByID(ctx, req.EnrollmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	item := &models.PendingPayment{
		CycleID:      req.CycleID,
		EnrollmentID: req.EnrollmentID,
		PayerName:    req.PayerName,
		PayerDoc:     req.PayerDoc,
		Amount:       req.Amount,
		PaidAt:       paidAt,
		Bank:         req.Bank,
		ReceiptRef:   req.ReceiptRef,
		Status:       models.ReviewStatusPending,
	}
	if err := s.payments.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment record")
	}
	return item, nil
}

// ApproveEnrollment transitions a pending enrollment to approved, records
// the group/class assignment and enables access.
func (s *InboxService) ApproveEnrollment(ctx context.Context, id string, req ApproveEnrollmentRequest) (*models.PendingEnrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	item, err := s.loadEnrollment(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment request already decided")
	}
	if _, err := s.assignments.FindByID(ctx, req.GroupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if _, err := s.assignments.FindClassByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	ok, err := s.enrollments.Decide(ctx, id, models.ReviewStatusApproved, &req.GroupID, &req.ClassID, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve enrollment")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment request already decided")
	}

	item, err = s.loadEnrollment(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.EventEnrollmentApproved, item.ID, item.CycleID, item.Email)
	return item, nil
}

// RejectEnrollment transitions a pending enrollment to rejected. Access
// stays blocked and no assignment is recorded.
func (s *InboxService) RejectEnrollment(ctx context.Context, id string) (*models.PendingEnrollment, error) {
	item, err := s.loadEnrollment(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment request already decided")
	}

	ok, err := s.enrollments.Decide(ctx, id, models.ReviewStatusRejected, nil, nil, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject enrollment")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment request already decided")
	}

	item, err = s.loadEnrollment(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.EventEnrollmentRejected, item.ID, item.CycleID, item.Email)
	return item, nil
}

// ApprovePayment transitions a pending payment to approved and marks the
// linked enrollment as paid. The pending-only guard makes the downstream
// update run at most once: a retried approval observes a terminal status
// and surfaces InvalidTransition without touching the enrollment again.
func (s *InboxService) ApprovePayment(ctx context.Context, id string) (*models.PendingPayment, error) {
	item, err := s.loadPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "payment already decided")
	}

	ok, err := s.payments.Decide(ctx, id, models.ReviewStatusApproved)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve payment")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "payment already decided")
	}

	if err := s.enrollments.SetPaymentState(ctx, item.EnrollmentID, models.PaymentStatePaid); err != nil {
		// The transition already happened; the sync is retried by the caller
		// refreshing the view rather than rolled back.
		s.logger.Error("failed to sync enrollment payment state",
			zap.String("payment_id", id),
			zap.String("enrollment_id", item.EnrollmentID),
			zap.Error(err),
		)
	}

	item, err = s.loadPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.EventPaymentApproved, item.ID, item.CycleID, s.paymentRecipient(ctx, item))
	return item, nil
}

// RejectPayment transitions a pending payment to rejected. The linked
// enrollment is not touched.
func (s *InboxService) RejectPayment(ctx context.Context, id string) (*models.PendingPayment, error) {
	item, err := s.loadPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "payment already decided")
	}

	ok, err := s.payments.Decide(ctx, id, models.ReviewStatusRejected)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject payment")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "payment already decided")
	}

	item, err = s.loadPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.EventPaymentRejected, item.ID, item.CycleID, s.paymentRecipient(ctx, item))
	return item, nil
}

func (s *InboxService) loadEnrollment(ctx context.Context, id string) (*models.PendingEnrollment, error) {
	item, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment request")
	}
	return item, nil
}

func (s *InboxService) loadPayment(ctx context.Context, id string) (*models.PendingPayment, error) {
	item, err := s.payments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return item, nil
}

func (s *InboxService) paymentRecipient(ctx context.Context, payment *models.PendingPayment) string {
	enrollment, err := s.enrollments.FindByID(ctx, payment.EnrollmentID)
	if err != nil {
		s.logger.Warn("failed to resolve payment recipient", zap.String("enrollment_id", payment.EnrollmentID), zap.Error(err))
		return ""
	}
	return enrollment.Email
}

func (s *InboxService) publish(ctx context.Context, eventType models.EventType, itemID, cycleID, recipient string) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, models.DomainEvent{
		Type:       eventType,
		ItemID:     itemID,
		CycleID:    cycleID,
		Recipient:  recipient,
		OccurredAt: time.Now().UTC(),
	})
}
