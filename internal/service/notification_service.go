package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AurelMV/cbt-admin-api/internal/models"
	"github.com/AurelMV/cbt-admin-api/pkg/config"
	"github.com/AurelMV/cbt-admin-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListRecent(ctx context.Context, limit int) ([]models.Notification, error)
}

// NotificationService consumes domain events and dispatches one notification
// per event through a background queue. Dispatch failures are retried by the
// queue and never propagate to the transition that emitted the event.
type NotificationService struct {
	repo   notificationRepository
	queue  *jobs.Queue
	sender string
	logger *zap.Logger
}

// NewNotificationService constructs the service and its dispatch queue.
func NewNotificationService(repo notificationRepository, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, sender: cfg.SenderAddress, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.dispatch, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start begins background dispatching.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Publish implements EventPublisher. Enqueue failures are logged; the
// originating transition has already committed and must not fail.
func (s *NotificationService) Publish(ctx context.Context, event models.DomainEvent) {
	job := jobs.Job{ID: uuid.NewString(), Type: string(event.Type), Payload: event}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue notification",
			zap.String("event", string(event.Type)),
			zap.String("item_id", event.ItemID),
			zap.Error(err),
		)
	}
}

// Recent returns the latest dispatched notifications.
func (s *NotificationService) Recent(ctx context.Context, limit int) ([]models.Notification, error) {
	return s.repo.ListRecent(ctx, limit)
}

func (s *NotificationService) dispatch(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.DomainEvent)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	if event.Recipient == "" {
		s.logger.Warn("notification without recipient dropped",
			zap.String("event", string(event.Type)),
			zap.String("item_id", event.ItemID),
		)
		return nil
	}

	subject, body := composeMessage(event)
	notification := &models.Notification{
		Recipient: event.Recipient,
		Subject:   subject,
		Body:      body,
		Event:     event.Type,
		SentAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	s.logger.Info("notification dispatched",
		zap.String("event", string(event.Type)),
		zap.String("recipient", event.Recipient),
		zap.String("sender", s.sender),
	)
	return nil
}

func composeMessage(event models.DomainEvent) (string, string) {
	switch event.Type {
	case models.EventEnrollmentApproved:
		return "Matrícula aprobada", fmt.Sprintf("Su solicitud de matrícula %s fue aprobada. Ya puede acceder a la plataforma.", event.ItemID)
	case models.EventEnrollmentRejected:
		return "Matrícula rechazada", fmt.Sprintf("Su solicitud de matrícula %s fue rechazada. Comuníquese con administración.", event.ItemID)
	case models.EventPaymentApproved:
		return "Pago confirmado", fmt.Sprintf("Su pago %s fue validado y registrado.", event.ItemID)
	case models.EventPaymentRejected:
		return "Pago observado", fmt.Sprintf("Su pago %s fue observado. Verifique el comprobante enviado.", event.ItemID)
	default:
		return "Notificación", fmt.Sprintf("Actualización sobre el registro %s.", event.ItemID)
	}
}
