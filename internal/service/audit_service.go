package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/NadafAyan/BloodShare/internal/events"
)

// AuditService writes every donor lifecycle event to a dedicated audit logger.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventDonorRegistered, a.handleDonorRegistered)
	a.dispatcher.Subscribe(events.EventDonorApproved, a.handleDonorDecided)
	a.dispatcher.Subscribe(events.EventDonorRejected, a.handleDonorDecided)
	a.dispatcher.Subscribe(events.EventDonorDeleted, a.handleDonorDeleted)
}

func (a *AuditService) handleDonorRegistered(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.DonorRegisteredPayload); ok {
		fields = append(fields,
			zap.String("blood_group", string(p.BloodGroup)),
			zap.String("city", p.City),
			zap.Bool("available_for_emergency", p.AvailableForEmergency))
	}
	a.logger.Info("DonorRegistered", fields...)
	return nil
}

func (a *AuditService) handleDonorDecided(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.DonorDecidedPayload); ok {
		fields = append(fields,
			zap.String("old_status", string(p.OldStatus)),
			zap.String("new_status", string(p.NewStatus)),
			zap.String("decision", string(p.Decision)),
			zap.String("decision_id", p.DecisionID))
	}
	a.logger.Info("DonorDecided", fields...)
	return nil
}

func (a *AuditService) handleDonorDeleted(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.DonorDeletedPayload); ok {
		fields = append(fields, zap.String("status", string(p.Status)))
	}
	a.logger.Warn("DonorDeleted", fields...)
	return nil
}

func (a *AuditService) baseFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("donor_id", event.DonorID),
		zap.Time("occurred_at", event.Timestamp),
	}
}
