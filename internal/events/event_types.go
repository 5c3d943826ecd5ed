package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDonorRegistered EventType = "donor_registered"
	EventDonorApproved   EventType = "donor_approved"
	EventDonorRejected   EventType = "donor_rejected"
	EventDonorDeleted    EventType = "donor_deleted"
)

// AllEventTypes lists every lifecycle event, in lifecycle order.
var AllEventTypes = []EventType{
	EventDonorRegistered,
	EventDonorApproved,
	EventDonorRejected,
	EventDonorDeleted,
}

// Event represents a donor lifecycle event emitted by services. Payloads
// never carry contact details.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	DonorID   int64     `json:"donor_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, donorID int64, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		DonorID:   donorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// DonorRegisteredPayload payload.
type DonorRegisteredPayload struct {
	BloodGroup            domain.BloodGroup `json:"blood_group"`
	City                  string            `json:"city"`
	AvailableForEmergency bool              `json:"available_for_emergency"`
}

// DonorDecidedPayload payload for approvals and rejections.
type DonorDecidedPayload struct {
	OldStatus  domain.ApprovalStatus `json:"old_status"`
	NewStatus  domain.ApprovalStatus `json:"new_status"`
	Decision   domain.Decision       `json:"decision"`
	DecisionID string                `json:"decision_id"`
}

// DonorDeletedPayload payload.
type DonorDeletedPayload struct {
	Status domain.ApprovalStatus `json:"status"`
}
