package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a reservation state transition
type EventType string

const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationConfirmed EventType = "reservation.confirmed"
	EventReservationCancelled EventType = "reservation.cancelled"
	EventReservationExpired   EventType = "reservation.expired"

	// EventSlotLost flags the refund-trigger condition: the payment was
	// captured but a concurrent booking won the slot. Downstream billing
	// reconciliation subscribes to this.
	EventSlotLost EventType = "reservation.slot_lost"
)

// ReservationEvent is the audit record published on every state
// transition. Publishing is fire-and-forget; a failed publish never
// rolls back the transition it describes.
type ReservationEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          EventType `json:"type"`
	ReservationID uuid.UUID `json:"reservation_id"`
	ResourceID    uuid.UUID `json:"resource_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	SlotDate      string    `json:"slot_date"`
	TimeLabel     string    `json:"time_label"`
	Amount        float64   `json:"amount"`
	PaymentRef    string    `json:"payment_ref,omitempty"`
	Actor         string    `json:"actor,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewReservationEvent creates an event with id and timestamp filled in
func NewReservationEvent(eventType EventType) *ReservationEvent {
	return &ReservationEvent{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON serializes the event for the wire
func (e *ReservationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// GetPartitionKey routes all events of one reservation to the same
// partition so its audit trail stays ordered.
func (e *ReservationEvent) GetPartitionKey() string {
	return e.ReservationID.String()
}
