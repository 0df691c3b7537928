package reservations

import (
	"time"

	"github.com/google/uuid"
)

// Reservation defines the main reservation structure. Resource name,
// specialty and fee are snapshotted at create time so a later catalog
// edit never rewrites what the patient agreed to pay.
type Reservation struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PatientID  uuid.UUID `gorm:"type:uuid;index;not null" json:"patient_id"`
	ResourceID uuid.UUID `gorm:"type:uuid;index;not null" json:"resource_id"`
	SlotDate   string    `gorm:"type:varchar(10);not null" json:"slot_date"`
	TimeLabel  string    `gorm:"type:varchar(5);not null" json:"time_label"`

	// Snapshot of the catalog entry at create time
	ResourceName      string  `gorm:"type:varchar(255);not null" json:"resource_name"`
	ResourceSpecialty string  `gorm:"type:varchar(100)" json:"resource_specialty"`
	Amount            float64 `gorm:"not null" json:"amount"`
	Currency          string  `gorm:"type:varchar(3);default:'usd'" json:"currency"`

	Status     string `gorm:"type:varchar(20);default:'PENDING_PAYMENT'" json:"status"`
	BookingRef string `gorm:"unique;not null" json:"booking_ref"`

	// Payment tracking. PaymentIntentID is set when the client asks for
	// an intent; PaymentRef only ever holds a provider-confirmed capture.
	PaymentIntentID string `gorm:"type:varchar(255)" json:"payment_intent_id,omitempty"`
	PaymentRef      string `gorm:"type:varchar(255)" json:"payment_ref,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// TableName sets the table name for Reservation
func (Reservation) TableName() string {
	return "reservations"
}

// CreateReservationRequest represents a reservation creation request
type CreateReservationRequest struct {
	ResourceID string `json:"resource_id" binding:"required,uuid"`
	SlotDate   string `json:"slot_date" binding:"required,slotdate"`
	TimeLabel  string `json:"time_label" binding:"required,timelabel"`
}

// ReservationResponse represents a reservation in API responses
type ReservationResponse struct {
	ID                string     `json:"id"`
	BookingRef        string     `json:"booking_ref"`
	ResourceID        string     `json:"resource_id"`
	ResourceName      string     `json:"resource_name"`
	ResourceSpecialty string     `json:"resource_specialty,omitempty"`
	SlotDate          string     `json:"slot_date"`
	TimeLabel         string     `json:"time_label"`
	Amount            float64    `json:"amount"`
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	PaymentRef        string     `json:"payment_ref,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ConfirmedAt       *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
}

// PaymentIntentResponse carries the provider handle the client needs to
// complete payment out of band
type PaymentIntentResponse struct {
	ReservationID string `json:"reservation_id"`
	IntentID      string `json:"intent_id"`
	ClientSecret  string `json:"client_secret,omitempty"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

// ListQuery represents pagination and filtering for reservation lists
type ListQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// ToResponse converts a reservation to its API representation
func (r *Reservation) ToResponse() ReservationResponse {
	return ReservationResponse{
		ID:                r.ID.String(),
		BookingRef:        r.BookingRef,
		ResourceID:        r.ResourceID.String(),
		ResourceName:      r.ResourceName,
		ResourceSpecialty: r.ResourceSpecialty,
		SlotDate:          r.SlotDate,
		TimeLabel:         r.TimeLabel,
		Amount:            r.Amount,
		Currency:          r.Currency,
		Status:            r.Status,
		PaymentRef:        r.PaymentRef,
		CreatedAt:         r.CreatedAt,
		ConfirmedAt:       r.ConfirmedAt,
		CancelledAt:       r.CancelledAt,
	}
}
