package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// Core reservation operations
	Create(ctx context.Context, reservation *Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	GetPatientReservations(ctx context.Context, patientID uuid.UUID, query ListQuery) ([]Reservation, int64, error)

	// Payment intent tracking
	SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) (bool, error)

	// Conditional state transitions. Each returns whether THIS call
	// performed the transition; false means some concurrent actor moved
	// the row first and the caller must re-read to learn the outcome.
	MarkConfirmed(ctx context.Context, id uuid.UUID, paymentRef string, at time.Time) (bool, error)
	MarkClosed(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (bool, error)
	MarkSlotLost(ctx context.Context, id uuid.UUID, paymentRef string, at time.Time) (bool, error)

	// Reaper support
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]Reservation, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, reservation *Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var reservation Reservation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) GetPatientReservations(ctx context.Context, patientID uuid.UUID, query ListQuery) ([]Reservation, int64, error) {
	var reservations []Reservation
	var total int64

	dbQuery := r.db.WithContext(ctx).Model(&Reservation{}).Where("patient_id = ?", patientID)
	if query.Status != "" {
		dbQuery = dbQuery.Where("status = ?", query.Status)
	}

	if err := dbQuery.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	err := dbQuery.
		Order("created_at DESC").
		Limit(query.Limit).
		Offset(query.Offset).
		Find(&reservations).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}

	return reservations, total, nil
}

func (r *repository) SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ? AND status = ?", id, StatusPendingPayment).
		Update("payment_intent_id", intentID)
	if res.Error != nil {
		return false, fmt.Errorf("failed to set payment intent: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkConfirmed(ctx context.Context, id uuid.UUID, paymentRef string, at time.Time) (bool, error) {
	// UPDATE ... WHERE status = 'PENDING_PAYMENT' is the arbitration
	// point: whichever writer's predicate still holds wins; everyone
	// else sees RowsAffected == 0.
	res := r.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ? AND status = ?", id, StatusPendingPayment).
		Updates(map[string]interface{}{
			"status":       StatusConfirmed.String(),
			"payment_ref":  paymentRef,
			"confirmed_at": at,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to confirm reservation: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkClosed(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":       to.String(),
			"cancelled_at": at,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to close reservation: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkSlotLost(ctx context.Context, id uuid.UUID, paymentRef string, at time.Time) (bool, error) {
	// Closes a reservation whose payment was captured but whose slot
	// went to a concurrent booking. EXPIRED rather than CANCELLED keeps
	// the cause distinguishable in the audit trail, and the capture
	// reference is persisted so billing reconciliation can find the
	// charge.
	res := r.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ? AND status = ?", id, StatusPendingPayment).
		Updates(map[string]interface{}{
			"status":       StatusExpired.String(),
			"payment_ref":  paymentRef,
			"cancelled_at": at,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to close slot-lost reservation: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]Reservation, error) {
	var stale []Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", StatusPendingPayment, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&stale).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find stale reservations: %w", err)
	}
	return stale, nil
}
