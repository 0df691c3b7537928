package slotindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Index is the source of truth for slot occupancy. All mutation of the
// occupancy set funnels through TryClaim/Release; nothing else writes
// slot_claims.
type Index interface {
	// TryClaim atomically claims the slot for reservationID. Under
	// concurrent calls for the same triple exactly one caller is
	// granted; everyone else sees the winning owner. The claim is a
	// single conditional insert, so the guarantee holds across
	// processes, not just goroutines.
	TryClaim(ctx context.Context, resourceID uuid.UUID, slotDate, timeLabel string, reservationID uuid.UUID) (*ClaimResult, error)

	// Release frees the slot, but only if reservationID still owns the
	// claim. Releasing an unclaimed slot or someone else's claim is a
	// no-op, so a stale caller can never free a slot that was re-won.
	Release(ctx context.Context, resourceID uuid.UUID, slotDate, timeLabel string, reservationID uuid.UUID) error

	// Occupied reports whether the slot is currently claimed.
	Occupied(ctx context.Context, resourceID uuid.UUID, slotDate, timeLabel string) (bool, error)

	// OccupiedLabels returns the claimed time labels for one resource-day.
	OccupiedLabels(ctx context.Context, resourceID uuid.UUID, slotDate string) ([]string, error)
}

type index struct {
	db *gorm.DB
}

// NewIndex creates a slot index backed by the relational store.
func NewIndex(db *gorm.DB) Index {
	return &index{db: db}
}

func (i *index) TryClaim(ctx context.Context, resourceID uuid.UUID, slotDate, timeLabel string, reservationID uuid.UUID) (*ClaimResult, error) {
	claim := SlotClaim{
		ID:            uuid.New(),
		ResourceID:    resourceID,
		SlotDate:      slotDate,
		TimeLabel:     timeLabel,
		ReservationID: reservationID,
		ClaimedAt:     time.Now().UTC(),
	}

	// INSERT ... ON CONFLICT DO NOTHING against the composite unique
	// index. RowsAffected tells us whether we won; no read-then-write
	// window exists.
	res := i.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "resource_id"}, {Name: "slot_date"}, {Name: "time_label"}},
			DoNothing: true,
		}).
		Create(&claim)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to claim slot: %w", res.Error)
	}

	if res.RowsAffected == 1 {
		return &ClaimResult{Granted: true, Owner: reservationID}, nil
	}

	// Lost the race; report the current owner so replayed confirmations
	// can recognise their own earlier claim.
	var existing SlotClaim
	err := i.db.WithContext(ctx).
		Where("resource_id = ? AND slot_date = ? AND time_label = ?", resourceID, slotDate, timeLabel).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Winner released between our insert and this read. The
			// caller's claim did not land either way.
			return &ClaimResult{Granted: false}, nil
		}
		return nil, fmt.Errorf("failed to read winning claim: %w", err)
	}

	return &ClaimResult{Granted: false, Owner: existing.ReservationID}, nil
}

func (i *index) Release(ctx context.Context, resourceID uuid.UUID, slotDate, timeLabel string, reservationID uuid.UUID) error {
	err := i.db.WithContext(ctx).
		Where("resource_id = ? AND slot_date = ? AND time_label = ? AND reservation_id = ?",
			resourceID, slotDate, timeLabel, reservationID).
		Delete(&SlotClaim{}).Error
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}
	return nil
}

func (i *index) Occupied(ctx context.Context, resourceID uuid.UUID, slotDate, timeLabel string) (bool, error) {
	var count int64
	err := i.db.WithContext(ctx).
		Model(&SlotClaim{}).
		Where("resource_id = ? AND slot_date = ? AND time_label = ?", resourceID, slotDate, timeLabel).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check slot occupancy: %w", err)
	}
	return count > 0, nil
}

func (i *index) OccupiedLabels(ctx context.Context, resourceID uuid.UUID, slotDate string) ([]string, error) {
	var occupied []string
	err := i.db.WithContext(ctx).
		Model(&SlotClaim{}).
		Where("resource_id = ? AND slot_date = ?", resourceID, slotDate).
		Order("time_label ASC").
		Pluck("time_label", &occupied).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list occupied slots: %w", err)
	}
	return occupied, nil
}
