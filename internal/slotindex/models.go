package slotindex

import (
	"time"

	"github.com/google/uuid"
)

// SlotClaim records exclusive occupancy of a single (resource, date,
// time label) slot by a confirmed reservation. The composite unique
// index is what makes TryClaim a true check-and-set: a second insert
// for the same triple conflicts instead of duplicating.
type SlotClaim struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ResourceID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_slot_claims_triple,priority:1" json:"resource_id"`
	SlotDate      string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_slot_claims_triple,priority:2" json:"slot_date"`
	TimeLabel     string    `gorm:"type:varchar(5);not null;uniqueIndex:idx_slot_claims_triple,priority:3" json:"time_label"`
	ReservationID uuid.UUID `gorm:"type:uuid;not null;index" json:"reservation_id"`
	ClaimedAt     time.Time `json:"claimed_at"`
}

// TableName sets the table name for SlotClaim
func (SlotClaim) TableName() string {
	return "slot_claims"
}

// ClaimResult is the outcome of a TryClaim call.
type ClaimResult struct {
	Granted bool
	// Owner is the reservation currently holding the slot. On a granted
	// claim it is the caller's reservation; on a conflict it identifies
	// the winner.
	Owner uuid.UUID
}
