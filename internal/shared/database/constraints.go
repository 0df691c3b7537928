package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds critical database constraints for concurrency control
func MigrateConstraints(db *gorm.DB) error {
	// The slot-claim unique index is the load-bearing constraint: the
	// atomic claim relies on the database rejecting a second insert for
	// the same (resource, date, label) triple.
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_slot_claims_triple
		ON slot_claims (resource_id, slot_date, time_label);
	`).Error
	if err != nil {
		return err
	}

	// Guard the reservation state machine at the storage layer too.
	err = db.Exec(`
		DO $$ BEGIN
			ALTER TABLE reservations
			ADD CONSTRAINT chk_reservations_status
			CHECK (status IN ('PENDING_PAYMENT', 'CONFIRMED', 'CANCELLED', 'EXPIRED'));
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$;
	`).Error
	if err != nil {
		return err
	}

	// Index for the reaper's stale-hold scan
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reservations_status_created_at
		ON reservations (status, created_at);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
