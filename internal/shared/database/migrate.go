package database

import (
	"clinicbook/internal/auth"
	"clinicbook/internal/catalog"
	"clinicbook/internal/reservations"
	"clinicbook/internal/slotindex"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&auth.Patient{},
		&catalog.Resource{},
		&reservations.Reservation{},
		&slotindex.SlotClaim{},
	)
	if err != nil {
		return err
	}
	return MigrateConstraints(db)
}
