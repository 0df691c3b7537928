package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Resource is a bookable practitioner calendar. Descriptive attributes
// live here; scheduling state does not — slot occupancy belongs to the
// slot index.
type Resource struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Specialty string    `gorm:"type:varchar(100);not null" json:"specialty"`
	Fee       float64   `gorm:"not null" json:"fee"`
	Available bool      `gorm:"default:true" json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for Resource
func (Resource) TableName() string {
	return "resources"
}

// Pricing is the answer to a booking-time catalog lookup: the fee the
// reservation will carry and whether the resource takes bookings at all.
type Pricing struct {
	ResourceID uuid.UUID `json:"resource_id"`
	Name       string    `json:"name"`
	Specialty  string    `json:"specialty"`
	Fee        float64   `json:"fee"`
	Available  bool      `json:"available"`
}
