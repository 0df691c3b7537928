package reservations

import (
	"time"

	"clinicbook/internal/slotindex"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators wires the slot grid rules into gin's binding layer
// so malformed dates and off-grid labels are rejected before the
// service sees them. Call once at startup.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterValidation("slotdate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})

	v.RegisterValidation("timelabel", func(fl validator.FieldLevel) bool {
		return slotindex.ValidLabel(fl.Field().String())
	})
}
