package reservations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitionsAllowed(t *testing.T) {
	cases := []struct {
		status      Status
		valid       bool
		terminal    bool
		canConfirm  bool
		cancellable bool
		holdsSlot   bool
	}{
		{StatusPendingPayment, true, false, true, true, false},
		{StatusConfirmed, true, false, false, true, true},
		{StatusCancelled, true, true, false, false, false},
		{StatusExpired, true, true, false, false, false},
		{Status("BOOKED"), false, false, false, false, false},
		{Status(""), false, false, false, false, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.valid, tc.status.IsValid())
			assert.Equal(t, tc.terminal, tc.status.IsTerminal())
			assert.Equal(t, tc.canConfirm, tc.status.CanConfirm())
			assert.Equal(t, tc.cancellable, tc.status.CanBeCancelled())
			assert.Equal(t, tc.holdsSlot, tc.status.HoldsSlot())
		})
	}
}

func TestGenerateBookingReference(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		ref, err := generateBookingReference()
		assert.NoError(t, err)
		assert.Regexp(t, `^APT-\d{8}-[A-Z]{6}$`, ref)
		seen[ref] = struct{}{}
	}
	assert.Greater(t, len(seen), 1, "references must not repeat deterministically")
}
