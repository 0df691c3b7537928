package reservations

type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusConfirmed      Status = "CONFIRMED"
	StatusCancelled      Status = "CANCELLED"
	StatusExpired        Status = "EXPIRED"
)

// IsValid checks if the reservation status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPendingPayment, StatusConfirmed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal checks if the status admits no further transitions
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusExpired
}

// CanConfirm checks if a reservation with this status can be confirmed
func (s Status) CanConfirm() bool {
	return s == StatusPendingPayment
}

// CanBeCancelled reports whether cancel performs a transition from this
// status. On terminal statuses cancel replays as a no-op instead.
func (s Status) CanBeCancelled() bool {
	return s == StatusPendingPayment || s == StatusConfirmed
}

// HoldsSlot reports whether a reservation in this status owns its slot claim
func (s Status) HoldsSlot() bool {
	return s == StatusConfirmed
}
