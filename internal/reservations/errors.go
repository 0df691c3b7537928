package reservations

import "errors"

var (
	// ErrNotFound means no reservation exists with the given id.
	ErrNotFound = errors.New("reservation not found")

	// ErrUnauthorized means the caller does not own the reservation.
	ErrUnauthorized = errors.New("reservation belongs to another patient")

	// ErrResourceUnavailable means the practitioner is not accepting
	// bookings (catalog flag, not slot occupancy).
	ErrResourceUnavailable = errors.New("resource is not available for booking")

	// ErrSlotUnavailable means the requested slot is already confirmed
	// for someone else. Returned on create (fast path) and on confirm
	// when the claim was lost before any payment was captured.
	ErrSlotUnavailable = errors.New("slot is not available")

	// ErrSlotLost means the payment was captured but a concurrent
	// confirmation won the slot first. The charge must be reconciled;
	// the reservation is invalidated as EXPIRED.
	ErrSlotLost = errors.New("slot lost to a concurrent booking after capture")

	// ErrCaptureDeclined means the provider refused the capture. The
	// reservation stays PENDING_PAYMENT; the client may retry with a
	// fresh payment method.
	ErrCaptureDeclined = errors.New("payment capture was declined")

	// ErrPaymentNotInitiated means confirm was called before any
	// payment intent was created for the reservation.
	ErrPaymentNotInitiated = errors.New("no payment intent exists for reservation")

	// ErrAlreadyFinalized means the reservation is already CONFIRMED.
	// Duplicate confirmations land here and are treated as success
	// replays by callers that hold the same payment reference.
	ErrAlreadyFinalized = errors.New("reservation is already confirmed")

	// ErrReservationClosed means the reservation is CANCELLED or
	// EXPIRED and cannot transition further.
	ErrReservationClosed = errors.New("reservation is closed")
)
