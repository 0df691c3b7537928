package payments

import "errors"

var (
	// ErrProviderUnavailable indicates the payment round-trip itself
	// failed. The reservation is untouched and the call is safe to retry.
	ErrProviderUnavailable = errors.New("payment provider unavailable")

	// ErrIntentNotFound indicates the provider does not know the intent.
	ErrIntentNotFound = errors.New("payment intent not found")
)
