package payments

import (
	"context"
	"math"
)

// Intent is a provider-side payment authorization created before
// capture. The client completes it out of band; the service only ever
// trusts the provider's own capture result, never the client's claim.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret,omitempty"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// CaptureResult is the provider's answer to a capture attempt.
// Completed=false means the provider was reachable but declined;
// transport-level failures surface as errors instead.
type CaptureResult struct {
	Completed   bool   `json:"completed"`
	Amount      int64  `json:"amount"`
	ProviderRef string `json:"provider_ref"`
}

// Gateway abstracts a single capture-based payment provider.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error)
	Capture(ctx context.Context, intentID string) (*CaptureResult, error)
}

// Cents converts a decimal amount to the integer minor units providers
// expect.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
