package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// StripeGateway implements Gateway on top of manual-capture Stripe
// PaymentIntents. The intent is authorized by the client against the
// provider directly; Capture pulls the funds and is the only signal
// the booking flow accepts as proof of payment.
type StripeGateway struct{}

// NewStripeGateway creates a Stripe-backed gateway. The API key is
// expected to be set globally via stripe.Key at startup.
func NewStripeGateway(apiKey string) *StripeGateway {
	if apiKey != "" {
		stripe.Key = apiKey
	}
	return &StripeGateway{}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amount),
		Currency:      stripe.String(currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, wrapStripeErr("create intent", err)
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

func (g *StripeGateway) Capture(ctx context.Context, intentID string) (*CaptureResult, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	pi, err := paymentintent.Capture(intentID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			switch stripeErr.Code {
			case stripe.ErrorCodeResourceMissing:
				return nil, fmt.Errorf("%w: %s", ErrIntentNotFound, intentID)
			case stripe.ErrorCodeCardDeclined, stripe.ErrorCodeExpiredCard, stripe.ErrorCodePaymentIntentAuthenticationFailure:
				// Provider answered: the payment did not go through.
				return &CaptureResult{Completed: false}, nil
			case stripe.ErrorCodePaymentIntentUnexpectedState:
				// Likely a replayed capture of an already-settled
				// intent. Re-read the intent; a succeeded state means
				// the earlier capture stands.
				return g.lookupCapture(ctx, intentID)
			}
		}
		return nil, wrapStripeErr("capture", err)
	}

	return &CaptureResult{
		Completed:   pi.Status == stripe.PaymentIntentStatusSucceeded,
		Amount:      pi.AmountReceived,
		ProviderRef: pi.ID,
	}, nil
}

func (g *StripeGateway) lookupCapture(ctx context.Context, intentID string) (*CaptureResult, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, wrapStripeErr("lookup intent", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("%w: intent %s in state %s cannot be captured", ErrProviderUnavailable, intentID, pi.Status)
	}
	return &CaptureResult{
		Completed:   true,
		Amount:      pi.AmountReceived,
		ProviderRef: pi.ID,
	}, nil
}

func wrapStripeErr(op string, err error) error {
	return fmt.Errorf("%w: stripe %s failed: %v", ErrProviderUnavailable, op, err)
}
