package reservations

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"clinicbook/internal/catalog"
	"clinicbook/internal/idempotency"
	"clinicbook/internal/notifications"
	"clinicbook/internal/payments"
	"clinicbook/internal/slotindex"
	"clinicbook/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActorSystem marks transitions performed by background jobs rather
// than the owning patient.
const ActorSystem = "system"

// Service interface defines the contract for reservation business logic
type Service interface {
	CreateReservation(ctx context.Context, patientID uuid.UUID, req CreateReservationRequest, idempotencyKey string) (*Reservation, bool, error)
	CreatePaymentIntent(ctx context.Context, patientID, reservationID uuid.UUID) (*PaymentIntentResponse, error)
	ConfirmPayment(ctx context.Context, patientID, reservationID uuid.UUID) (*Reservation, error)
	CancelReservation(ctx context.Context, patientID, reservationID uuid.UUID) (*Reservation, error)
	GetReservation(ctx context.Context, patientID, reservationID uuid.UUID) (*Reservation, error)
	ListReservations(ctx context.Context, patientID uuid.UUID, query ListQuery) ([]Reservation, int64, error)

	// ExpireStale closes pending reservations older than the hold
	// timeout. Called by the background reaper.
	ExpireStale(ctx context.Context) (int, error)
}

// Config carries the booking policy knobs the service needs
type Config struct {
	HoldTimeout       time.Duration
	IdempotencyWindow time.Duration
	ReaperBatchSize   int
	Currency          string
}

type service struct {
	repo      Repository
	slots     slotindex.Index
	gateway   payments.Gateway
	catalog   catalog.Service
	idem      idempotency.Store
	publisher notifications.Publisher
	config    Config
	log       *logger.Logger
}

// NewService creates a new reservation service. idem and publisher may
// be nil when Redis/Kafka are disabled; the flows degrade to
// non-deduplicated creates and unpublished transitions.
func NewService(repo Repository, slots slotindex.Index, gateway payments.Gateway, catalogService catalog.Service, idem idempotency.Store, publisher notifications.Publisher, config Config) Service {
	return &service{
		repo:      repo,
		slots:     slots,
		gateway:   gateway,
		catalog:   catalogService,
		idem:      idem,
		publisher: publisher,
		config:    config,
		log:       logger.GetDefault(),
	}
}

func (s *service) CreateReservation(ctx context.Context, patientID uuid.UUID, req CreateReservationRequest, idempotencyKey string) (*Reservation, bool, error) {
	resourceID, err := uuid.Parse(req.ResourceID)
	if err != nil {
		return nil, false, fmt.Errorf("invalid resource id: %w", err)
	}
	if _, err := time.Parse("2006-01-02", req.SlotDate); err != nil {
		return nil, false, fmt.Errorf("invalid slot date %q: %w", req.SlotDate, err)
	}
	if !slotindex.ValidLabel(req.TimeLabel) {
		return nil, false, fmt.Errorf("invalid time label %q", req.TimeLabel)
	}

	// Replay check first: a retried request must get back the
	// reservation its first attempt created, not a second hold.
	if idempotencyKey != "" && s.idem != nil {
		if priorID, found, err := s.idem.Lookup(ctx, patientID, idempotencyKey); err == nil && found {
			if prior, err := s.repo.GetByID(ctx, priorID); err == nil {
				return prior, true, nil
			}
		}
	}

	pricing, err := s.catalog.Lookup(ctx, resourceID)
	if err != nil {
		if errors.Is(err, catalog.ErrResourceNotFound) {
			return nil, false, catalog.ErrResourceNotFound
		}
		return nil, false, fmt.Errorf("catalog lookup failed: %w", err)
	}
	if !pricing.Available {
		return nil, false, ErrResourceUnavailable
	}

	// Advisory fast path. The authoritative occupancy check happens at
	// confirm time; this only spares the patient a doomed payment flow.
	occupied, err := s.slots.Occupied(ctx, resourceID, req.SlotDate, req.TimeLabel)
	if err != nil {
		return nil, false, fmt.Errorf("slot availability check failed: %w", err)
	}
	if occupied {
		return nil, false, ErrSlotUnavailable
	}

	bookingRef, err := generateBookingReference()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate booking reference: %w", err)
	}

	reservation := &Reservation{
		ID:                uuid.New(),
		PatientID:         patientID,
		ResourceID:        resourceID,
		SlotDate:          req.SlotDate,
		TimeLabel:         req.TimeLabel,
		ResourceName:      pricing.Name,
		ResourceSpecialty: pricing.Specialty,
		Amount:            pricing.Fee,
		Currency:          s.config.Currency,
		Status:            StatusPendingPayment.String(),
		BookingRef:        bookingRef,
	}

	if err := s.repo.Create(ctx, reservation); err != nil {
		return nil, false, fmt.Errorf("failed to create reservation: %w", err)
	}

	if idempotencyKey != "" && s.idem != nil {
		winner, stored, err := s.idem.Remember(ctx, patientID, idempotencyKey, reservation.ID, s.config.IdempotencyWindow)
		if err == nil && !stored {
			// A concurrent duplicate got there first. Fold onto the
			// winner and retire the reservation we just minted.
			if _, err := s.repo.MarkClosed(ctx, reservation.ID, StatusPendingPayment, StatusCancelled, time.Now().UTC()); err != nil {
				s.log.ErrorWithContext(ctx, "failed to retire duplicate reservation", err, map[string]interface{}{
					"reservation_id": reservation.ID.String(),
				})
			}
			if prior, err := s.repo.GetByID(ctx, winner); err == nil {
				return prior, true, nil
			}
		}
	}

	s.log.LogReservationCreated(ctx, reservation.ID.String(), resourceID.String(), patientID.String())
	s.publish(ctx, reservation, notifications.EventReservationCreated, "", "")

	return reservation, false, nil
}

func (s *service) CreatePaymentIntent(ctx context.Context, patientID, reservationID uuid.UUID) (*PaymentIntentResponse, error) {
	reservation, err := s.loadOwned(ctx, patientID, reservationID)
	if err != nil {
		return nil, err
	}

	switch Status(reservation.Status) {
	case StatusConfirmed:
		return nil, ErrAlreadyFinalized
	case StatusCancelled, StatusExpired:
		return nil, ErrReservationClosed
	}

	intent, err := s.gateway.CreateIntent(ctx, payments.Cents(reservation.Amount), reservation.Currency, map[string]string{
		"reservation_id": reservation.ID.String(),
		"booking_ref":    reservation.BookingRef,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	ok, err := s.repo.SetPaymentIntent(ctx, reservation.ID, intent.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Status moved while we talked to the provider.
		return nil, s.closedStateError(ctx, reservation.ID)
	}

	return &PaymentIntentResponse{
		ReservationID: reservation.ID.String(),
		IntentID:      intent.ID,
		ClientSecret:  intent.ClientSecret,
		Amount:        intent.Amount,
		Currency:      intent.Currency,
	}, nil
}

// ConfirmPayment is the capture-then-claim pivot of the whole flow.
// Order matters: capture first (no payment, no slot), claim second,
// then flip the row. Every step is written so a replay after a crash
// converges on the same outcome.
func (s *service) ConfirmPayment(ctx context.Context, patientID, reservationID uuid.UUID) (*Reservation, error) {
	reservation, err := s.loadOwned(ctx, patientID, reservationID)
	if err != nil {
		return nil, err
	}

	switch Status(reservation.Status) {
	case StatusConfirmed:
		// Duplicate confirmation of an already-confirmed reservation
		// replays the success.
		return reservation, nil
	case StatusCancelled, StatusExpired:
		return nil, ErrReservationClosed
	}

	if reservation.PaymentIntentID == "" {
		return nil, ErrPaymentNotInitiated
	}

	capture, err := s.gateway.Capture(ctx, reservation.PaymentIntentID)
	if err != nil {
		if errors.Is(err, payments.ErrIntentNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrPaymentNotInitiated, err)
		}
		// Provider unreachable. Nothing changed; the client may retry.
		return nil, err
	}
	if !capture.Completed {
		return nil, ErrCaptureDeclined
	}

	// Money is in. Claim the slot; exactly one confirmation per triple
	// gets the grant, everyone else learns who won.
	claim, err := s.slots.TryClaim(ctx, reservation.ResourceID, reservation.SlotDate, reservation.TimeLabel, reservation.ID)
	if err != nil {
		return nil, fmt.Errorf("slot claim failed after capture: %w", err)
	}

	ownsSlot := claim.Granted || claim.Owner == reservation.ID
	if !ownsSlot {
		return nil, s.handleSlotLost(ctx, reservation, claim.Owner, capture.ProviderRef)
	}

	confirmed, err := s.repo.MarkConfirmed(ctx, reservation.ID, capture.ProviderRef, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return s.resolveConfirmRace(ctx, reservation, capture.ProviderRef)
	}

	s.log.LogReservationConfirmed(ctx, reservation.ID.String(), capture.ProviderRef)
	updated, err := s.repo.GetByID(ctx, reservation.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated, notifications.EventReservationConfirmed, "", capture.ProviderRef)
	return updated, nil
}

// handleSlotLost closes a captured-but-beaten reservation. The charge
// stands until reconciliation; the event is the refund trigger.
func (s *service) handleSlotLost(ctx context.Context, reservation *Reservation, winner uuid.UUID, paymentRef string) error {
	closed, err := s.repo.MarkSlotLost(ctx, reservation.ID, paymentRef, time.Now().UTC())
	if err != nil {
		return err
	}
	if !closed {
		s.log.ErrorWithContext(ctx, "slot-lost reservation already moved", nil, map[string]interface{}{
			"reservation_id": reservation.ID.String(),
		})
	}
	s.log.LogSlotLost(ctx, reservation.ID.String(), winner.String(), paymentRef)
	s.publish(ctx, reservation, notifications.EventSlotLost, "", paymentRef)
	return ErrSlotLost
}

// resolveConfirmRace handles MarkConfirmed losing its conditional
// update after the slot claim was already ours.
func (s *service) resolveConfirmRace(ctx context.Context, reservation *Reservation, paymentRef string) (*Reservation, error) {
	current, err := s.repo.GetByID(ctx, reservation.ID)
	if err != nil {
		return nil, err
	}

	switch Status(current.Status) {
	case StatusConfirmed:
		// A concurrent duplicate confirmation of the same reservation
		// committed first. Same intent, same outcome.
		return current, nil
	case StatusExpired:
		// The reaper expired the row between our claim and our update.
		// The capture stands but the reservation is gone: free the slot
		// and surface the reconciliation case.
		if err := s.slots.Release(ctx, reservation.ResourceID, reservation.SlotDate, reservation.TimeLabel, reservation.ID); err != nil {
			s.log.ErrorWithContext(ctx, "failed to release claim of expired reservation", err, map[string]interface{}{
				"reservation_id": reservation.ID.String(),
			})
		}
		s.log.LogSlotLost(ctx, reservation.ID.String(), "", paymentRef)
		s.publish(ctx, current, notifications.EventSlotLost, ActorSystem, paymentRef)
		return nil, ErrSlotLost
	default:
		return nil, ErrReservationClosed
	}
}

func (s *service) CancelReservation(ctx context.Context, patientID, reservationID uuid.UUID) (*Reservation, error) {
	reservation, err := s.loadOwned(ctx, patientID, reservationID)
	if err != nil {
		return nil, err
	}

	switch Status(reservation.Status) {
	case StatusCancelled, StatusExpired:
		// Cancelling an already-closed reservation is a no-op replay;
		// timestamps stay untouched.
		return reservation, nil
	}

	from := Status(reservation.Status)
	now := time.Now().UTC()
	closed, err := s.repo.MarkClosed(ctx, reservation.ID, from, StatusCancelled, now)
	if err != nil {
		return nil, err
	}
	if !closed {
		// Lost to a concurrent confirm, cancel, or the reaper. A row
		// that ended up closed either way is still a cancel success.
		current, err := s.repo.GetByID(ctx, reservation.ID)
		if err != nil {
			return nil, err
		}
		switch Status(current.Status) {
		case StatusCancelled, StatusExpired:
			return current, nil
		}
		return nil, ErrReservationClosed
	}

	// A confirmed reservation owns its slot; give it back so the slot
	// can be rebooked. Pending reservations hold no claim.
	if from == StatusConfirmed {
		if err := s.slots.Release(ctx, reservation.ResourceID, reservation.SlotDate, reservation.TimeLabel, reservation.ID); err != nil {
			s.log.ErrorWithContext(ctx, "failed to release slot on cancel", err, map[string]interface{}{
				"reservation_id": reservation.ID.String(),
			})
		}
	}

	s.log.LogReservationClosed(ctx, reservation.ID.String(), StatusCancelled.String(), "patient")
	updated, err := s.repo.GetByID(ctx, reservation.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated, notifications.EventReservationCancelled, "patient", updated.PaymentRef)
	return updated, nil
}

func (s *service) GetReservation(ctx context.Context, patientID, reservationID uuid.UUID) (*Reservation, error) {
	return s.loadOwned(ctx, patientID, reservationID)
}

func (s *service) ListReservations(ctx context.Context, patientID uuid.UUID, query ListQuery) ([]Reservation, int64, error) {
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	if query.Status != "" && !Status(query.Status).IsValid() {
		return nil, 0, fmt.Errorf("invalid status filter %q", query.Status)
	}
	return s.repo.GetPatientReservations(ctx, patientID, query)
}

func (s *service) ExpireStale(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.config.HoldTimeout)
	stale, err := s.repo.FindStalePending(ctx, cutoff, s.config.ReaperBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		reservation := &stale[i]
		closed, err := s.repo.MarkClosed(ctx, reservation.ID, StatusPendingPayment, StatusExpired, time.Now().UTC())
		if err != nil {
			s.log.ErrorWithContext(ctx, "failed to expire reservation", err, map[string]interface{}{
				"reservation_id": reservation.ID.String(),
			})
			continue
		}
		if !closed {
			// Confirmed or cancelled after we read it. Leave it be.
			continue
		}

		// A crash between claim and confirm can leave an orphaned claim
		// behind a pending row; the guarded release sweeps it up.
		if err := s.slots.Release(ctx, reservation.ResourceID, reservation.SlotDate, reservation.TimeLabel, reservation.ID); err != nil {
			s.log.ErrorWithContext(ctx, "failed to release claim of expired reservation", err, map[string]interface{}{
				"reservation_id": reservation.ID.String(),
			})
		}

		s.log.LogReservationClosed(ctx, reservation.ID.String(), StatusExpired.String(), ActorSystem)
		s.publish(ctx, reservation, notifications.EventReservationExpired, ActorSystem, "")
		expired++
	}

	return expired, nil
}

func (s *service) loadOwned(ctx context.Context, patientID, reservationID uuid.UUID) (*Reservation, error) {
	reservation, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if reservation.PatientID != patientID {
		return nil, ErrUnauthorized
	}
	return reservation, nil
}

func (s *service) publish(ctx context.Context, reservation *Reservation, eventType notifications.EventType, actor, paymentRef string) {
	if s.publisher == nil {
		return
	}

	event := notifications.NewReservationEvent(eventType)
	event.ReservationID = reservation.ID
	event.ResourceID = reservation.ResourceID
	event.PatientID = reservation.PatientID
	event.SlotDate = reservation.SlotDate
	event.TimeLabel = reservation.TimeLabel
	event.Amount = reservation.Amount
	event.PaymentRef = paymentRef
	event.Actor = actor

	// Fire and forget: the transition already happened, a publish
	// failure must not unwind it.
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.log.ErrorWithContext(ctx, "failed to publish reservation event", err, map[string]interface{}{
			"event_type":     string(eventType),
			"reservation_id": reservation.ID.String(),
		})
	}
}

func (s *service) closedStateError(ctx context.Context, reservationID uuid.UUID) error {
	current, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return ErrReservationClosed
	}
	if Status(current.Status) == StatusConfirmed {
		return ErrAlreadyFinalized
	}
	return ErrReservationClosed
}

// generateBookingReference generates a patient-facing booking reference
func generateBookingReference() (string, error) {
	timestamp := time.Now().Format("20060102")

	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	randomPart := make([]byte, 6)

	for i := range randomPart {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		randomPart[i] = letters[num.Int64()]
	}

	return fmt.Sprintf("APT-%s-%s", timestamp, string(randomPart)), nil
}
