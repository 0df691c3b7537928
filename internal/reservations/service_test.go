package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"clinicbook/internal/catalog"
	"clinicbook/internal/notifications"
	"clinicbook/internal/payments"
	"clinicbook/internal/slotindex"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// In-memory repository mirroring the conditional-update semantics of
// the real one: transitions only land when the row is still in the
// expected state, and the caller learns whether it won.
type memRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Reservation

	// test hook, invoked before the confirm update takes effect
	beforeMarkConfirmed func()
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[uuid.UUID]*Reservation)}
}

func (r *memRepo) Create(ctx context.Context, reservation *Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}
	snapshot := *reservation
	r.rows[reservation.ID] = &snapshot
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *row
	return &copy, nil
}

func (r *memRepo) GetPatientReservations(ctx context.Context, patientID uuid.UUID, query ListQuery) ([]Reservation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Reservation
	for _, row := range r.rows {
		if row.PatientID != patientID {
			continue
		}
		if query.Status != "" && row.Status != query.Status {
			continue
		}
		out = append(out, *row)
	}
	return out, int64(len(out)), nil
}

func (r *memRepo) SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.Status != StatusPendingPayment.String() {
		return false, nil
	}
	row.PaymentIntentID = intentID
	return true, nil
}

func (r *memRepo) MarkConfirmed(ctx context.Context, id uuid.UUID, paymentRef string, at time.Time) (bool, error) {
	if r.beforeMarkConfirmed != nil {
		r.beforeMarkConfirmed()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.Status != StatusPendingPayment.String() {
		return false, nil
	}
	row.Status = StatusConfirmed.String()
	row.PaymentRef = paymentRef
	row.ConfirmedAt = &at
	return true, nil
}

func (r *memRepo) MarkClosed(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.Status != from.String() {
		return false, nil
	}
	row.Status = to.String()
	row.CancelledAt = &at
	return true, nil
}

func (r *memRepo) MarkSlotLost(ctx context.Context, id uuid.UUID, paymentRef string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.Status != StatusPendingPayment.String() {
		return false, nil
	}
	row.Status = StatusExpired.String()
	row.PaymentRef = paymentRef
	row.CancelledAt = &at
	return true, nil
}

func (r *memRepo) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []Reservation
	for _, row := range r.rows {
		if row.Status == StatusPendingPayment.String() && row.CreatedAt.Before(cutoff) {
			stale = append(stale, *row)
			if len(stale) >= limit {
				break
			}
		}
	}
	return stale, nil
}

// In-memory slot index with the same exactly-one-winner contract as
// the conditional-insert implementation.
type memSlots struct {
	mu     sync.Mutex
	claims map[string]uuid.UUID
}

func newMemSlots() *memSlots {
	return &memSlots{claims: make(map[string]uuid.UUID)}
}

func slotKey(resourceID uuid.UUID, slotDate, timeLabel string) string {
	return resourceID.String() + "|" + slotDate + "|" + timeLabel
}

func (s *memSlots) TryClaim(ctx context.Context, resourceID uuid.UUID, slotDate, timeLabel string, reservationID uuid.UUID) (*slotindex.ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slotKey(resourceID, slotDate, timeLabel)
	if owner, taken := s.claims[key]; taken {
		return &slotindex.ClaimResult{Granted: false, Owner: owner}, nil
	}
	s.claims[key] = reservationID
	return &slotindex.ClaimResult{Granted: true, Owner: reservationID}, nil
}

func (s *memSlots) Release(ctx context.Context, resourceID uuid.UUID, slotDate, timeLabel string, reservationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slotKey(resourceID, slotDate, timeLabel)
	if owner, taken := s.claims[key]; taken && owner == reservationID {
		delete(s.claims, key)
	}
	return nil
}

func (s *memSlots) Occupied(ctx context.Context, resourceID uuid.UUID, slotDate, timeLabel string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, taken := s.claims[slotKey(resourceID, slotDate, timeLabel)]
	return taken, nil
}

func (s *memSlots) OccupiedLabels(ctx context.Context, resourceID uuid.UUID, slotDate string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := resourceID.String() + "|" + slotDate + "|"
	var labels []string
	for key := range s.claims {
		if strings.HasPrefix(key, prefix) {
			labels = append(labels, strings.TrimPrefix(key, prefix))
		}
	}
	return labels, nil
}

func (s *memSlots) owner(resourceID uuid.UUID, slotDate, timeLabel string) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, taken := s.claims[slotKey(resourceID, slotDate, timeLabel)]
	return owner, taken
}

type fakeGateway struct {
	mu          sync.Mutex
	intents     int
	captureFunc func(intentID string) (*payments.CaptureResult, error)
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*payments.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents++
	id := fmt.Sprintf("pi_test_%d", g.intents)
	return &payments.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Amount:       amount,
		Currency:     currency,
	}, nil
}

func (g *fakeGateway) Capture(ctx context.Context, intentID string) (*payments.CaptureResult, error) {
	g.mu.Lock()
	capture := g.captureFunc
	g.mu.Unlock()
	if capture != nil {
		return capture(intentID)
	}
	return &payments.CaptureResult{
		Completed:   true,
		Amount:      5000,
		ProviderRef: "ch_" + intentID,
	}, nil
}

type fakeCatalog struct {
	fee       float64
	available bool
}

func (c *fakeCatalog) Lookup(ctx context.Context, resourceID uuid.UUID) (*catalog.Pricing, error) {
	return &catalog.Pricing{
		ResourceID: resourceID,
		Name:       "Dr. Richard James",
		Specialty:  "General physician",
		Fee:        c.fee,
		Available:  c.available,
	}, nil
}

func (c *fakeCatalog) GetResource(ctx context.Context, resourceID uuid.UUID) (*catalog.Resource, error) {
	return &catalog.Resource{ID: resourceID, Name: "Dr. Richard James", Fee: c.fee, Available: c.available}, nil
}

func (c *fakeCatalog) ListResources(ctx context.Context) ([]catalog.Resource, error) {
	return nil, nil
}

type memIdem struct {
	mu   sync.Mutex
	keys map[string]uuid.UUID
}

func newMemIdem() *memIdem {
	return &memIdem{keys: make(map[string]uuid.UUID)}
}

func (s *memIdem) Lookup(ctx context.Context, callerID uuid.UUID, key string) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, found := s.keys[callerID.String()+":"+key]
	return id, found, nil
}

func (s *memIdem) Remember(ctx context.Context, callerID uuid.UUID, key string, reservationID uuid.UUID, window time.Duration) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := callerID.String() + ":" + key
	if winner, taken := s.keys[k]; taken {
		return winner, false, nil
	}
	s.keys[k] = reservationID
	return reservationID, true, nil
}

type recordPublisher struct {
	mu     sync.Mutex
	events []*notifications.ReservationEvent
}

func (p *recordPublisher) PublishEvent(ctx context.Context, event *notifications.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordPublisher) Close() error                          { return nil }
func (p *recordPublisher) HealthCheck(ctx context.Context) error { return nil }

func (p *recordPublisher) ofType(eventType notifications.EventType) []*notifications.ReservationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*notifications.ReservationEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	service   Service
	repo      *memRepo
	slots     *memSlots
	gateway   *fakeGateway
	catalog   *fakeCatalog
	idem      *memIdem
	publisher *recordPublisher
	patientID uuid.UUID
	req       CreateReservationRequest
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:      newMemRepo(),
		slots:     newMemSlots(),
		gateway:   &fakeGateway{},
		catalog:   &fakeCatalog{fee: 50.0, available: true},
		idem:      newMemIdem(),
		publisher: &recordPublisher{},
		patientID: uuid.New(),
		req: CreateReservationRequest{
			ResourceID: uuid.NewString(),
			SlotDate:   "2026-09-15",
			TimeLabel:  "10:00",
		},
	}
	f.service = NewService(f.repo, f.slots, f.gateway, f.catalog, f.idem, f.publisher, Config{
		HoldTimeout:       15 * time.Minute,
		IdempotencyWindow: time.Hour,
		ReaperBatchSize:   100,
		Currency:          "usd",
	})
	return f
}

// createAndConfirm walks one reservation through the happy path.
func (f *fixture) createAndConfirm(t *testing.T, patientID uuid.UUID) *Reservation {
	t.Helper()
	ctx := context.Background()

	reservation, _, err := f.service.CreateReservation(ctx, patientID, f.req, "")
	require.NoError(t, err)

	_, err = f.service.CreatePaymentIntent(ctx, patientID, reservation.ID)
	require.NoError(t, err)

	confirmed, err := f.service.ConfirmPayment(ctx, patientID, reservation.ID)
	require.NoError(t, err)
	return confirmed
}

func TestCreateReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reservation, replayed, err := f.service.CreateReservation(ctx, f.patientID, f.req, "")
	require.NoError(t, err)
	assert.False(t, replayed)

	assert.Equal(t, StatusPendingPayment.String(), reservation.Status)
	assert.Equal(t, "Dr. Richard James", reservation.ResourceName)
	assert.Equal(t, 50.0, reservation.Amount)
	assert.Equal(t, "usd", reservation.Currency)
	assert.True(t, strings.HasPrefix(reservation.BookingRef, "APT-"), "booking ref %q", reservation.BookingRef)

	// A pending hold does not occupy the slot
	resourceID := uuid.MustParse(f.req.ResourceID)
	occupied, err := f.slots.Occupied(ctx, resourceID, f.req.SlotDate, f.req.TimeLabel)
	require.NoError(t, err)
	assert.False(t, occupied)

	assert.Len(t, f.publisher.ofType(notifications.EventReservationCreated), 1)
}

func TestCreateReservation_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateReservationRequest
	}{
		{"bad resource id", CreateReservationRequest{ResourceID: "not-a-uuid", SlotDate: "2026-09-15", TimeLabel: "10:00"}},
		{"bad date", CreateReservationRequest{ResourceID: uuid.NewString(), SlotDate: "15-09-2026", TimeLabel: "10:00"}},
		{"off-grid label", CreateReservationRequest{ResourceID: uuid.NewString(), SlotDate: "2026-09-15", TimeLabel: "10:15"}},
		{"before opening", CreateReservationRequest{ResourceID: uuid.NewString(), SlotDate: "2026-09-15", TimeLabel: "09:00"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.service.CreateReservation(ctx, f.patientID, tc.req, "")
			assert.Error(t, err)
		})
	}
}

func TestCreateReservation_ResourceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.catalog.available = false

	_, _, err := f.service.CreateReservation(context.Background(), f.patientID, f.req, "")
	assert.ErrorIs(t, err, ErrResourceUnavailable)
}

func TestCreateReservation_SlotAlreadyConfirmed(t *testing.T) {
	f := newFixture(t)
	f.createAndConfirm(t, uuid.New())

	_, _, err := f.service.CreateReservation(context.Background(), f.patientID, f.req, "")
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestCreateReservation_IdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, replayed, err := f.service.CreateReservation(ctx, f.patientID, f.req, "retry-123")
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := f.service.CreateReservation(ctx, f.patientID, f.req, "retry-123")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)

	// A different key opens a fresh hold
	third, replayed, err := f.service.CreateReservation(ctx, f.patientID, f.req, "retry-456")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestConfirmPayment_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reservation, _, err := f.service.CreateReservation(ctx, f.patientID, f.req, "")
	require.NoError(t, err)

	intent, err := f.service.CreatePaymentIntent(ctx, f.patientID, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), intent.Amount)
	assert.NotEmpty(t, intent.ClientSecret)

	confirmed, err := f.service.ConfirmPayment(ctx, f.patientID, reservation.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed.String(), confirmed.Status)
	assert.Equal(t, "ch_"+intent.IntentID, confirmed.PaymentRef)
	require.NotNil(t, confirmed.ConfirmedAt)

	owner, taken := f.slots.owner(reservation.ResourceID, f.req.SlotDate, f.req.TimeLabel)
	assert.True(t, taken)
	assert.Equal(t, reservation.ID, owner)

	assert.Len(t, f.publisher.ofType(notifications.EventReservationConfirmed), 1)
}

func TestConfirmPayment_NoIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reservation, _, err := f.service.CreateReservation(ctx, f.patientID, f.req, "")
	require.NoError(t, err)

	_, err = f.service.ConfirmPayment(ctx, f.patientID, reservation.ID)
	assert.ErrorIs(t, err, ErrPaymentNotInitiated)
}

func TestConfirmPayment_CaptureDeclined(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.captureFunc = func(intentID string) (*payments.CaptureResult, error) {
		return &payments.CaptureResult{Completed: false}, nil
	}

	reservation, _, err := f.service.CreateReservation(ctx, f.patientID, f.req, "")
	require.NoError(t, err)
	_, err = f.service.CreatePaymentIntent(ctx, f.patientID, reservation.ID)
	require.NoError(t, err)

	_, err = f.service.ConfirmPayment(ctx, f.patientID, reservation.ID)
	assert.ErrorIs(t, err, ErrCaptureDeclined)

	// Declined capture leaves the hold open for another attempt
	current, err := f.repo.GetByID(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingPayment.String(), current.Status)

	_, taken := f.slots.owner(reservation.ResourceID, f.req.SlotDate, f.req.TimeLabel)
	assert.False(t, taken)
}

func TestConfirmPayment_ProviderUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.captureFunc = func(intentID string) (*payments.CaptureResult, error) {
		return nil, fmt.Errorf("%w: connection refused", payments.ErrProviderUnavailable)
	}

	reservation, _, err := f.service.CreateReservation(ctx, f.patientID, f.req, "")
	require.NoError(t, err)
	_, err = f.service.CreatePaymentIntent(ctx, f.patientID, reservation.ID)
	require.NoError(t, err)

	_, err = f.service.ConfirmPayment(ctx, f.patientID, reservation.ID)
	assert.ErrorIs(t, err, payments.ErrProviderUnavailable)

	current, err := f.repo.GetByID(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingPayment.String(), current.Status)

	// Retry succeeds once the provider is back
	f.gateway.captureFunc = nil
	confirmed, err := f.service.ConfirmPayment(ctx, f.patientID, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed.String(), confirmed.Status)
}

func TestConfirmPayment_SlotLostAfterCapture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	winner := f.createAndConfirm(t, uuid.New())

	// A sibling hold on the same slot existed before the winner
	// confirmed; its capture goes through, its claim does not.
	loserPatient := uuid.New()
	loser := &Reservation{
		ID:              uuid.New(),
		PatientID:       loserPatient,
		ResourceID:      winner.ResourceID,
		SlotDate:        f.req.SlotDate,
		TimeLabel:       f.req.TimeLabel,
		Amount:          50.0,
		Currency:        "usd",
		Status:          StatusPendingPayment.String(),
		BookingRef:      "APT-20260915-LOSERA",
		PaymentIntentID: "pi_loser",
	}
	require.NoError(t, f.repo.Create(ctx, loser))

	_, err := f.service.ConfirmPayment(ctx, loserPatient, loser.ID)
	assert.ErrorIs(t, err, ErrSlotLost)

	// The beaten hold is invalidated as EXPIRED so the audit trail keeps
	// it apart from user-initiated cancellations.
	current, err := f.repo.GetByID(ctx, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired.String(), current.Status)
	assert.Equal(t, "ch_pi_loser", current.PaymentRef, "captured charge must be recorded for reconciliation")

	// Winner keeps the slot
	owner, taken := f.slots.owner(winner.ResourceID, f.req.SlotDate, f.req.TimeLabel)
	assert.True(t, taken)
	assert.Equal(t, winner.ID, owner)

	assert.Len(t, f.publisher.ofType(notifications.EventSlotLost), 1)
}

func TestConfirmPayment_DuplicateConfirmReplaysSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	confirmed := f.createAndConfirm(t, f.patientID)

	again, err := f.service.ConfirmPayment(ctx, f.patientID, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed.String(), again.Status)
	assert.Equal(t, confirmed.PaymentRef, again.PaymentRef)

	// Still exactly one claim, still ours
	owner, taken := f.slots.owner(confirmed.ResourceID, f.req.SlotDate, f.req.TimeLabel)
	assert.True(t, taken)
	assert.Equal(t, confirmed.ID, owner)
}

func TestConfirmPayment_ReaperWinsBetweenClaimAndConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reservation, _, err := f.service.CreateReservation(ctx, f.patientID, f.req, "")
	require.NoError(t, err)
	_, err = f.service.CreatePaymentIntent(ctx, f.patientID, reservation.ID)
	require.NoError(t, err)

	// Expire the row in the window between the slot claim landing and
	// the status flip.
	f.repo.beforeMarkConfirmed = func() {
		f.repo.beforeMarkConfirmed = nil
		at := time.Now().UTC()
		_, _ = f.repo.MarkClosed(ctx, reservation.ID, StatusPendingPayment, StatusExpired, at)
	}

	_, err = f.service.ConfirmPayment(ctx, f.patientID, reservation.ID)
	assert.ErrorIs(t, err, ErrSlotLost)

	// The orphaned claim must not block rebooking
	_, taken := f.slots.owner(reservation.ResourceID, f.req.SlotDate, f.req.TimeLabel)
	assert.False(t, taken)
}

func TestConcurrentConfirm_ExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const contenders = 8
	ids := make([]uuid.UUID, contenders)
	patients := make([]uuid.UUID, contenders)
	for i := 0; i < contenders; i++ {
		patients[i] = uuid.New()
		reservation, _, err := f.service.CreateReservation(ctx, patients[i], f.req, "")
		require.NoError(t, err)
		_, err = f.service.CreatePaymentIntent(ctx, patients[i], reservation.ID)
		require.NoError(t, err)
		ids[i] = reservation.ID
	}

	errs := make([]error, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.ConfirmPayment(ctx, patients[i], ids[i])
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
			current, getErr := f.repo.GetByID(ctx, ids[i])
			require.NoError(t, getErr)
			assert.Equal(t, StatusConfirmed.String(), current.Status)
		case errors.Is(err, ErrSlotLost):
			losers++
		default:
			t.Fatalf("contender %d: unexpected error %v", i, err)
		}
	}

	assert.Equal(t, 1, winners, "exactly one confirmation must win the slot")
	assert.Equal(t, contenders-1, losers)
	assert.Len(t, f.publisher.ofType(notifications.EventSlotLost), contenders-1)
}

func TestCancel_Pending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reservation, _, err := f.service.CreateReservation(ctx, f.patientID, f.req, "")
	require.NoError(t, err)

	cancelled, err := f.service.CancelReservation(ctx, f.patientID, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled.String(), cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	// Closed means closed: neither confirm nor intent creation work
	_, err = f.service.ConfirmPayment(ctx, f.patientID, reservation.ID)
	assert.ErrorIs(t, err, ErrReservationClosed)
	_, err = f.service.CreatePaymentIntent(ctx, f.patientID, reservation.ID)
	assert.ErrorIs(t, err, ErrReservationClosed)
}

func TestCancel_ConfirmedReleasesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	confirmed := f.createAndConfirm(t, f.patientID)

	_, err := f.service.CancelReservation(ctx, f.patientID, confirmed.ID)
	require.NoError(t, err)

	_, taken := f.slots.owner(confirmed.ResourceID, f.req.SlotDate, f.req.TimeLabel)
	assert.False(t, taken, "cancelling a confirmed reservation must free the slot")

	// And the freed slot is immediately rebookable
	rebooked := f.createAndConfirm(t, uuid.New())
	assert.Equal(t, StatusConfirmed.String(), rebooked.Status)
}

func TestCancel_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reservation, _, err := f.service.CreateReservation(ctx, f.patientID, f.req, "")
	require.NoError(t, err)

	_, err = f.service.CancelReservation(ctx, f.patientID, reservation.ID)
	require.NoError(t, err)

	again, err := f.service.CancelReservation(ctx, f.patientID, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled.String(), again.Status)
}

func TestCancel_ExpiredIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale, _, err := f.service.CreateReservation(ctx, f.patientID, f.req, "")
	require.NoError(t, err)

	f.repo.mu.Lock()
	f.repo.rows[stale.ID].CreatedAt = time.Now().UTC().Add(-time.Hour)
	f.repo.mu.Unlock()

	_, err = f.service.ExpireStale(ctx)
	require.NoError(t, err)

	expiredRow, err := f.repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	require.NotNil(t, expiredRow.CancelledAt)
	closedAt := *expiredRow.CancelledAt

	// Cancelling twice on an expired reservation is not an error; the
	// row stays EXPIRED and the closure timestamp stays put.
	cancelled, err := f.service.CancelReservation(ctx, f.patientID, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired.String(), cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, closedAt, *cancelled.CancelledAt)
}

func TestOwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reservation, _, err := f.service.CreateReservation(ctx, f.patientID, f.req, "")
	require.NoError(t, err)

	stranger := uuid.New()
	_, err = f.service.GetReservation(ctx, stranger, reservation.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.service.CancelReservation(ctx, stranger, reservation.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.service.ConfirmPayment(ctx, stranger, reservation.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.service.GetReservation(ctx, f.patientID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale, _, err := f.service.CreateReservation(ctx, f.patientID, f.req, "")
	require.NoError(t, err)

	// Push creation past the hold timeout
	f.repo.mu.Lock()
	f.repo.rows[stale.ID].CreatedAt = time.Now().UTC().Add(-time.Hour)
	f.repo.mu.Unlock()

	// A fresh pending hold on another slot must survive the sweep
	freshReq := f.req
	freshReq.TimeLabel = "11:00"
	fresh, _, err := f.service.CreateReservation(ctx, f.patientID, freshReq, "")
	require.NoError(t, err)

	expired, err := f.service.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	current, err := f.repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired.String(), current.Status)

	untouched, err := f.repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingPayment.String(), untouched.Status)

	// Expired reservations cannot be confirmed
	_, err = f.service.ConfirmPayment(ctx, f.patientID, stale.ID)
	assert.ErrorIs(t, err, ErrReservationClosed)

	assert.Len(t, f.publisher.ofType(notifications.EventReservationExpired), 1)
}

func TestExpireStale_SkipsConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	confirmed := f.createAndConfirm(t, f.patientID)

	f.repo.mu.Lock()
	f.repo.rows[confirmed.ID].CreatedAt = time.Now().UTC().Add(-time.Hour)
	f.repo.mu.Unlock()

	expired, err := f.service.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)

	current, err := f.repo.GetByID(ctx, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed.String(), current.Status)

	owner, taken := f.slots.owner(confirmed.ResourceID, f.req.SlotDate, f.req.TimeLabel)
	assert.True(t, taken)
	assert.Equal(t, confirmed.ID, owner)
}

func TestExpiredHold_SlotRebookable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale, _, err := f.service.CreateReservation(ctx, f.patientID, f.req, "")
	require.NoError(t, err)

	f.repo.mu.Lock()
	f.repo.rows[stale.ID].CreatedAt = time.Now().UTC().Add(-time.Hour)
	f.repo.mu.Unlock()

	_, err = f.service.ExpireStale(ctx)
	require.NoError(t, err)

	rebooked := f.createAndConfirm(t, uuid.New())
	assert.Equal(t, StatusConfirmed.String(), rebooked.Status)
}

func TestListReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	confirmed := f.createAndConfirm(t, f.patientID)

	otherReq := f.req
	otherReq.TimeLabel = "14:30"
	pending, _, err := f.service.CreateReservation(ctx, f.patientID, otherReq, "")
	require.NoError(t, err)

	all, total, err := f.service.ListReservations(ctx, f.patientID, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	onlyConfirmed, _, err := f.service.ListReservations(ctx, f.patientID, ListQuery{Status: StatusConfirmed.String()})
	require.NoError(t, err)
	require.Len(t, onlyConfirmed, 1)
	assert.Equal(t, confirmed.ID, onlyConfirmed[0].ID)

	_, _, err = f.service.ListReservations(ctx, f.patientID, ListQuery{Status: "BOGUS"})
	assert.Error(t, err)

	// Another patient sees nothing
	none, total, err := f.service.ListReservations(ctx, uuid.New(), ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, none)

	_ = pending
}
