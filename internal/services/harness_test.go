package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/payments"
	"parcelhop/internal/repositories"
	"parcelhop/internal/store/memory"
)

type sentNotification struct {
	UserID  domain.ID
	Kind    string
	Message string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, userID domain.ID, kind, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{userID, kind, message})
	return nil
}

func (n *recordingNotifier) byKind(kind string) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// stalledCreate parks Transactions.Create until resume is closed.
type stalledCreate struct {
	repositories.TransactionRepository
	entered chan struct{}
	resume  chan struct{}
}

func (r stalledCreate) Create(ctx context.Context, tx models.Transaction) error {
	close(r.entered)
	<-r.resume
	return r.TransactionRepository.Create(ctx, tx)
}

var errStorageDown = errors.New("storage unavailable")

// flakyReservations fails the next N releases or consumes.
type flakyReservations struct {
	repositories.ReservationRepository
	releaseFailures *atomic.Int32
	consumeFailures *atomic.Int32
}

func newFlakyReservations(inner repositories.ReservationRepository, releases, consumes int32) flakyReservations {
	f := flakyReservations{ReservationRepository: inner, releaseFailures: &atomic.Int32{}, consumeFailures: &atomic.Int32{}}
	f.releaseFailures.Store(releases)
	f.consumeFailures.Store(consumes)
	return f
}

func (f flakyReservations) Release(ctx context.Context, token domain.ID, now time.Time) (bool, error) {
	if f.releaseFailures.Add(-1) >= 0 {
		return false, errStorageDown
	}
	return f.ReservationRepository.Release(ctx, token, now)
}

func (f flakyReservations) Consume(ctx context.Context, token domain.ID, now time.Time) (bool, error) {
	if f.consumeFailures.Add(-1) >= 0 {
		return false, errStorageDown
	}
	return f.ReservationRepository.Consume(ctx, token, now)
}

type harness struct {
	repos      memory.Repositories
	ledger     *CapacityLedger
	verifier   *DeliveryVerifier
	escrow     *EscrowService
	matching   *MatchingService
	reputation *ReputationService
	trips      *TripService
	packages   *PackageService
	docs       DocsService
	provider   *payments.Sandbox
	notifier   *recordingNotifier

	now      time.Time
	shipper  domain.RequestContext
	traveler domain.RequestContext
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repos:    memory.New().Repositories(),
		provider: payments.NewSandbox(),
		notifier: &recordingNotifier{},
		now:      time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		shipper:  domain.RequestContext{UserID: uuid.New(), Role: domain.RoleUser},
		traveler: domain.RequestContext{UserID: uuid.New(), Role: domain.RoleUser},
	}
	clock := func() time.Time { return h.now }

	h.ledger = NewCapacityLedger(h.repos.Reservations, h.repos.Trips)
	h.ledger.Now = clock
	h.verifier = NewDeliveryVerifier(h.repos.DeliveryCodes, "test-secret", 5)
	h.verifier.Now = clock
	h.verifier.HashCost = bcrypt.MinCost
	h.escrow = &EscrowService{
		Transactions: h.repos.Transactions,
		Packages:     h.repos.Packages,
		Trips:        h.repos.Trips,
		Ledger:       h.ledger,
		Verifier:     h.verifier,
		KYC:          UserKYC{Users: h.repos.Users},
		Provider:     h.provider,
		Notifier:     h.notifier,
		FeeRate:      0.12,
		Now:          clock,
	}
	h.matching = &MatchingService{Trips: h.repos.Trips, Packages: h.repos.Packages, Ledger: h.ledger, Escrow: h.escrow, Now: clock}
	h.reputation = &ReputationService{Reviews: h.repos.Reviews, Users: h.repos.Users, Transactions: h.repos.Transactions, Now: clock}
	h.trips = &TripService{Trips: h.repos.Trips, Transactions: h.repos.Transactions, Ledger: h.ledger, Now: clock}
	h.packages = &PackageService{Packages: h.repos.Packages, Now: clock}
	h.docs = DocsService{Transactions: h.repos.Transactions, Packages: h.repos.Packages, Trips: h.repos.Trips, Users: h.repos.Users, Now: clock}

	h.addUser(t, h.shipper.UserID, "Sam Shipper", true)
	h.addUser(t, h.traveler.UserID, "Tia Traveler", true)
	return h
}

func (h *harness) addUser(t *testing.T, id domain.ID, name string, kyc bool) {
	t.Helper()
	err := h.repos.Users.Upsert(context.Background(), models.User{ID: id, Name: name, KYCVerified: kyc, CreatedAt: h.now, UpdatedAt: h.now})
	require.NoError(t, err)
}

func (h *harness) trip(t *testing.T, kg float64) models.Trip {
	t.Helper()
	trip, err := h.trips.Create(context.Background(), h.traveler, TripInput{
		DepartureCity:    "Paris",
		DepartureCountry: "FR",
		ArrivalCity:      "Casablanca",
		ArrivalCountry:   "MA",
		DepartureAt:      h.now.Add(72 * time.Hour),
		AvailableWeight:  models.GramsFromKg(kg),
		PricePerKg:       800,
	})
	require.NoError(t, err)
	return trip
}

func (h *harness) pkg(t *testing.T, kg float64) models.Package {
	t.Helper()
	p, err := h.packages.Create(context.Background(), h.shipper, PackageInput{
		Weight:             models.GramsFromKg(kg),
		Contents:           "books",
		Budget:             10000,
		OriginCity:         "paris",
		OriginCountry:      "fr",
		DestinationCity:    "Casablanca",
		DestinationCountry: "MA",
		EarliestDeparture:  h.now,
		LatestDeparture:    h.now.Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return p
}

// paid opens a transaction for an 8 kg package at 64.00 and confirms payment.
func (h *harness) paid(t *testing.T, trip models.Trip) (models.Transaction, string) {
	t.Helper()
	ctx := context.Background()
	res, err := h.escrow.Create(ctx, h.shipper, h.pkg(t, 8).ID, trip.ID, 6400)
	require.NoError(t, err)
	tx, err := h.escrow.InitiatePayment(ctx, h.shipper, res.Transaction.ID)
	require.NoError(t, err)
	tx, err = h.escrow.ConfirmPayment(ctx, domain.SystemContext(), tx.ID, tx.ProcessorRef)
	require.NoError(t, err)
	return tx, res.DeliveryCode
}

func (h *harness) delivered(t *testing.T, trip models.Trip) models.Transaction {
	t.Helper()
	ctx := context.Background()
	tx, code := h.paid(t, trip)
	_, err := h.escrow.MarkPickedUp(ctx, h.traveler, tx.ID, "photos/pickup.jpg")
	require.NoError(t, err)
	tx, err = h.escrow.MarkDelivered(ctx, h.traveler, tx.ID, code, "photos/delivery.jpg")
	require.NoError(t, err)
	return tx
}

func (h *harness) completed(t *testing.T, trip models.Trip) models.Transaction {
	t.Helper()
	tx := h.delivered(t, trip)
	tx, err := h.escrow.Complete(context.Background(), h.shipper, tx.ID)
	require.NoError(t, err)
	return tx
}

func wrongCode(code string) string {
	first := '1'
	if code[0] == '1' {
		first = '2'
	}
	return string(first) + code[1:]
}
