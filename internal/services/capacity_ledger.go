package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/repositories"
	"parcelhop/internal/utils"
)

// CapacityLedger is the only writer of a trip's reserved weight. Calls for the
// same trip are serialized in-process; the repository's conditional update
// protects against other processes.
type CapacityLedger struct {
	Reservations repositories.ReservationRepository
	Trips        repositories.TripRepository
	Now          func() time.Time

	locks utils.KeyedMutex[domain.ID]
}

func NewCapacityLedger(reservations repositories.ReservationRepository, trips repositories.TripRepository) *CapacityLedger {
	return &CapacityLedger{Reservations: reservations, Trips: trips}
}

// Lock holds the trip's ledger lock so callers changing trip status (cancel,
// delete) cannot interleave with a reservation.
func (l *CapacityLedger) Lock(tripID domain.ID) func() {
	return l.locks.Lock(tripID)
}

// Reserve claims weight on the trip. It fails without side effects when the
// weight does not fit.
func (l *CapacityLedger) Reserve(ctx context.Context, tripID domain.ID, weight models.Grams) (models.Reservation, error) {
	if weight <= 0 {
		return models.Reservation{}, domain.ValidationError{Field: "weight", Msg: "must be positive"}
	}
	unlock := l.locks.Lock(tripID)
	defer unlock()

	now := nowOr(l.Now)
	res := models.Reservation{Token: uuid.New(), TripID: tripID, Weight: weight, State: models.ReservationActive, CreatedAt: now, UpdatedAt: now}
	trip, err := l.Reservations.Reserve(ctx, res, now)
	if err != nil {
		return models.Reservation{}, fmt.Errorf("ledger.Reserve: %w", err)
	}
	utils.LogEvent(ctx, "ledger", "reserve", "capacity reserved",
		"trip_id", tripID.String(), "weight_g", int64(weight), "remaining_g", int64(trip.Remaining()), "trip_status", string(trip.Status))
	return res, nil
}

// Release returns the reservation's weight to the trip. Releasing a token that
// was already released or consumed is a no-op.
func (l *CapacityLedger) Release(ctx context.Context, token domain.ID) error {
	res, err := l.Reservations.Get(ctx, token)
	if err != nil {
		return fmt.Errorf("ledger.Release: %w", err)
	}
	if res.State != models.ReservationActive {
		return nil
	}
	unlock := l.locks.Lock(res.TripID)
	defer unlock()

	released, err := l.Reservations.Release(ctx, token, nowOr(l.Now))
	if err != nil {
		return fmt.Errorf("ledger.Release: %w", err)
	}
	if released {
		utils.LogEvent(ctx, "ledger", "release", "capacity released", "trip_id", res.TripID.String(), "weight_g", int64(res.Weight))
	}
	return nil
}

// Consume makes the reservation permanent. Capacity stays taken.
func (l *CapacityLedger) Consume(ctx context.Context, token domain.ID) error {
	res, err := l.Reservations.Get(ctx, token)
	if err != nil {
		return fmt.Errorf("ledger.Consume: %w", err)
	}
	if res.State != models.ReservationActive {
		return nil
	}
	unlock := l.locks.Lock(res.TripID)
	defer unlock()

	if _, err := l.Reservations.Consume(ctx, token, nowOr(l.Now)); err != nil {
		return fmt.Errorf("ledger.Consume: %w", err)
	}
	return nil
}

// Held reports whether the reservation still holds its weight.
func (l *CapacityLedger) Held(ctx context.Context, token domain.ID) (bool, error) {
	res, err := l.Reservations.Get(ctx, token)
	if err != nil {
		return false, fmt.Errorf("ledger.Held: %w", err)
	}
	return res.State == models.ReservationActive, nil
}

// ActiveReservations counts reservations still holding weight on the trip.
// Callers that change trip status read it under Lock.
func (l *CapacityLedger) ActiveReservations(ctx context.Context, tripID domain.ID) (int, error) {
	n, err := l.Reservations.CountActiveForTrip(ctx, tripID)
	if err != nil {
		return 0, fmt.Errorf("ledger.ActiveReservations: %w", err)
	}
	return n, nil
}

// Remaining is valid at query time only.
func (l *CapacityLedger) Remaining(ctx context.Context, tripID domain.ID) (models.Grams, error) {
	trip, err := l.Trips.GetByID(ctx, tripID)
	if err != nil {
		return 0, err
	}
	return trip.Remaining(), nil
}
