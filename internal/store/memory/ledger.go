package memory

import (
	"context"
	"fmt"
	"time"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

// ReservationRepo mirrors the conditional update of the MySQL store: the
// capacity check and the counter change happen under one write lock.
type ReservationRepo struct{ s *Store }

func (r ReservationRepo) Reserve(_ context.Context, res models.Reservation, now time.Time) (models.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	trip, ok := r.s.trips[res.TripID]
	if !ok {
		return models.Trip{}, domain.NotFoundError{Resource: "trip"}
	}
	if trip.Status != models.TripActive && trip.Status != models.TripFull || trip.Departed(now) {
		return models.Trip{}, domain.ConflictError{Resource: "trip", Msg: "trip is not accepting reservations", Err: domain.ErrTripUnavailable}
	}
	if trip.Status == models.TripFull || trip.Remaining() < res.Weight {
		return models.Trip{}, domain.ConflictError{
			Resource: "trip",
			Msg:      fmt.Sprintf("requested %d g, remaining %d g", res.Weight, trip.Remaining()),
			Err:      domain.ErrInsufficientCapacity,
		}
	}

	trip.ReservedWeight += res.Weight
	if trip.Remaining() == 0 {
		trip.Status = models.TripFull
	}
	trip.UpdatedAt = now
	r.s.trips[trip.ID] = trip

	res.State = models.ReservationActive
	res.CreatedAt, res.UpdatedAt = now, now
	r.s.reservations[res.Token] = res
	return trip, nil
}

func (r ReservationRepo) Release(_ context.Context, token domain.ID, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	res, ok := r.s.reservations[token]
	if !ok {
		return false, domain.NotFoundError{Resource: "reservation"}
	}
	if res.State != models.ReservationActive {
		return false, nil
	}
	res.State = models.ReservationReleased
	res.UpdatedAt = now
	r.s.reservations[token] = res

	if trip, ok := r.s.trips[res.TripID]; ok {
		trip.ReservedWeight = max(trip.ReservedWeight-res.Weight, 0)
		if trip.Status == models.TripFull && !trip.Departed(now) {
			trip.Status = models.TripActive
		}
		trip.UpdatedAt = now
		r.s.trips[trip.ID] = trip
	}
	return true, nil
}

func (r ReservationRepo) Consume(_ context.Context, token domain.ID, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	res, ok := r.s.reservations[token]
	if !ok {
		return false, domain.NotFoundError{Resource: "reservation"}
	}
	if res.State != models.ReservationActive {
		return false, nil
	}
	res.State = models.ReservationConsumed
	res.UpdatedAt = now
	r.s.reservations[token] = res
	return true, nil
}

func (r ReservationRepo) Get(_ context.Context, token domain.ID) (models.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	res, ok := r.s.reservations[token]
	if !ok {
		return models.Reservation{}, domain.NotFoundError{Resource: "reservation"}
	}
	return res, nil
}

func (r ReservationRepo) CountActiveForTrip(_ context.Context, tripID domain.ID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, res := range r.s.reservations {
		if res.TripID == tripID && res.State == models.ReservationActive {
			n++
		}
	}
	return n, nil
}
