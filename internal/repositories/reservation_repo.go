package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intdb "parcelhop/internal/db"
	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

// ReservationRepo keeps trips.reserved_weight and the reservations table in
// step inside one SQL transaction. The trip counter update is a conditional
// write, so concurrent processes sharing the database cannot overbook.
type ReservationRepo struct {
	DB *sql.DB
}

var _ ReservationRepository = ReservationRepo{}

func (r ReservationRepo) Reserve(ctx context.Context, res models.Reservation, now time.Time) (models.Trip, error) {
	var trip models.Trip
	err := intdb.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE trips
			SET status = CASE WHEN available_weight - reserved_weight - ? <= 0 THEN 'FULL' ELSE status END,
			    reserved_weight = reserved_weight + ?,
			    updated_at = ?
			WHERE id=? AND status='ACTIVE' AND departure_at>? AND available_weight - reserved_weight >= ?`,
			res.Weight, res.Weight, now, res.TripID, now, res.Weight,
		)
		if err != nil {
			return err
		}
		ok, err := intdb.AffectedOne(result)
		if err != nil {
			return err
		}
		if !ok {
			return r.rejection(ctx, tx, res, now)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reservations (token, trip_id, weight, state, created_at, updated_at)
			VALUES (?,?,?,?,?,?)`,
			res.Token, res.TripID, res.Weight, models.ReservationActive, now, now,
		); err != nil {
			return err
		}

		trip, err = scanTrip(tx.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id=?`, res.TripID))
		return err
	})
	if err != nil {
		if domain.IsConflict(err) || domain.IsNotFound(err) {
			return models.Trip{}, err
		}
		return models.Trip{}, fmt.Errorf("repositories.ReservationRepo.Reserve: %w", err)
	}
	return trip, nil
}

// rejection explains why the conditional update matched no row.
func (r ReservationRepo) rejection(ctx context.Context, tx *sql.Tx, res models.Reservation, now time.Time) error {
	trip, err := scanTrip(tx.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id=?`, res.TripID))
	if err != nil {
		return notFound("trip", err)
	}
	if trip.Status != models.TripActive && trip.Status != models.TripFull || trip.Departed(now) {
		return domain.ConflictError{Resource: "trip", Msg: "trip is not accepting reservations", Err: domain.ErrTripUnavailable}
	}
	return domain.ConflictError{
		Resource: "trip",
		Msg:      fmt.Sprintf("requested %d g, remaining %d g", res.Weight, trip.Remaining()),
		Err:      domain.ErrInsufficientCapacity,
	}
}

func (r ReservationRepo) Release(ctx context.Context, token domain.ID, now time.Time) (bool, error) {
	released := false
	err := intdb.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := r.lockActive(ctx, tx, token)
		if err != nil || res == nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE reservations SET state=?, updated_at=? WHERE token=?`,
			models.ReservationReleased, now, token); err != nil {
			return err
		}
		// A FULL trip reopens unless it already left; CANCELLED and COMPLETED stay put.
		if _, err := tx.ExecContext(ctx, `
			UPDATE trips
			SET status = CASE WHEN status='FULL' AND departure_at>? THEN 'ACTIVE' ELSE status END,
			    reserved_weight = GREATEST(reserved_weight - ?, 0),
			    updated_at = ?
			WHERE id=?`,
			now, res.Weight, now, res.TripID,
		); err != nil {
			return err
		}
		released = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("repositories.ReservationRepo.Release: %w", err)
	}
	return released, nil
}

func (r ReservationRepo) Consume(ctx context.Context, token domain.ID, now time.Time) (bool, error) {
	result, err := r.DB.ExecContext(ctx, `UPDATE reservations SET state=?, updated_at=? WHERE token=? AND state=?`,
		models.ReservationConsumed, now, token, models.ReservationActive)
	if err != nil {
		return false, fmt.Errorf("repositories.ReservationRepo.Consume: %w", err)
	}
	return intdb.AffectedOne(result)
}

func (r ReservationRepo) Get(ctx context.Context, token domain.ID) (models.Reservation, error) {
	var res models.Reservation
	err := r.DB.QueryRowContext(ctx, `SELECT token, trip_id, weight, state, created_at, updated_at
		FROM reservations WHERE token=? LIMIT 1`, token).
		Scan(&res.Token, &res.TripID, &res.Weight, &res.State, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return models.Reservation{}, notFound("reservation", err)
	}
	return res, nil
}

func (r ReservationRepo) CountActiveForTrip(ctx context.Context, tripID domain.ID) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE trip_id=? AND state=?`,
		tripID, models.ReservationActive).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("repositories.ReservationRepo.CountActiveForTrip: %w", err)
	}
	return n, nil
}

// lockActive loads the reservation FOR UPDATE; nil when it is not ACTIVE.
func (r ReservationRepo) lockActive(ctx context.Context, tx *sql.Tx, token domain.ID) (*models.Reservation, error) {
	var res models.Reservation
	err := tx.QueryRowContext(ctx, `SELECT token, trip_id, weight, state FROM reservations WHERE token=? FOR UPDATE`, token).
		Scan(&res.Token, &res.TripID, &res.Weight, &res.State)
	if err != nil {
		return nil, notFound("reservation", err)
	}
	if res.State != models.ReservationActive {
		return nil, nil
	}
	return &res, nil
}
