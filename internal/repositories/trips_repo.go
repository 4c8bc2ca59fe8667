package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	intdb "parcelhop/internal/db"
	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

const tripColumns = `id, traveler_id, departure_city, departure_country, arrival_city, arrival_country,
	departure_at, available_weight, reserved_weight, price_per_kg, status, COALESCE(notes,''), created_at, updated_at`

type TripRepo struct {
	DB *sql.DB
}

var _ TripRepository = TripRepo{}

func scanTrip(s rowScanner) (models.Trip, error) {
	var (
		t      models.Trip
		status string
	)
	err := s.Scan(
		&t.ID, &t.TravelerID,
		&t.DepartureCity, &t.DepartureCountry,
		&t.ArrivalCity, &t.ArrivalCountry,
		&t.DepartureAt,
		&t.AvailableWeight, &t.ReservedWeight, &t.PricePerKg,
		&status, &t.Notes,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return t, err
	}
	t.Status, err = models.ParseTripStatus(status)
	return t, err
}

func (r TripRepo) Create(ctx context.Context, t models.Trip) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO trips (id, traveler_id, departure_city, departure_country, arrival_city, arrival_country,
			departure_at, available_weight, reserved_weight, price_per_kg, status, notes, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.TravelerID, t.DepartureCity, t.DepartureCountry, t.ArrivalCity, t.ArrivalCountry,
		t.DepartureAt, t.AvailableWeight, t.ReservedWeight, t.PricePerKg, t.Status, intdb.NullIfEmpty(t.Notes),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repositories.TripRepo.Create: %w", err)
	}
	return nil
}

func (r TripRepo) GetByID(ctx context.Context, id domain.ID) (models.Trip, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id=? LIMIT 1`, id)
	t, err := scanTrip(row)
	if err != nil {
		return models.Trip{}, notFound("trip", err)
	}
	return t, nil
}

func (r TripRepo) ListByTraveler(ctx context.Context, travelerID domain.ID, p domain.Pagination) ([]models.Trip, error) {
	return r.list(ctx, `SELECT `+tripColumns+` FROM trips WHERE traveler_id=?
		ORDER BY departure_at DESC, id LIMIT ? OFFSET ?`, travelerID, p.PageSize, p.Offset())
}

// ListCandidates filters on status, departure range and remaining weight in
// SQL. Route matching is left to the caller.
func (r TripRepo) ListCandidates(ctx context.Context, f models.TripFilter, limit int) ([]models.Trip, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	if !f.DepartureAfter.IsZero() {
		where = append(where, "departure_at>=?")
		args = append(args, f.DepartureAfter)
	}
	if !f.DepartureUntil.IsZero() {
		where = append(where, "departure_at<=?")
		args = append(args, f.DepartureUntil)
	}
	if f.MinRemaining > 0 {
		where = append(where, "available_weight-reserved_weight>=?")
		args = append(args, f.MinRemaining)
	}
	if f.After != nil {
		where = append(where, "(departure_at, price_per_kg, id) > (?,?,?)")
		args = append(args, f.After.DepartureAt, f.After.PricePerKg, f.After.ID)
	}
	args = append(args, limit)
	return r.list(ctx, `SELECT `+tripColumns+` FROM trips WHERE `+strings.Join(where, " AND ")+`
		ORDER BY departure_at ASC, price_per_kg ASC, id ASC LIMIT ?`, args...)
}

func (r TripRepo) list(ctx context.Context, query string, args ...any) ([]models.Trip, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repositories.TripRepo.list: %w", err)
	}
	defer rows.Close()

	out := []models.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("repositories.TripRepo.list: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r TripRepo) Update(ctx context.Context, id domain.ID, expected []models.TripStatus, u models.TripUpdate, now time.Time) (bool, error) {
	sets := []string{"updated_at=?"}
	args := []any{now}
	if u.Status != "" {
		sets = append(sets, "status=?")
		args = append(args, u.Status)
	}
	if u.Notes != nil {
		sets = append(sets, "notes=?")
		args = append(args, intdb.NullIfEmpty(*u.Notes))
	}
	if u.PricePerKg != nil {
		sets = append(sets, "price_per_kg=?")
		args = append(args, *u.PricePerKg)
	}
	args = append(args, id)
	query := `UPDATE trips SET ` + strings.Join(sets, ", ") + ` WHERE id=?`
	if len(expected) > 0 {
		query += ` AND status IN (` + placeholders(len(expected)) + `)`
		for _, s := range expected {
			args = append(args, s)
		}
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("repositories.TripRepo.Update: %w", err)
	}
	return intdb.AffectedOne(res)
}

func (r TripRepo) Delete(ctx context.Context, id domain.ID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM trips WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("repositories.TripRepo.Delete: %w", err)
	}
	ok, err := intdb.AffectedOne(res)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFoundError{Resource: "trip"}
	}
	return nil
}
