package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	intdb "parcelhop/internal/db"
	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

const packageColumns = `id, shipper_id, weight, contents, budget, origin_city, origin_country,
	destination_city, destination_country, earliest_departure, latest_departure, COALESCE(photos,''),
	status, created_at, updated_at`

type PackageRepo struct {
	DB *sql.DB
}

var _ PackageRepository = PackageRepo{}

func scanPackage(s rowScanner) (models.Package, error) {
	var (
		p              models.Package
		earliest, last sql.NullTime
		photos, status string
	)
	err := s.Scan(
		&p.ID, &p.ShipperID, &p.Weight, &p.Contents, &p.Budget,
		&p.OriginCity, &p.OriginCountry, &p.DestinationCity, &p.DestinationCountry,
		&earliest, &last, &photos,
		&status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}
	if p.Status, err = models.ParsePackageStatus(status); err != nil {
		return p, err
	}
	if earliest.Valid {
		p.EarliestDeparture = earliest.Time.UTC()
	}
	if last.Valid {
		p.LatestDeparture = last.Time.UTC()
	}
	if photos != "" {
		if err := json.Unmarshal([]byte(photos), &p.Photos); err != nil {
			return p, fmt.Errorf("decode photos: %w", err)
		}
	}
	return p, nil
}

func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func (r PackageRepo) Create(ctx context.Context, p models.Package) error {
	var photos any
	if len(p.Photos) > 0 {
		raw, err := json.Marshal(p.Photos)
		if err != nil {
			return fmt.Errorf("repositories.PackageRepo.Create: %w", err)
		}
		photos = string(raw)
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO packages (id, shipper_id, weight, contents, budget, origin_city, origin_country,
			destination_city, destination_country, earliest_departure, latest_departure, photos,
			status, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.ShipperID, p.Weight, p.Contents, p.Budget, p.OriginCity, p.OriginCountry,
		p.DestinationCity, p.DestinationCountry, nullableTime(p.EarliestDeparture), nullableTime(p.LatestDeparture), photos,
		p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repositories.PackageRepo.Create: %w", err)
	}
	return nil
}

func (r PackageRepo) GetByID(ctx context.Context, id domain.ID) (models.Package, error) {
	p, err := scanPackage(r.DB.QueryRowContext(ctx, `SELECT `+packageColumns+` FROM packages WHERE id=? LIMIT 1`, id))
	if err != nil {
		return models.Package{}, notFound("package", err)
	}
	return p, nil
}

func (r PackageRepo) ListByShipper(ctx context.Context, shipperID domain.ID, p domain.Pagination) ([]models.Package, error) {
	return r.list(ctx, `SELECT `+packageColumns+` FROM packages WHERE shipper_id=?
		ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, shipperID, p.PageSize, p.Offset())
}

// windowStart sorts open windows first, as the zero time does in memory.
const windowStart = "COALESCE(earliest_departure, '1000-01-01 00:00:00')"

var minDatetime = time.Date(1000, 1, 1, 0, 0, 0, 0, time.UTC)

func (r PackageRepo) ListCandidates(ctx context.Context, f models.PackageFilter, limit int) ([]models.Package, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	if f.MaxWeight > 0 {
		where = append(where, "weight<=?")
		args = append(args, f.MaxWeight)
	}
	if !f.Departure.IsZero() {
		where = append(where, "(earliest_departure IS NULL OR earliest_departure<=?)", "(latest_departure IS NULL OR latest_departure>=?)")
		args = append(args, f.Departure, f.Departure)
	}
	if f.After != nil {
		start := f.After.EarliestDeparture
		if start.IsZero() {
			start = minDatetime
		}
		where = append(where, "("+windowStart+">? OR ("+windowStart+"=? AND (weight<? OR (weight=? AND id>?))))")
		args = append(args, start, start, f.After.Weight, f.After.Weight, f.After.ID)
	}
	args = append(args, limit)
	return r.list(ctx, `SELECT `+packageColumns+` FROM packages WHERE `+strings.Join(where, " AND ")+`
		ORDER BY `+windowStart+` ASC, weight DESC, id ASC LIMIT ?`, args...)
}

func (r PackageRepo) list(ctx context.Context, query string, args ...any) ([]models.Package, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repositories.PackageRepo.list: %w", err)
	}
	defer rows.Close()

	out := []models.Package{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("repositories.PackageRepo.list: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r PackageRepo) UpdateStatus(ctx context.Context, id domain.ID, from, to models.PackageStatus, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE packages SET status=?, updated_at=? WHERE id=? AND status=?`, to, now, id, from)
	if err != nil {
		return false, fmt.Errorf("repositories.PackageRepo.UpdateStatus: %w", err)
	}
	return intdb.AffectedOne(res)
}
