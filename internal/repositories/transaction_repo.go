package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	intdb "parcelhop/internal/db"
	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

const transactionColumns = `id, package_id, trip_id, shipper_id, traveler_id,
	agreed_price, fee_rate, platform_fee, traveler_payout, reservation_token,
	COALESCE(processor_ref,''), COALESCE(transfer_ref,''), COALESCE(pickup_photo_ref,''), COALESCE(delivery_photo_ref,''),
	COALESCE(dispute_reason,''), disputed_by, status, created_at, updated_at,
	paid_at, picked_up_at, in_transit_at, delivered_at, completed_at, cancelled_at, disputed_at`

// openTxStatuses are the statuses that still hold trip capacity or funds.
var openTxStatuses = []any{models.TxPending, models.TxPaid, models.TxPickedUp, models.TxInTransit, models.TxDelivered}

type TransactionRepo struct {
	DB *sql.DB
}

var _ TransactionRepository = TransactionRepo{}

func scanTransaction(s rowScanner) (models.Transaction, error) {
	var (
		tx                               models.Transaction
		disputedBy                       uuid.NullUUID
		paid, picked, transit, delivered sql.NullTime
		completed, cancelled, disputedAt sql.NullTime
		status                           string
	)
	err := s.Scan(
		&tx.ID, &tx.PackageID, &tx.TripID, &tx.ShipperID, &tx.TravelerID,
		&tx.AgreedPrice, &tx.FeeRate, &tx.PlatformFee, &tx.TravelerPayout, &tx.ReservationToken,
		&tx.ProcessorRef, &tx.TransferRef, &tx.PickupPhotoRef, &tx.DeliveryPhotoRef,
		&tx.DisputeReason, &disputedBy, &status, &tx.CreatedAt, &tx.UpdatedAt,
		&paid, &picked, &transit, &delivered, &completed, &cancelled, &disputedAt,
	)
	if err != nil {
		return tx, err
	}
	if tx.Status, err = models.ParseTxStatus(status); err != nil {
		return tx, err
	}
	if disputedBy.Valid {
		tx.DisputedBy = disputedBy.UUID
	}
	tx.PaidAt = intdb.TimePtr(paid)
	tx.PickedUpAt = intdb.TimePtr(picked)
	tx.InTransitAt = intdb.TimePtr(transit)
	tx.DeliveredAt = intdb.TimePtr(delivered)
	tx.CompletedAt = intdb.TimePtr(completed)
	tx.CancelledAt = intdb.TimePtr(cancelled)
	tx.DisputedAt = intdb.TimePtr(disputedAt)
	return tx, nil
}

func (r TransactionRepo) Create(ctx context.Context, tx models.Transaction) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO transactions (id, package_id, trip_id, shipper_id, traveler_id,
			agreed_price, fee_rate, platform_fee, traveler_payout, reservation_token,
			status, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		tx.ID, tx.PackageID, tx.TripID, tx.ShipperID, tx.TravelerID,
		tx.AgreedPrice, tx.FeeRate, tx.PlatformFee, tx.TravelerPayout, tx.ReservationToken,
		tx.Status, tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repositories.TransactionRepo.Create: %w", err)
	}
	return nil
}

func (r TransactionRepo) GetByID(ctx context.Context, id domain.ID) (models.Transaction, error) {
	tx, err := scanTransaction(r.DB.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id=? LIMIT 1`, id))
	if err != nil {
		return models.Transaction{}, notFound("transaction", err)
	}
	return tx, nil
}

func (r TransactionRepo) ListForUser(ctx context.Context, userID domain.ID, p domain.Pagination) ([]models.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE shipper_id=? OR traveler_id=?
		ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, userID, userID, p.PageSize, p.Offset())
}

func (r TransactionRepo) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE status=? AND created_at<?
		ORDER BY created_at ASC LIMIT ?`, models.TxPending, cutoff, limit)
}

func (r TransactionRepo) list(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repositories.TransactionRepo.list: %w", err)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("repositories.TransactionRepo.list: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r TransactionRepo) CountOpenForTrip(ctx context.Context, tripID, exclude domain.ID) (int, error) {
	args := append([]any{tripID, exclude}, openTxStatuses...)
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions
		WHERE trip_id=? AND id<>? AND status IN (`+placeholders(len(openTxStatuses))+`)`, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("repositories.TransactionRepo.CountOpenForTrip: %w", err)
	}
	return n, nil
}

// Update writes only the fields set in u, guarded by the expected status.
func (r TransactionRepo) Update(ctx context.Context, id domain.ID, from models.TxStatus, u models.TransactionUpdate, now time.Time) (bool, error) {
	if err := u.Validate(from); err != nil {
		return false, err
	}
	sets := []string{"updated_at=?"}
	args := []any{now}
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if u.Status != "" {
		add("status", u.Status)
	}
	for _, f := range []struct {
		col string
		v   *string
	}{
		{"processor_ref", u.ProcessorRef},
		{"transfer_ref", u.TransferRef},
		{"pickup_photo_ref", u.PickupPhotoRef},
		{"delivery_photo_ref", u.DeliveryPhotoRef},
		{"dispute_reason", u.DisputeReason},
	} {
		if f.v != nil {
			add(f.col, intdb.NullIfEmpty(*f.v))
		}
	}
	if u.DisputedBy != nil {
		add("disputed_by", *u.DisputedBy)
	}
	for _, f := range []struct {
		col string
		v   *time.Time
	}{
		{"paid_at", u.PaidAt},
		{"picked_up_at", u.PickedUpAt},
		{"in_transit_at", u.InTransitAt},
		{"delivered_at", u.DeliveredAt},
		{"completed_at", u.CompletedAt},
		{"cancelled_at", u.CancelledAt},
		{"disputed_at", u.DisputedAt},
	} {
		if f.v != nil {
			add(f.col, intdb.NullTime(f.v))
		}
	}
	args = append(args, id, from)

	res, err := r.DB.ExecContext(ctx, `UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE id=? AND status=?`, args...)
	if err != nil {
		return false, fmt.Errorf("repositories.TransactionRepo.Update: %w", err)
	}
	return intdb.AffectedOne(res)
}
