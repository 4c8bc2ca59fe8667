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

// DeliveryCodeRepo stores the fingerprint twice: live_fingerprint carries the
// unique index and is cleared on consume, so only live codes must be unique.
type DeliveryCodeRepo struct {
	DB *sql.DB
}

var _ DeliveryCodeRepository = DeliveryCodeRepo{}

func (r DeliveryCodeRepo) Create(ctx context.Context, c models.DeliveryCode) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO delivery_codes (transaction_id, code_hash, fingerprint, live_fingerprint, attempts, created_at)
		VALUES (?,?,?,?,0,?)`,
		c.TransactionID, c.Hash, c.Fingerprint, c.Fingerprint, c.CreatedAt,
	)
	if intdb.IsDuplicateKey(err) {
		if strings.Contains(err.Error(), "live_fingerprint") {
			return ErrFingerprintTaken
		}
		return domain.ConflictError{Resource: "delivery code", Msg: "code already issued for transaction"}
	}
	if err != nil {
		return fmt.Errorf("repositories.DeliveryCodeRepo.Create: %w", err)
	}
	return nil
}

func (r DeliveryCodeRepo) Get(ctx context.Context, txID domain.ID) (models.DeliveryCode, error) {
	var (
		c        models.DeliveryCode
		consumed sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT transaction_id, code_hash, fingerprint, attempts, consumed_at, created_at
		FROM delivery_codes WHERE transaction_id=? LIMIT 1`, txID).
		Scan(&c.TransactionID, &c.Hash, &c.Fingerprint, &c.Attempts, &consumed, &c.CreatedAt)
	if err != nil {
		return models.DeliveryCode{}, notFound("delivery code", err)
	}
	c.ConsumedAt = intdb.TimePtr(consumed)
	return c, nil
}

func (r DeliveryCodeRepo) IncrementAttempts(ctx context.Context, txID domain.ID) (int, error) {
	if _, err := r.DB.ExecContext(ctx, `UPDATE delivery_codes SET attempts=attempts+1
		WHERE transaction_id=? AND consumed_at IS NULL`, txID); err != nil {
		return 0, fmt.Errorf("repositories.DeliveryCodeRepo.IncrementAttempts: %w", err)
	}
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT attempts FROM delivery_codes WHERE transaction_id=?`, txID).Scan(&n); err != nil {
		return 0, notFound("delivery code", err)
	}
	return n, nil
}

func (r DeliveryCodeRepo) Consume(ctx context.Context, txID domain.ID, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE delivery_codes SET consumed_at=?, live_fingerprint=NULL
		WHERE transaction_id=? AND consumed_at IS NULL`, now, txID)
	if err != nil {
		return false, fmt.Errorf("repositories.DeliveryCodeRepo.Consume: %w", err)
	}
	return intdb.AffectedOne(res)
}
