package repositories

import (
	"context"
	"database/sql"
	"fmt"

	intdb "parcelhop/internal/db"
	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

type ReviewRepo struct {
	DB *sql.DB
}

var _ ReviewRepository = ReviewRepo{}

// Create relies on the (transaction_id, reviewer_id) unique key.
func (r ReviewRepo) Create(ctx context.Context, rv models.Review) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO reviews (id, transaction_id, reviewer_id, reviewed_id,
			overall, communication, punctuality, care, comment, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rv.ID, rv.TransactionID, rv.ReviewerID, rv.ReviewedID,
		rv.Ratings.Overall, rv.Ratings.Communication, rv.Ratings.Punctuality, rv.Ratings.Care,
		intdb.NullIfEmpty(rv.Comment), rv.CreatedAt,
	)
	if intdb.IsDuplicateKey(err) {
		return domain.ConflictError{Resource: "review", Msg: "already reviewed this transaction", Err: domain.ErrDuplicateReview}
	}
	if err != nil {
		return fmt.Errorf("repositories.ReviewRepo.Create: %w", err)
	}
	return nil
}

func (r ReviewRepo) ListForUser(ctx context.Context, reviewedID domain.ID, p domain.Pagination) ([]models.Review, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, transaction_id, reviewer_id, reviewed_id,
			overall, communication, punctuality, care, COALESCE(comment,''), created_at
		FROM reviews WHERE reviewed_id=?
		ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, reviewedID, p.PageSize, p.Offset())
	if err != nil {
		return nil, fmt.Errorf("repositories.ReviewRepo.ListForUser: %w", err)
	}
	defer rows.Close()

	out := []models.Review{}
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.TransactionID, &rv.ReviewerID, &rv.ReviewedID,
			&rv.Ratings.Overall, &rv.Ratings.Communication, &rv.Ratings.Punctuality, &rv.Ratings.Care,
			&rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("repositories.ReviewRepo.ListForUser: %w", err)
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r ReviewRepo) Stats(ctx context.Context, reviewedID domain.ID) (int64, int, error) {
	var (
		sum   int64
		count int
	)
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(overall),0), COUNT(*) FROM reviews WHERE reviewed_id=?`, reviewedID).
		Scan(&sum, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("repositories.ReviewRepo.Stats: %w", err)
	}
	return sum, count, nil
}
