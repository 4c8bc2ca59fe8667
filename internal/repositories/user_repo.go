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

type UserRepo struct {
	DB *sql.DB
}

var _ UserRepository = UserRepo{}

func (r UserRepo) GetByID(ctx context.Context, id domain.ID) (models.User, error) {
	var u models.User
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(email,''), kyc_verified, rating, reviews_count, created_at, updated_at
		FROM users WHERE id=? LIMIT 1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.KYCVerified, &u.Rating, &u.ReviewsCount, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, notFound("user", err)
	}
	return u, nil
}

// Upsert writes the profile fields. Rating columns are left alone on update.
func (r UserRepo) Upsert(ctx context.Context, u models.User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, name, email, kyc_verified, rating, reviews_count, created_at, updated_at)
		VALUES (?,?,?,?,0,0,?,?)
		ON DUPLICATE KEY UPDATE name=VALUES(name), email=VALUES(email),
			kyc_verified=VALUES(kyc_verified), updated_at=VALUES(updated_at)`,
		u.ID, u.Name, intdb.NullIfEmpty(u.Email), u.KYCVerified, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repositories.UserRepo.Upsert: %w", err)
	}
	return nil
}

func (r UserRepo) UpdateRating(ctx context.Context, id domain.ID, rating float64, count int, now time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET rating=?, reviews_count=?, updated_at=? WHERE id=?`,
		rating, count, now, id)
	if err != nil {
		return fmt.Errorf("repositories.UserRepo.UpdateRating: %w", err)
	}
	ok, err := intdb.AffectedOne(res)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFoundError{Resource: "user"}
	}
	return nil
}
