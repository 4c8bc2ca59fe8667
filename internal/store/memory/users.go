package memory

import (
	"context"
	"time"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

type UserRepo struct{ s *Store }

func (r UserRepo) GetByID(_ context.Context, id domain.ID) (models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return models.User{}, domain.NotFoundError{Resource: "user"}
	}
	return u, nil
}

func (r UserRepo) Upsert(_ context.Context, u models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if prev, ok := r.s.users[u.ID]; ok {
		u.Rating, u.ReviewsCount, u.CreatedAt = prev.Rating, prev.ReviewsCount, prev.CreatedAt
	} else {
		u.Rating, u.ReviewsCount = 0, 0
	}
	r.s.users[u.ID] = u
	return nil
}

func (r UserRepo) UpdateRating(_ context.Context, id domain.ID, rating float64, count int, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.NotFoundError{Resource: "user"}
	}
	u.Rating, u.ReviewsCount, u.UpdatedAt = rating, count, now
	r.s.users[id] = u
	return nil
}
