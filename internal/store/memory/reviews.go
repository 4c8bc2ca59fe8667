package memory

import (
	"cmp"
	"context"
	"slices"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

type ReviewRepo struct{ s *Store }

func (r ReviewRepo) Create(_ context.Context, rv models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := reviewKey{tx: rv.TransactionID, reviewer: rv.ReviewerID}
	if _, ok := r.s.reviewIndex[key]; ok {
		return domain.ConflictError{Resource: "review", Msg: "already reviewed this transaction", Err: domain.ErrDuplicateReview}
	}
	r.s.reviews[rv.ID] = rv
	r.s.reviewIndex[key] = rv.ID
	return nil
}

func (r ReviewRepo) ListForUser(_ context.Context, reviewedID domain.ID, p domain.Pagination) ([]models.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Review{}
	for _, rv := range r.s.reviews {
		if rv.ReviewedID == reviewedID {
			out = append(out, rv)
		}
	}
	slices.SortFunc(out, func(a, b models.Review) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return page(out, p.PageSize, p.Offset()), nil
}

func (r ReviewRepo) Stats(_ context.Context, reviewedID domain.ID) (int64, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var (
		sum   int64
		count int
	)
	for _, rv := range r.s.reviews {
		if rv.ReviewedID == reviewedID {
			sum += int64(rv.Ratings.Overall)
			count++
		}
	}
	return sum, count, nil
}
