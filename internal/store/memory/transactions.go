package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

type TransactionRepo struct{ s *Store }

func (r TransactionRepo) Create(_ context.Context, tx models.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.transactions[tx.ID]; ok {
		return domain.ConflictError{Resource: "transaction", Msg: "id already exists"}
	}
	r.s.transactions[tx.ID] = tx
	return nil
}

func (r TransactionRepo) GetByID(_ context.Context, id domain.ID) (models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	tx, ok := r.s.transactions[id]
	if !ok {
		return models.Transaction{}, domain.NotFoundError{Resource: "transaction"}
	}
	return tx, nil
}

func (r TransactionRepo) ListForUser(_ context.Context, userID domain.ID, p domain.Pagination) ([]models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Transaction{}
	for _, tx := range r.s.transactions {
		if tx.IsParty(userID) {
			out = append(out, tx)
		}
	}
	slices.SortFunc(out, func(a, b models.Transaction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return page(out, p.PageSize, p.Offset()), nil
}

func (r TransactionRepo) ListPendingBefore(_ context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Transaction{}
	for _, tx := range r.s.transactions {
		if tx.Status == models.TxPending && tx.CreatedAt.Before(cutoff) {
			out = append(out, tx)
		}
	}
	slices.SortFunc(out, func(a, b models.Transaction) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return page(out, limit, 0), nil
}

func (r TransactionRepo) CountOpenForTrip(_ context.Context, tripID, exclude domain.ID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, tx := range r.s.transactions {
		if tx.TripID == tripID && tx.ID != exclude && !tx.Status.Terminal() {
			n++
		}
	}
	return n, nil
}

func (r TransactionRepo) Update(_ context.Context, id domain.ID, from models.TxStatus, u models.TransactionUpdate, now time.Time) (bool, error) {
	if err := u.Validate(from); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.transactions[id]
	if !ok || tx.Status != from {
		return false, nil
	}
	u.Apply(&tx)
	tx.UpdatedAt = now
	r.s.transactions[id] = tx
	return true, nil
}
