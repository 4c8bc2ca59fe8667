package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

type TripRepo struct{ s *Store }

func (r TripRepo) Create(_ context.Context, t models.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.trips[t.ID]; ok {
		return domain.ConflictError{Resource: "trip", Msg: "id already exists"}
	}
	r.s.trips[t.ID] = t
	return nil
}

func (r TripRepo) GetByID(_ context.Context, id domain.ID) (models.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.trips[id]
	if !ok {
		return models.Trip{}, domain.NotFoundError{Resource: "trip"}
	}
	return t, nil
}

func (r TripRepo) ListByTraveler(_ context.Context, travelerID domain.ID, p domain.Pagination) ([]models.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Trip{}
	for _, t := range r.s.trips {
		if t.TravelerID == travelerID {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b models.Trip) int {
		if c := b.DepartureAt.Compare(a.DepartureAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return page(out, p.PageSize, p.Offset()), nil
}

func (r TripRepo) ListCandidates(_ context.Context, f models.TripFilter, limit int) ([]models.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Trip{}
	for _, t := range r.s.trips {
		switch {
		case f.Status != "" && t.Status != f.Status:
		case !f.DepartureAfter.IsZero() && t.DepartureAt.Before(f.DepartureAfter):
		case !f.DepartureUntil.IsZero() && t.DepartureAt.After(f.DepartureUntil):
		case f.MinRemaining > 0 && t.Remaining() < f.MinRemaining:
		case f.After != nil && t.Cursor().Compare(*f.After) <= 0:
		default:
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b models.Trip) int {
		return a.Cursor().Compare(b.Cursor())
	})
	return page(out, limit, 0), nil
}

func (r TripRepo) Update(_ context.Context, id domain.ID, expected []models.TripStatus, u models.TripUpdate, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.trips[id]
	if !ok {
		return false, nil
	}
	if len(expected) > 0 && !slices.Contains(expected, t.Status) {
		return false, nil
	}
	u.Apply(&t)
	t.UpdatedAt = now
	r.s.trips[id] = t
	return true, nil
}

func (r TripRepo) Delete(_ context.Context, id domain.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.trips[id]; !ok {
		return domain.NotFoundError{Resource: "trip"}
	}
	delete(r.s.trips, id)
	for token, res := range r.s.reservations {
		if res.TripID == id {
			delete(r.s.reservations, token)
		}
	}
	return nil
}
