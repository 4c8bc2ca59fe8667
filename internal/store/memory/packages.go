package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

type PackageRepo struct{ s *Store }

func clonePackage(p models.Package) models.Package {
	p.Photos = slices.Clone(p.Photos)
	return p
}

func (r PackageRepo) Create(_ context.Context, p models.Package) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.packages[p.ID]; ok {
		return domain.ConflictError{Resource: "package", Msg: "id already exists"}
	}
	r.s.packages[p.ID] = clonePackage(p)
	return nil
}

func (r PackageRepo) GetByID(_ context.Context, id domain.ID) (models.Package, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.packages[id]
	if !ok {
		return models.Package{}, domain.NotFoundError{Resource: "package"}
	}
	return clonePackage(p), nil
}

func (r PackageRepo) ListByShipper(_ context.Context, shipperID domain.ID, pg domain.Pagination) ([]models.Package, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Package{}
	for _, p := range r.s.packages {
		if p.ShipperID == shipperID {
			out = append(out, clonePackage(p))
		}
	}
	slices.SortFunc(out, func(a, b models.Package) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return page(out, pg.PageSize, pg.Offset()), nil
}

func (r PackageRepo) ListCandidates(_ context.Context, f models.PackageFilter, limit int) ([]models.Package, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Package{}
	for _, p := range r.s.packages {
		switch {
		case f.Status != "" && p.Status != f.Status:
		case f.MaxWeight > 0 && p.Weight > f.MaxWeight:
		case !f.Departure.IsZero() && !p.AcceptsDeparture(f.Departure):
		case f.After != nil && p.Cursor().Compare(*f.After) <= 0:
		default:
			out = append(out, clonePackage(p))
		}
	}
	slices.SortFunc(out, func(a, b models.Package) int {
		return a.Cursor().Compare(b.Cursor())
	})
	return page(out, limit, 0), nil
}

func (r PackageRepo) UpdateStatus(_ context.Context, id domain.ID, from, to models.PackageStatus, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.packages[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = now
	r.s.packages[id] = p
	return true, nil
}
