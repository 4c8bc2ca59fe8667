package services

import (
	"context"
	"iter"
	"strings"
	"time"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/repositories"
	"parcelhop/internal/utils"
)

const defaultMatchPageSize = 50

// MatchingService pairs packages with trips. Results are lazy sequences that
// page through storage on demand; ranging twice queries again, so capacity is
// as fresh as the last page read. Pages continue from the last row's sort key,
// so rows leaving the filter mid-scan do not shift later pages.
type MatchingService struct {
	Trips    repositories.TripRepository
	Packages repositories.PackageRepository
	Ledger   *CapacityLedger
	Escrow   *EscrowService
	PageSize int
	Now      func() time.Time
}

func (m *MatchingService) pageSize() int {
	if m.PageSize <= 0 {
		return defaultMatchPageSize
	}
	return m.PageSize
}

// FindTripsForPackage yields ACTIVE trips on the package route that depart
// inside its window and still have room, soonest first then cheapest.
func (m *MatchingService) FindTripsForPackage(ctx context.Context, pkg models.Package) iter.Seq2[models.Trip, error] {
	return func(yield func(models.Trip, error) bool) {
		now := nowOr(m.Now)
		f := models.TripFilter{
			Status:         models.TripActive,
			DepartureAfter: now,
			DepartureUntil: pkg.LatestDeparture,
			MinRemaining:   pkg.Weight,
		}
		if pkg.EarliestDeparture.After(now) {
			f.DepartureAfter = pkg.EarliestDeparture
		}
		size := m.pageSize()
		for {
			trips, err := m.Trips.ListCandidates(ctx, f, size)
			if err != nil {
				yield(models.Trip{}, err)
				return
			}
			for _, t := range trips {
				if !routeCompatible(pkg, t) || t.Remaining() < pkg.Weight {
					continue
				}
				if !yield(t, nil) {
					return
				}
			}
			if len(trips) < size {
				return
			}
			last := trips[len(trips)-1].Cursor()
			f.After = &last
		}
	}
}

// FindPackagesForTrip is the reverse query: PUBLISHED packages on the trip
// route whose window contains its departure and that fit what is left.
func (m *MatchingService) FindPackagesForTrip(ctx context.Context, trip models.Trip) iter.Seq2[models.Package, error] {
	return func(yield func(models.Package, error) bool) {
		remaining := trip.Remaining()
		if remaining <= 0 || trip.Status != models.TripActive {
			return
		}
		f := models.PackageFilter{Status: models.PackagePublished, MaxWeight: remaining, Departure: trip.DepartureAt}
		size := m.pageSize()
		for {
			pkgs, err := m.Packages.ListCandidates(ctx, f, size)
			if err != nil {
				yield(models.Package{}, err)
				return
			}
			for _, p := range pkgs {
				if p.ShipperID == trip.TravelerID || !routeCompatible(p, trip) {
					continue
				}
				if !yield(p, nil) {
					return
				}
			}
			if len(pkgs) < size {
				return
			}
			last := pkgs[len(pkgs)-1].Cursor()
			f.After = &last
		}
	}
}

// SuggestedPrice is only a default; the agreed price is negotiated by the parties.
func (m *MatchingService) SuggestedPrice(pkg models.Package, trip models.Trip) models.Cents {
	return models.Cents(utils.SuggestedPrice(int64(trip.PricePerKg), int64(pkg.Weight)))
}

// ProposeMatch validates the pairing and opens the escrow transaction.
func (m *MatchingService) ProposeMatch(ctx context.Context, rc domain.RequestContext, packageID, tripID domain.ID, price models.Cents) (CreateResult, error) {
	if price < 0 {
		return CreateResult{}, domain.ValidationError{Field: "proposed_price", Msg: "must not be negative"}
	}
	pkg, err := m.Packages.GetByID(ctx, packageID)
	if err != nil {
		return CreateResult{}, err
	}
	trip, err := m.Trips.GetByID(ctx, tripID)
	if err != nil {
		return CreateResult{}, err
	}
	if !routeCompatible(pkg, trip) {
		return CreateResult{}, domain.ValidationError{Field: "trip_id", Msg: "trip does not serve the package route"}
	}
	if !pkg.AcceptsDeparture(trip.DepartureAt) {
		return CreateResult{}, domain.ValidationError{Field: "trip_id", Msg: "trip departs outside the package window"}
	}
	remaining, err := m.Ledger.Remaining(ctx, trip.ID)
	if err != nil {
		return CreateResult{}, err
	}
	if pkg.Weight > remaining {
		return CreateResult{}, domain.ConflictError{Resource: "trip", Msg: "package does not fit the remaining capacity", Err: domain.ErrInsufficientCapacity}
	}
	utils.LogEvent(ctx, "matching", "propose", "match proposed",
		"package_id", pkg.ID.String(), "trip_id", trip.ID.String(), "proposed_price", int64(price),
		"suggested_price", int64(m.SuggestedPrice(pkg, trip)))
	return m.Escrow.Create(ctx, rc, pkg.ID, trip.ID, price)
}

// routeCompatible compares cities loosely and countries exactly when both are known.
func routeCompatible(p models.Package, t models.Trip) bool {
	if !utils.CityMatches(p.OriginCity, t.DepartureCity) || !utils.CityMatches(p.DestinationCity, t.ArrivalCity) {
		return false
	}
	return sameCountry(p.OriginCountry, t.DepartureCountry) && sameCountry(p.DestinationCountry, t.ArrivalCountry)
}

func sameCountry(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a == "" || b == "" || strings.EqualFold(a, b)
}
