package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/repositories"
	"parcelhop/internal/utils"
)

// TripService manages the traveler side of the marketplace. Capacity counters
// are never touched here; they belong to the ledger.
type TripService struct {
	Trips        repositories.TripRepository
	Transactions repositories.TransactionRepository
	Ledger       *CapacityLedger
	Now          func() time.Time
}

type TripInput struct {
	DepartureCity    string
	DepartureCountry string
	ArrivalCity      string
	ArrivalCountry   string
	DepartureAt      time.Time
	AvailableWeight  models.Grams
	PricePerKg       models.Cents
	Notes            string
}

func (in TripInput) validate(now time.Time) error {
	switch {
	case utils.NormalizeSpace(in.DepartureCity) == "":
		return domain.ValidationError{Field: "departure_city", Msg: "required"}
	case utils.NormalizeSpace(in.ArrivalCity) == "":
		return domain.ValidationError{Field: "arrival_city", Msg: "required"}
	case utils.CityMatches(in.DepartureCity, in.ArrivalCity) && strings.EqualFold(in.DepartureCountry, in.ArrivalCountry):
		return domain.ValidationError{Field: "arrival_city", Msg: "must differ from the departure city"}
	case in.AvailableWeight <= 0:
		return domain.ValidationError{Field: "available_weight", Msg: "must be positive"}
	case in.PricePerKg < 0:
		return domain.ValidationError{Field: "price_per_kg", Msg: "must not be negative"}
	case !in.DepartureAt.After(now):
		return domain.ValidationError{Field: "departure_at", Msg: "must be in the future"}
	}
	return nil
}

func (s *TripService) Create(ctx context.Context, rc domain.RequestContext, in TripInput) (models.Trip, error) {
	now := nowOr(s.Now)
	if err := in.validate(now); err != nil {
		return models.Trip{}, err
	}
	t := models.Trip{
		ID:               uuid.New(),
		TravelerID:       rc.UserID,
		DepartureCity:    utils.NormalizeSpace(in.DepartureCity),
		DepartureCountry: strings.ToUpper(strings.TrimSpace(in.DepartureCountry)),
		ArrivalCity:      utils.NormalizeSpace(in.ArrivalCity),
		ArrivalCountry:   strings.ToUpper(strings.TrimSpace(in.ArrivalCountry)),
		DepartureAt:      in.DepartureAt.UTC(),
		AvailableWeight:  in.AvailableWeight,
		PricePerKg:       in.PricePerKg,
		Status:           models.TripActive,
		Notes:            strings.TrimSpace(in.Notes),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Trips.Create(ctx, t); err != nil {
		return models.Trip{}, err
	}
	utils.LogEvent(ctx, "trip", "create", "trip published",
		"trip_id", t.ID.String(), "traveler_id", t.TravelerID.String(), "available_g", int64(t.AvailableWeight))
	return t, nil
}

func (s *TripService) Get(ctx context.Context, id domain.ID) (models.Trip, error) {
	return s.Trips.GetByID(ctx, id)
}

func (s *TripService) ListByTraveler(ctx context.Context, travelerID domain.ID, p domain.Pagination) ([]models.Trip, error) {
	return s.Trips.ListByTraveler(ctx, travelerID, p)
}

// Update changes price or notes of a trip that is still open for booking.
// Agreed transaction prices are not affected.
func (s *TripService) Update(ctx context.Context, rc domain.RequestContext, id domain.ID, u models.TripUpdate) (models.Trip, error) {
	if u.Status != "" {
		return models.Trip{}, domain.ValidationError{Field: "status", Msg: "use the cancel operation"}
	}
	if u.PricePerKg != nil && *u.PricePerKg < 0 {
		return models.Trip{}, domain.ValidationError{Field: "price_per_kg", Msg: "must not be negative"}
	}
	t, err := s.owned(ctx, rc, id)
	if err != nil {
		return models.Trip{}, err
	}
	if u.Notes != nil {
		notes := strings.TrimSpace(*u.Notes)
		u.Notes = &notes
	}
	ok, err := s.Trips.Update(ctx, id, []models.TripStatus{models.TripActive, models.TripFull}, u, nowOr(s.Now))
	if err != nil {
		return models.Trip{}, err
	}
	if !ok {
		return models.Trip{}, domain.InvalidState("trip", string(t.Status), "update")
	}
	return s.Trips.GetByID(ctx, id)
}

// Cancel withdraws the trip. Trips with open transactions or reservations
// still holding weight cannot be cancelled.
func (s *TripService) Cancel(ctx context.Context, rc domain.RequestContext, id domain.ID) (models.Trip, error) {
	t, err := s.owned(ctx, rc, id)
	if err != nil {
		return models.Trip{}, err
	}
	unlock := s.Ledger.Lock(id)
	defer unlock()

	if err := s.requireNoOpen(ctx, id, "cancel"); err != nil {
		return models.Trip{}, err
	}
	ok, err := s.Trips.Update(ctx, id, []models.TripStatus{models.TripActive, models.TripFull},
		models.TripUpdate{Status: models.TripCancelled}, nowOr(s.Now))
	if err != nil {
		return models.Trip{}, err
	}
	if !ok {
		return models.Trip{}, domain.InvalidState("trip", string(t.Status), "cancel")
	}
	utils.LogEvent(ctx, "trip", "cancel", "trip cancelled", "trip_id", id.String())
	t.Status = models.TripCancelled
	return t, nil
}

func (s *TripService) Delete(ctx context.Context, rc domain.RequestContext, id domain.ID) error {
	if _, err := s.owned(ctx, rc, id); err != nil {
		return err
	}
	unlock := s.Ledger.Lock(id)
	defer unlock()

	if err := s.requireNoOpen(ctx, id, "delete"); err != nil {
		return err
	}
	if err := s.Trips.Delete(ctx, id); err != nil {
		return err
	}
	utils.LogEvent(ctx, "trip", "delete", "trip deleted", "trip_id", id.String())
	return nil
}

func (s *TripService) owned(ctx context.Context, rc domain.RequestContext, id domain.ID) (models.Trip, error) {
	t, err := s.Trips.GetByID(ctx, id)
	if err != nil {
		return models.Trip{}, err
	}
	if !rc.Privileged() && t.TravelerID != rc.UserID {
		return models.Trip{}, domain.ForbiddenError{Msg: "trip belongs to another traveler"}
	}
	return t, nil
}

func (s *TripService) requireNoOpen(ctx context.Context, id domain.ID, action string) error {
	open, err := s.Transactions.CountOpenForTrip(ctx, id, uuid.Nil)
	if err != nil {
		return err
	}
	if open > 0 {
		return domain.ConflictError{Resource: "trip", Msg: "cannot " + action + " a trip with open transactions", Err: domain.ErrInvalidState}
	}
	// A reservation precedes its transaction row, so a match in flight shows
	// up here before it is counted above.
	held, err := s.Ledger.ActiveReservations(ctx, id)
	if err != nil {
		return err
	}
	if held > 0 {
		return domain.ConflictError{Resource: "trip", Msg: "cannot " + action + " a trip with reserved capacity", Err: domain.ErrInvalidState}
	}
	return nil
}
