package models

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"parcelhop/internal/domain"
)

type TripStatus string

const (
	TripActive    TripStatus = "ACTIVE"
	TripFull      TripStatus = "FULL"
	TripCompleted TripStatus = "COMPLETED"
	TripCancelled TripStatus = "CANCELLED"
)

func ParseTripStatus(s string) (TripStatus, error) {
	switch st := TripStatus(s); st {
	case TripActive, TripFull, TripCompleted, TripCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown trip status %q", s)
}

// Trip is a traveler's offered luggage capacity on one route and date.
// ReservedWeight is owned by the capacity ledger: it counts active and
// consumed reservations, never released ones.
type Trip struct {
	ID               domain.ID  `json:"id"`
	TravelerID       domain.ID  `json:"traveler_id"`
	DepartureCity    string     `json:"departure_city"`
	DepartureCountry string     `json:"departure_country"`
	ArrivalCity      string     `json:"arrival_city"`
	ArrivalCountry   string     `json:"arrival_country"`
	DepartureAt      time.Time  `json:"departure_at"`
	AvailableWeight  Grams      `json:"available_weight_g"`
	ReservedWeight   Grams      `json:"reserved_weight_g"`
	PricePerKg       Cents      `json:"price_per_kg_cents"`
	Status           TripStatus `json:"status"`
	Notes            string     `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Remaining returns the weight still open for reservation.
func (t Trip) Remaining() Grams {
	if r := t.AvailableWeight - t.ReservedWeight; r > 0 {
		return r
	}
	return 0
}

// Departed reports whether the departure time has passed at now.
func (t Trip) Departed(now time.Time) bool {
	return !t.DepartureAt.After(now)
}

// TripFilter narrows candidate trips for matching. Zero values do not filter.
type TripFilter struct {
	Status         TripStatus
	DepartureAfter time.Time
	DepartureUntil time.Time
	MinRemaining   Grams
	// After keeps only trips sorting strictly after this key.
	After *TripCursor
}

// TripCursor is a trip's position in candidate order: departure, then price
// per kg, then id.
type TripCursor struct {
	DepartureAt time.Time
	PricePerKg  Cents
	ID          domain.ID
}

func (t Trip) Cursor() TripCursor {
	return TripCursor{DepartureAt: t.DepartureAt, PricePerKg: t.PricePerKg, ID: t.ID}
}

func (c TripCursor) Compare(o TripCursor) int {
	if r := c.DepartureAt.Compare(o.DepartureAt); r != 0 {
		return r
	}
	if r := cmp.Compare(c.PricePerKg, o.PricePerKg); r != 0 {
		return r
	}
	return strings.Compare(c.ID.String(), o.ID.String())
}

// TripUpdate lists the fields the owner may change after publishing. Weight
// and reserved capacity are not here: only the capacity ledger moves them.
type TripUpdate struct {
	Status     TripStatus
	Notes      *string
	PricePerKg *Cents
}

// Apply copies the set fields onto t.
func (u TripUpdate) Apply(t *Trip) {
	if u.Status != "" {
		t.Status = u.Status
	}
	if u.Notes != nil {
		t.Notes = *u.Notes
	}
	if u.PricePerKg != nil {
		t.PricePerKg = *u.PricePerKg
	}
}
