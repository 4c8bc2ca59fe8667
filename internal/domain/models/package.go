package models

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"parcelhop/internal/domain"
)

type PackageStatus string

const (
	PackagePublished PackageStatus = "PUBLISHED"
	PackageReserved  PackageStatus = "RESERVED"
	PackageInTransit PackageStatus = "IN_TRANSIT"
	PackageDelivered PackageStatus = "DELIVERED"
	PackageCancelled PackageStatus = "CANCELLED"
)

func ParsePackageStatus(s string) (PackageStatus, error) {
	switch st := PackageStatus(s); st {
	case PackagePublished, PackageReserved, PackageInTransit, PackageDelivered, PackageCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown package status %q", s)
}

// Package is a shipper's transport request. The departure window is the range
// of trip departure dates the shipper accepts.
type Package struct {
	ID                 domain.ID     `json:"id"`
	ShipperID          domain.ID     `json:"shipper_id"`
	Weight             Grams         `json:"weight_g"`
	Contents           string        `json:"contents"`
	Budget             Cents         `json:"budget_cents"`
	OriginCity         string        `json:"origin_city"`
	OriginCountry      string        `json:"origin_country"`
	DestinationCity    string        `json:"destination_city"`
	DestinationCountry string        `json:"destination_country"`
	EarliestDeparture  time.Time     `json:"earliest_departure"`
	LatestDeparture    time.Time     `json:"latest_departure"`
	Photos             []string      `json:"photos,omitempty"`
	Status             PackageStatus `json:"status"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// AcceptsDeparture reports whether a trip leaving at t falls in the package window.
// A zero bound is open.
func (p Package) AcceptsDeparture(t time.Time) bool {
	if !p.EarliestDeparture.IsZero() && t.Before(p.EarliestDeparture) {
		return false
	}
	if !p.LatestDeparture.IsZero() && t.After(p.LatestDeparture) {
		return false
	}
	return true
}

// PackageFilter narrows candidate packages for the reverse match.
type PackageFilter struct {
	Status    PackageStatus
	MaxWeight Grams
	// Departure keeps packages whose window contains this instant.
	Departure time.Time
	After     *PackageCursor
}

// PackageCursor is a package's position in candidate order: window start
// (open windows first), heaviest first, then id.
type PackageCursor struct {
	EarliestDeparture time.Time
	Weight            Grams
	ID                domain.ID
}

func (p Package) Cursor() PackageCursor {
	return PackageCursor{EarliestDeparture: p.EarliestDeparture, Weight: p.Weight, ID: p.ID}
}

func (c PackageCursor) Compare(o PackageCursor) int {
	if r := c.EarliestDeparture.Compare(o.EarliestDeparture); r != 0 {
		return r
	}
	if r := cmp.Compare(o.Weight, c.Weight); r != 0 {
		return r
	}
	return strings.Compare(c.ID.String(), o.ID.String())
}
