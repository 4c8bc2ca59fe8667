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

const maxPackagePhotos = 10

type PackageService struct {
	Packages repositories.PackageRepository
	Now      func() time.Time
}

type PackageInput struct {
	Weight             models.Grams
	Contents           string
	Budget             models.Cents
	OriginCity         string
	OriginCountry      string
	DestinationCity    string
	DestinationCountry string
	EarliestDeparture  time.Time
	LatestDeparture    time.Time
	Photos             []string
}

// normalize validates the input. A date-only latest bound covers the whole day.
func (in *PackageInput) normalize() error {
	in.OriginCity = utils.NormalizeSpace(in.OriginCity)
	in.DestinationCity = utils.NormalizeSpace(in.DestinationCity)
	in.Contents = strings.TrimSpace(in.Contents)
	if !in.LatestDeparture.IsZero() && utils.IsDateOnly(in.LatestDeparture) {
		in.LatestDeparture = utils.EndOfDay(in.LatestDeparture)
	}
	switch {
	case in.Weight <= 0:
		return domain.ValidationError{Field: "weight", Msg: "must be positive"}
	case in.Budget < 0:
		return domain.ValidationError{Field: "budget", Msg: "must not be negative"}
	case in.Contents == "":
		return domain.ValidationError{Field: "contents", Msg: "required"}
	case in.OriginCity == "":
		return domain.ValidationError{Field: "origin_city", Msg: "required"}
	case in.DestinationCity == "":
		return domain.ValidationError{Field: "destination_city", Msg: "required"}
	case len(in.Photos) > maxPackagePhotos:
		return domain.ValidationError{Field: "photos", Msg: "too many photos"}
	case !in.EarliestDeparture.IsZero() && !in.LatestDeparture.IsZero() && in.LatestDeparture.Before(in.EarliestDeparture):
		return domain.ValidationError{Field: "latest_departure", Msg: "must not be before earliest_departure"}
	}
	return nil
}

func (s *PackageService) Create(ctx context.Context, rc domain.RequestContext, in PackageInput) (models.Package, error) {
	if err := in.normalize(); err != nil {
		return models.Package{}, err
	}
	now := nowOr(s.Now)
	p := models.Package{
		ID:                 uuid.New(),
		ShipperID:          rc.UserID,
		Weight:             in.Weight,
		Contents:           in.Contents,
		Budget:             in.Budget,
		OriginCity:         in.OriginCity,
		OriginCountry:      strings.ToUpper(strings.TrimSpace(in.OriginCountry)),
		DestinationCity:    in.DestinationCity,
		DestinationCountry: strings.ToUpper(strings.TrimSpace(in.DestinationCountry)),
		EarliestDeparture:  in.EarliestDeparture.UTC(),
		LatestDeparture:    in.LatestDeparture.UTC(),
		Photos:             in.Photos,
		Status:             models.PackagePublished,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.Packages.Create(ctx, p); err != nil {
		return models.Package{}, err
	}
	utils.LogEvent(ctx, "package", "create", "package published",
		"package_id", p.ID.String(), "shipper_id", p.ShipperID.String(), "weight_g", int64(p.Weight))
	return p, nil
}

func (s *PackageService) Get(ctx context.Context, id domain.ID) (models.Package, error) {
	return s.Packages.GetByID(ctx, id)
}

func (s *PackageService) ListByShipper(ctx context.Context, shipperID domain.ID, p domain.Pagination) ([]models.Package, error) {
	return s.Packages.ListByShipper(ctx, shipperID, p)
}

// Cancel withdraws a package that is not bound to a transaction.
func (s *PackageService) Cancel(ctx context.Context, rc domain.RequestContext, id domain.ID) (models.Package, error) {
	p, err := s.Packages.GetByID(ctx, id)
	if err != nil {
		return models.Package{}, err
	}
	if !rc.Privileged() && p.ShipperID != rc.UserID {
		return models.Package{}, domain.ForbiddenError{Msg: "package belongs to another shipper"}
	}
	ok, err := s.Packages.UpdateStatus(ctx, id, models.PackagePublished, models.PackageCancelled, nowOr(s.Now))
	if err != nil {
		return models.Package{}, err
	}
	if !ok {
		return models.Package{}, domain.InvalidState("package", string(p.Status), "cancel")
	}
	p.Status = models.PackageCancelled
	return p, nil
}
