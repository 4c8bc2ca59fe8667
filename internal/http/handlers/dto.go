package handlers

import (
	"time"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

// Wire formats use kilograms and decimal amounts; the core works in grams and cents.

type tripResponse struct {
	ID               domain.ID         `json:"id"`
	TravelerID       domain.ID         `json:"traveler_id"`
	DepartureCity    string            `json:"departure_city"`
	DepartureCountry string            `json:"departure_country,omitempty"`
	ArrivalCity      string            `json:"arrival_city"`
	ArrivalCountry   string            `json:"arrival_country,omitempty"`
	DepartureAt      time.Time         `json:"departure_at"`
	AvailableKg      float64           `json:"available_weight_kg"`
	ReservedKg       float64           `json:"reserved_weight_kg"`
	RemainingKg      float64           `json:"remaining_weight_kg"`
	PricePerKg       float64           `json:"price_per_kg"`
	Status           models.TripStatus `json:"status"`
	Notes            string            `json:"notes,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func toTrip(t models.Trip) tripResponse {
	return tripResponse{
		ID:               t.ID,
		TravelerID:       t.TravelerID,
		DepartureCity:    t.DepartureCity,
		DepartureCountry: t.DepartureCountry,
		ArrivalCity:      t.ArrivalCity,
		ArrivalCountry:   t.ArrivalCountry,
		DepartureAt:      t.DepartureAt,
		AvailableKg:      t.AvailableWeight.Kg(),
		ReservedKg:       t.ReservedWeight.Kg(),
		RemainingKg:      t.Remaining().Kg(),
		PricePerKg:       t.PricePerKg.Amount(),
		Status:           t.Status,
		Notes:            t.Notes,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

type packageResponse struct {
	ID                 domain.ID            `json:"id"`
	ShipperID          domain.ID            `json:"shipper_id"`
	WeightKg           float64              `json:"weight_kg"`
	Contents           string               `json:"contents"`
	Budget             float64              `json:"budget"`
	OriginCity         string               `json:"origin_city"`
	OriginCountry      string               `json:"origin_country,omitempty"`
	DestinationCity    string               `json:"destination_city"`
	DestinationCountry string               `json:"destination_country,omitempty"`
	EarliestDeparture  *time.Time           `json:"earliest_departure,omitempty"`
	LatestDeparture    *time.Time           `json:"latest_departure,omitempty"`
	Photos             []string             `json:"photos,omitempty"`
	Status             models.PackageStatus `json:"status"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

func toPackage(p models.Package) packageResponse {
	return packageResponse{
		ID:                 p.ID,
		ShipperID:          p.ShipperID,
		WeightKg:           p.Weight.Kg(),
		Contents:           p.Contents,
		Budget:             p.Budget.Amount(),
		OriginCity:         p.OriginCity,
		OriginCountry:      p.OriginCountry,
		DestinationCity:    p.DestinationCity,
		DestinationCountry: p.DestinationCountry,
		EarliestDeparture:  optionalTime(p.EarliestDeparture),
		LatestDeparture:    optionalTime(p.LatestDeparture),
		Photos:             p.Photos,
		Status:             p.Status,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

type transactionResponse struct {
	ID               domain.ID       `json:"id"`
	PackageID        domain.ID       `json:"package_id"`
	TripID           domain.ID       `json:"trip_id"`
	ShipperID        domain.ID       `json:"shipper_id"`
	TravelerID       domain.ID       `json:"traveler_id"`
	AgreedPrice      float64         `json:"agreed_price"`
	FeeRate          float64         `json:"fee_rate"`
	PlatformFee      float64         `json:"platform_fee"`
	TravelerPayout   float64         `json:"traveler_payout"`
	ProcessorRef     string          `json:"processor_ref,omitempty"`
	TransferRef      string          `json:"transfer_ref,omitempty"`
	PickupPhotoRef   string          `json:"pickup_photo_ref,omitempty"`
	DeliveryPhotoRef string          `json:"delivery_photo_ref,omitempty"`
	DisputeReason    string          `json:"dispute_reason,omitempty"`
	DisputedBy       *domain.ID      `json:"disputed_by,omitempty"`
	Status           models.TxStatus `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	PickedUpAt       *time.Time      `json:"picked_up_at,omitempty"`
	InTransitAt      *time.Time      `json:"in_transit_at,omitempty"`
	DeliveredAt      *time.Time      `json:"delivered_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	DisputedAt       *time.Time      `json:"disputed_at,omitempty"`
}

func toTransaction(tx models.Transaction) transactionResponse {
	out := transactionResponse{
		ID:               tx.ID,
		PackageID:        tx.PackageID,
		TripID:           tx.TripID,
		ShipperID:        tx.ShipperID,
		TravelerID:       tx.TravelerID,
		AgreedPrice:      tx.AgreedPrice.Amount(),
		FeeRate:          tx.FeeRate,
		PlatformFee:      tx.PlatformFee.Amount(),
		TravelerPayout:   tx.TravelerPayout.Amount(),
		ProcessorRef:     tx.ProcessorRef,
		TransferRef:      tx.TransferRef,
		PickupPhotoRef:   tx.PickupPhotoRef,
		DeliveryPhotoRef: tx.DeliveryPhotoRef,
		DisputeReason:    tx.DisputeReason,
		Status:           tx.Status,
		CreatedAt:        tx.CreatedAt,
		UpdatedAt:        tx.UpdatedAt,
		PaidAt:           tx.PaidAt,
		PickedUpAt:       tx.PickedUpAt,
		InTransitAt:      tx.InTransitAt,
		DeliveredAt:      tx.DeliveredAt,
		CompletedAt:      tx.CompletedAt,
		CancelledAt:      tx.CancelledAt,
		DisputedAt:       tx.DisputedAt,
	}
	if tx.DisputedBy != (domain.ID{}) {
		by := tx.DisputedBy
		out.DisputedBy = &by
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
