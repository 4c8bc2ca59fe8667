package models

import (
	"time"

	"parcelhop/internal/domain"
)

type ReservationState string

const (
	ReservationActive   ReservationState = "ACTIVE"
	ReservationReleased ReservationState = "RELEASED"
	ReservationConsumed ReservationState = "CONSUMED"
)

// Reservation is a claim on part of a trip's capacity. The token is handed to
// the transaction that owns it and is the only handle for release/consume.
type Reservation struct {
	Token     domain.ID        `json:"token"`
	TripID    domain.ID        `json:"trip_id"`
	Weight    Grams            `json:"weight_g"`
	State     ReservationState `json:"state"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
