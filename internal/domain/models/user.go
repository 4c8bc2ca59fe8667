package models

import (
	"time"

	"parcelhop/internal/domain"
)

// User is the aggregate identity of a shipper or traveler. Rating and
// ReviewsCount are written by the reputation aggregator only.
type User struct {
	ID           domain.ID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	KYCVerified  bool      `json:"kyc_verified"`
	Rating       float64   `json:"rating"`
	ReviewsCount int       `json:"reviews_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DeliveryCode is the at-rest form of a transaction's one-time code. The
// plaintext is never stored.
type DeliveryCode struct {
	TransactionID domain.ID  `json:"transaction_id"`
	Hash          string     `json:"-"`
	Fingerprint   string     `json:"-"`
	Attempts      int        `json:"attempts"`
	ConsumedAt    *time.Time `json:"consumed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
