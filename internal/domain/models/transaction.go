package models

import (
	"fmt"
	"time"

	"parcelhop/internal/domain"
)

// TxStatus is the escrow lifecycle state of a transaction.
type TxStatus string

const (
	TxPending   TxStatus = "PENDING"
	TxPaid      TxStatus = "PAID"
	TxPickedUp  TxStatus = "PICKED_UP"
	TxInTransit TxStatus = "IN_TRANSIT"
	TxDelivered TxStatus = "DELIVERED"
	TxCompleted TxStatus = "COMPLETED"
	TxCancelled TxStatus = "CANCELLED"
	TxDisputed  TxStatus = "DISPUTED"
)

// txTransitions is the only place allowed moves are defined.
var txTransitions = map[TxStatus][]TxStatus{
	TxPending:   {TxPaid, TxCancelled, TxDisputed},
	TxPaid:      {TxPickedUp, TxDisputed},
	TxPickedUp:  {TxInTransit, TxDelivered, TxDisputed},
	TxInTransit: {TxDelivered, TxDisputed},
	TxDelivered: {TxCompleted, TxDisputed},
}

func ParseTxStatus(s string) (TxStatus, error) {
	switch st := TxStatus(s); st {
	case TxPending, TxPaid, TxPickedUp, TxInTransit, TxDelivered, TxCompleted, TxCancelled, TxDisputed:
		return st, nil
	}
	return "", fmt.Errorf("unknown transaction status %q", s)
}

// Terminal reports whether no further transition is possible.
func (s TxStatus) Terminal() bool {
	return s == TxCompleted || s == TxCancelled || s == TxDisputed
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s TxStatus) CanTransitionTo(next TxStatus) bool {
	for _, allowed := range txTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transaction is the escrow contract binding one package to one trip.
// FeeRate, PlatformFee and TravelerPayout are fixed at creation.
type Transaction struct {
	ID               domain.ID  `json:"id"`
	PackageID        domain.ID  `json:"package_id"`
	TripID           domain.ID  `json:"trip_id"`
	ShipperID        domain.ID  `json:"shipper_id"`
	TravelerID       domain.ID  `json:"traveler_id"`
	AgreedPrice      Cents      `json:"agreed_price_cents"`
	FeeRate          float64    `json:"fee_rate"`
	PlatformFee      Cents      `json:"platform_fee_cents"`
	TravelerPayout   Cents      `json:"traveler_payout_cents"`
	ReservationToken domain.ID  `json:"-"`
	ProcessorRef     string     `json:"processor_ref,omitempty"`
	TransferRef      string     `json:"transfer_ref,omitempty"`
	PickupPhotoRef   string     `json:"pickup_photo_ref,omitempty"`
	DeliveryPhotoRef string     `json:"delivery_photo_ref,omitempty"`
	DisputeReason    string     `json:"dispute_reason,omitempty"`
	DisputedBy       domain.ID  `json:"disputed_by,omitempty"`
	Status           TxStatus   `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	PickedUpAt       *time.Time `json:"picked_up_at,omitempty"`
	InTransitAt      *time.Time `json:"in_transit_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	DisputedAt       *time.Time `json:"disputed_at,omitempty"`
}

// IsParty reports whether userID is the shipper or the traveler.
func (t Transaction) IsParty(userID domain.ID) bool {
	return userID == t.ShipperID || userID == t.TravelerID
}

// Counterparty returns the other party of the transaction.
func (t Transaction) Counterparty(userID domain.ID) (domain.ID, bool) {
	switch userID {
	case t.ShipperID:
		return t.TravelerID, true
	case t.TravelerID:
		return t.ShipperID, true
	}
	return domain.ID{}, false
}

// TransactionUpdate lists every field a lifecycle step may change. Nil pointers
// and an empty Status leave the stored value untouched.
type TransactionUpdate struct {
	Status           TxStatus
	ProcessorRef     *string
	TransferRef      *string
	PickupPhotoRef   *string
	DeliveryPhotoRef *string
	DisputeReason    *string
	DisputedBy       *domain.ID
	PaidAt           *time.Time
	PickedUpAt       *time.Time
	InTransitAt      *time.Time
	DeliveredAt      *time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time
	DisputedAt       *time.Time
}

// Validate rejects an update whose target status is not reachable from 'from'.
func (u TransactionUpdate) Validate(from TxStatus) error {
	if u.Status == "" || u.Status == from {
		return nil
	}
	if !from.CanTransitionTo(u.Status) {
		return fmt.Errorf("transition %s -> %s: %w", from, u.Status, domain.ErrInvalidState)
	}
	return nil
}

// Apply copies the set fields onto tx.
func (u TransactionUpdate) Apply(tx *Transaction) {
	if u.Status != "" {
		tx.Status = u.Status
	}
	setString(&tx.ProcessorRef, u.ProcessorRef)
	setString(&tx.TransferRef, u.TransferRef)
	setString(&tx.PickupPhotoRef, u.PickupPhotoRef)
	setString(&tx.DeliveryPhotoRef, u.DeliveryPhotoRef)
	setString(&tx.DisputeReason, u.DisputeReason)
	if u.DisputedBy != nil {
		tx.DisputedBy = *u.DisputedBy
	}
	setTime(&tx.PaidAt, u.PaidAt)
	setTime(&tx.PickedUpAt, u.PickedUpAt)
	setTime(&tx.InTransitAt, u.InTransitAt)
	setTime(&tx.DeliveredAt, u.DeliveredAt)
	setTime(&tx.CompletedAt, u.CompletedAt)
	setTime(&tx.CancelledAt, u.CancelledAt)
	setTime(&tx.DisputedAt, u.DisputedAt)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setTime(dst **time.Time, v *time.Time) {
	if v != nil {
		t := *v
		*dst = &t
	}
}
