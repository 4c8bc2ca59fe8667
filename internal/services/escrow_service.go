package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/repositories"
	"parcelhop/internal/utils"
)

const expireBatchSize = 100

// EscrowService drives a transaction from PENDING to a terminal status.
// Every storage write is conditional on the status the step started from, so
// a concurrent writer makes the loser fail with ErrInvalidState instead of
// overwriting. Provider calls for one transaction are serialized in-process.
type EscrowService struct {
	Transactions repositories.TransactionRepository
	Packages     repositories.PackageRepository
	Trips        repositories.TripRepository
	Ledger       *CapacityLedger
	Verifier     *DeliveryVerifier
	KYC          KYCChecker
	Provider     EscrowProvider
	Notifier     Notifier
	// FeeRate is the platform rate applied to new transactions only.
	FeeRate float64
	Now     func() time.Time

	locks utils.KeyedMutex[domain.ID]
}

// CreateResult carries the delivery code, which is only returned to the
// shipper. It cannot be read back later.
type CreateResult struct {
	Transaction  models.Transaction `json:"transaction"`
	DeliveryCode string             `json:"delivery_code,omitempty"`
}

// Create binds a published package to an active trip and reserves capacity.
func (s *EscrowService) Create(ctx context.Context, rc domain.RequestContext, packageID, tripID domain.ID, agreedPrice models.Cents) (CreateResult, error) {
	if agreedPrice < 0 {
		return CreateResult{}, domain.ValidationError{Field: "agreed_price", Msg: "must not be negative"}
	}
	pkg, err := s.Packages.GetByID(ctx, packageID)
	if err != nil {
		return CreateResult{}, err
	}
	trip, err := s.Trips.GetByID(ctx, tripID)
	if err != nil {
		return CreateResult{}, err
	}
	if !rc.Privileged() && rc.UserID != pkg.ShipperID && rc.UserID != trip.TravelerID {
		return CreateResult{}, domain.ForbiddenError{Msg: "only the shipper or the traveler can open a transaction"}
	}
	if pkg.ShipperID == trip.TravelerID {
		return CreateResult{}, domain.ValidationError{Field: "trip_id", Msg: "shipper and traveler must differ"}
	}
	if pkg.Status != models.PackagePublished {
		return CreateResult{}, domain.ConflictError{Resource: "package", Msg: "package is " + string(pkg.Status), Err: domain.ErrPackageUnavailable}
	}
	switch {
	case trip.Status == models.TripFull:
		return CreateResult{}, domain.ConflictError{Resource: "trip", Msg: "trip is full", Err: domain.ErrInsufficientCapacity}
	case trip.Status != models.TripActive:
		return CreateResult{}, domain.ConflictError{Resource: "trip", Msg: "trip is " + string(trip.Status), Err: domain.ErrTripUnavailable}
	}
	for _, party := range []domain.ID{pkg.ShipperID, trip.TravelerID} {
		if err := s.requireKYC(ctx, party); err != nil {
			return CreateResult{}, err
		}
	}

	now := nowOr(s.Now)
	ok, err := s.Packages.UpdateStatus(ctx, pkg.ID, models.PackagePublished, models.PackageReserved, now)
	if err != nil {
		return CreateResult{}, err
	}
	if !ok {
		return CreateResult{}, domain.ConflictError{Resource: "package", Msg: "package was taken by another transaction", Err: domain.ErrPackageUnavailable}
	}

	res, err := s.Ledger.Reserve(ctx, trip.ID, pkg.Weight)
	if err != nil {
		s.revertPackage(ctx, pkg.ID, models.PackageReserved)
		return CreateResult{}, err
	}

	payout, fee := utils.ComputePayout(int64(agreedPrice), s.FeeRate)
	tx := models.Transaction{
		ID:               uuid.New(),
		PackageID:        pkg.ID,
		TripID:           trip.ID,
		ShipperID:        pkg.ShipperID,
		TravelerID:       trip.TravelerID,
		AgreedPrice:      agreedPrice,
		FeeRate:          s.FeeRate,
		PlatformFee:      models.Cents(fee),
		TravelerPayout:   models.Cents(payout),
		ReservationToken: res.Token,
		Status:           models.TxPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Transactions.Create(ctx, tx); err != nil {
		s.releaseQuietly(ctx, res.Token)
		s.revertPackage(ctx, pkg.ID, models.PackageReserved)
		return CreateResult{}, err
	}

	code, err := s.Verifier.GenerateCode(ctx, tx.ID)
	if err != nil {
		cancelledAt := now
		if _, uerr := s.Transactions.Update(ctx, tx.ID, models.TxPending, models.TransactionUpdate{Status: models.TxCancelled, CancelledAt: &cancelledAt}, now); uerr != nil {
			utils.LogWarn(ctx, "escrow", "create", "rollback cancel failed", "transaction_id", tx.ID.String(), "error", uerr.Error())
		}
		s.releaseQuietly(ctx, res.Token)
		s.revertPackage(ctx, pkg.ID, models.PackageReserved)
		return CreateResult{}, err
	}

	utils.LogEvent(ctx, "escrow", "create", "transaction created",
		"transaction_id", tx.ID.String(), "package_id", pkg.ID.String(), "trip_id", trip.ID.String(),
		"agreed_price", int64(agreedPrice), "traveler_payout", payout)
	notifyAsync(ctx, s.Notifier, tx.ShipperID, "delivery_code",
		fmt.Sprintf("Your delivery code for shipment %s is %s. Share it only with the recipient.", tx.ID, code))
	notifyAsync(ctx, s.Notifier, tx.TravelerID, "transaction_created",
		fmt.Sprintf("New shipment %s reserved %.2f kg on your trip.", tx.ID, pkg.Weight.Kg()))

	out := CreateResult{Transaction: tx}
	if rc.UserID == tx.ShipperID {
		out.DeliveryCode = code
	}
	return out, nil
}

// InitiatePayment charges the shipper. The charge is captured later by
// ConfirmPayment, usually from the processor webhook.
func (s *EscrowService) InitiatePayment(ctx context.Context, rc domain.RequestContext, txID domain.ID) (models.Transaction, error) {
	unlock := s.locks.Lock(txID)
	defer unlock()

	tx, err := s.Transactions.GetByID(ctx, txID)
	if err != nil {
		return models.Transaction{}, err
	}
	if !rc.Privileged() && rc.UserID != tx.ShipperID {
		return models.Transaction{}, domain.ForbiddenError{Msg: "only the shipper can pay"}
	}
	if tx.Status != models.TxPending {
		return models.Transaction{}, domain.InvalidState("transaction", string(tx.Status), "initiate payment")
	}
	if tx.ProcessorRef != "" {
		return tx, nil
	}

	ref, err := s.Provider.Charge(ctx, tx.AgreedPrice, tx.ShipperID, "charge:"+tx.ID.String())
	if err != nil {
		return models.Transaction{}, domain.UnavailableError{Msg: "payment processor unavailable", Err: err}
	}
	return s.apply(ctx, tx, "initiate payment", models.TransactionUpdate{ProcessorRef: &ref})
}

// ConfirmPayment marks the charge captured. A duplicate confirmation for the
// same processor reference succeeds without doing anything.
func (s *EscrowService) ConfirmPayment(ctx context.Context, rc domain.RequestContext, txID domain.ID, processorRef string) (models.Transaction, error) {
	if !rc.Privileged() {
		return models.Transaction{}, domain.ForbiddenError{Msg: "payment confirmation is reserved to the payment webhook"}
	}
	processorRef = strings.TrimSpace(processorRef)
	if processorRef == "" {
		return models.Transaction{}, domain.ValidationError{Field: "processor_ref", Msg: "required"}
	}

	unlock := s.locks.Lock(txID)
	defer unlock()

	tx, err := s.Transactions.GetByID(ctx, txID)
	if err != nil {
		return models.Transaction{}, err
	}
	if alreadyConfirmed(tx, processorRef) {
		utils.LogEvent(ctx, "escrow", "confirm_payment", "duplicate confirmation ignored", "transaction_id", tx.ID.String())
		return tx, nil
	}
	if tx.Status != models.TxPending {
		return models.Transaction{}, domain.InvalidState("transaction", string(tx.Status), "confirm payment")
	}
	if tx.ProcessorRef != "" && tx.ProcessorRef != processorRef {
		return models.Transaction{}, domain.ValidationError{Field: "processor_ref", Msg: "does not match the initiated charge"}
	}

	now := nowOr(s.Now)
	updated, err := s.apply(ctx, tx, "confirm payment", models.TransactionUpdate{
		Status:       models.TxPaid,
		ProcessorRef: &processorRef,
		PaidAt:       &now,
	})
	if errors.Is(err, domain.ErrInvalidState) {
		// Lost a race with another delivery of the same webhook.
		if cur, gerr := s.Transactions.GetByID(ctx, txID); gerr == nil && alreadyConfirmed(cur, processorRef) {
			return cur, nil
		}
	}
	if err != nil {
		return models.Transaction{}, err
	}
	notifyAsync(ctx, s.Notifier, updated.TravelerID, "payment_confirmed",
		fmt.Sprintf("Payment for shipment %s is held in escrow. You can pick up the package.", updated.ID))
	return updated, nil
}

func alreadyConfirmed(tx models.Transaction, ref string) bool {
	return tx.PaidAt != nil && tx.ProcessorRef == ref
}

// MarkPickedUp records the handover from shipper to traveler.
func (s *EscrowService) MarkPickedUp(ctx context.Context, rc domain.RequestContext, txID domain.ID, photoRef string) (models.Transaction, error) {
	photoRef = strings.TrimSpace(photoRef)
	if photoRef == "" {
		return models.Transaction{}, domain.ValidationError{Field: "photo_ref", Msg: "pickup photo is required"}
	}

	unlock := s.locks.Lock(txID)
	defer unlock()

	tx, err := s.loadForTraveler(ctx, rc, txID)
	if err != nil {
		return models.Transaction{}, err
	}
	if tx.Status != models.TxPaid {
		return models.Transaction{}, domain.InvalidState("transaction", string(tx.Status), "mark picked up")
	}

	now := nowOr(s.Now)
	updated, err := s.apply(ctx, tx, "mark picked up", models.TransactionUpdate{
		Status:         models.TxPickedUp,
		PickupPhotoRef: &photoRef,
		PickedUpAt:     &now,
	})
	if err != nil {
		return models.Transaction{}, err
	}
	s.movePackage(ctx, tx.PackageID, models.PackageReserved, models.PackageInTransit)
	notifyAsync(ctx, s.Notifier, tx.ShipperID, "picked_up", fmt.Sprintf("Shipment %s was picked up.", tx.ID))
	return updated, nil
}

// MarkInTransit is optional; delivery may follow pickup directly.
func (s *EscrowService) MarkInTransit(ctx context.Context, rc domain.RequestContext, txID domain.ID) (models.Transaction, error) {
	unlock := s.locks.Lock(txID)
	defer unlock()

	tx, err := s.loadForTraveler(ctx, rc, txID)
	if err != nil {
		return models.Transaction{}, err
	}
	if tx.Status != models.TxPickedUp {
		return models.Transaction{}, domain.InvalidState("transaction", string(tx.Status), "mark in transit")
	}
	now := nowOr(s.Now)
	return s.apply(ctx, tx, "mark in transit", models.TransactionUpdate{Status: models.TxInTransit, InTransitAt: &now})
}

// MarkDelivered checks the recipient's code. A wrong code leaves the
// transaction untouched so the traveler can retry.
func (s *EscrowService) MarkDelivered(ctx context.Context, rc domain.RequestContext, txID domain.ID, code, photoRef string) (models.Transaction, error) {
	photoRef = strings.TrimSpace(photoRef)
	if photoRef == "" {
		return models.Transaction{}, domain.ValidationError{Field: "photo_ref", Msg: "delivery photo is required"}
	}
	if strings.TrimSpace(code) == "" {
		return models.Transaction{}, domain.ValidationError{Field: "code", Msg: "required"}
	}

	unlock := s.locks.Lock(txID)
	defer unlock()

	tx, err := s.loadForTraveler(ctx, rc, txID)
	if err != nil {
		return models.Transaction{}, err
	}
	if tx.Status != models.TxPickedUp && tx.Status != models.TxInTransit {
		return models.Transaction{}, domain.InvalidState("transaction", string(tx.Status), "mark delivered")
	}

	ok, err := s.Verifier.Verify(ctx, tx.ID, code)
	if err != nil {
		return models.Transaction{}, err
	}
	if !ok {
		return models.Transaction{}, domain.ConflictError{Resource: "transaction", Msg: "delivery code does not match", Err: domain.ErrInvalidDeliveryCode}
	}

	now := nowOr(s.Now)
	updated, err := s.apply(ctx, tx, "mark delivered", models.TransactionUpdate{
		Status:           models.TxDelivered,
		DeliveryPhotoRef: &photoRef,
		DeliveredAt:      &now,
	})
	if err != nil {
		return models.Transaction{}, err
	}
	if err := s.Verifier.Invalidate(ctx, tx.ID); err != nil {
		utils.LogWarn(ctx, "escrow", "mark_delivered", "code invalidation failed", "transaction_id", tx.ID.String(), "error", err.Error())
	}
	s.movePackage(ctx, tx.PackageID, models.PackageInTransit, models.PackageDelivered)
	// DELIVERED is already committed; Complete consumes again before paying out.
	if err := s.Ledger.Consume(ctx, tx.ReservationToken); err != nil {
		utils.LogWarn(ctx, "escrow", "mark_delivered", "reservation consume failed", "transaction_id", tx.ID.String(), "error", err.Error())
	}
	notifyAsync(ctx, s.Notifier, tx.ShipperID, "delivered", fmt.Sprintf("Shipment %s was delivered.", tx.ID))
	return updated, nil
}

// Complete pays the traveler and closes the transaction. If the transfer
// fails the transaction stays DELIVERED and the call can be repeated.
func (s *EscrowService) Complete(ctx context.Context, rc domain.RequestContext, txID domain.ID) (models.Transaction, error) {
	unlock := s.locks.Lock(txID)
	defer unlock()

	tx, err := s.Transactions.GetByID(ctx, txID)
	if err != nil {
		return models.Transaction{}, err
	}
	if !rc.Privileged() && rc.UserID != tx.ShipperID {
		return models.Transaction{}, domain.ForbiddenError{Msg: "only the shipper can release the funds"}
	}
	if tx.Status != models.TxDelivered {
		return models.Transaction{}, domain.InvalidState("transaction", string(tx.Status), "complete")
	}

	if err := s.Ledger.Consume(ctx, tx.ReservationToken); err != nil {
		return models.Transaction{}, fmt.Errorf("escrow.Complete: %w", err)
	}

	ref := tx.TransferRef
	if ref == "" {
		ref, err = s.Provider.Transfer(ctx, tx.TravelerPayout, tx.TravelerID, "transfer:"+tx.ID.String())
		if err != nil {
			return models.Transaction{}, domain.UnavailableError{Msg: "payout transfer failed", Err: err}
		}
	}

	now := nowOr(s.Now)
	updated, err := s.apply(ctx, tx, "complete", models.TransactionUpdate{
		Status:      models.TxCompleted,
		TransferRef: &ref,
		CompletedAt: &now,
	})
	if err != nil {
		return models.Transaction{}, err
	}

	open, err := s.Transactions.CountOpenForTrip(ctx, tx.TripID, tx.ID)
	if err != nil {
		utils.LogWarn(ctx, "escrow", "complete", "open transaction count failed", "trip_id", tx.TripID.String(), "error", err.Error())
	} else if open == 0 {
		if _, err := s.Trips.Update(ctx, tx.TripID, []models.TripStatus{models.TripActive, models.TripFull},
			models.TripUpdate{Status: models.TripCompleted}, now); err != nil {
			utils.LogWarn(ctx, "escrow", "complete", "trip completion failed", "trip_id", tx.TripID.String(), "error", err.Error())
		}
	}

	utils.LogEvent(ctx, "escrow", "complete", "funds released",
		"transaction_id", tx.ID.String(), "traveler_payout", int64(tx.TravelerPayout), "platform_fee", int64(tx.PlatformFee))
	notifyAsync(ctx, s.Notifier, tx.TravelerID, "payout_sent",
		fmt.Sprintf("Payout of %s for shipment %s is on its way.", utils.FormatMoney(int64(tx.TravelerPayout)), tx.ID))
	return updated, nil
}

// Cancel is only possible before payment. Paid transactions go to Dispute.
func (s *EscrowService) Cancel(ctx context.Context, rc domain.RequestContext, txID domain.ID) (models.Transaction, error) {
	unlock := s.locks.Lock(txID)
	defer unlock()

	tx, err := s.Transactions.GetByID(ctx, txID)
	if err != nil {
		return models.Transaction{}, err
	}
	if err := authorizeParty(rc, tx); err != nil {
		return models.Transaction{}, err
	}
	return s.cancelLocked(ctx, tx)
}

func (s *EscrowService) cancelLocked(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	switch tx.Status {
	case models.TxPending:
	case models.TxCancelled:
		// An earlier cancel committed the status but not the release.
		held, err := s.Ledger.Held(ctx, tx.ReservationToken)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("escrow.Cancel: %w", err)
		}
		if !held {
			return models.Transaction{}, domain.InvalidState("transaction", string(tx.Status), "cancel")
		}
		if err := s.undoReservation(ctx, tx); err != nil {
			return models.Transaction{}, err
		}
		utils.LogEvent(ctx, "escrow", "cancel", "cancellation resumed", "transaction_id", tx.ID.String())
		s.notifyCancelled(ctx, tx)
		return tx, nil
	default:
		return models.Transaction{}, domain.InvalidState("transaction", string(tx.Status), "cancel")
	}

	now := nowOr(s.Now)
	updated, err := s.apply(ctx, tx, "cancel", models.TransactionUpdate{Status: models.TxCancelled, CancelledAt: &now})
	if err != nil {
		return models.Transaction{}, err
	}
	if err := s.undoReservation(ctx, tx); err != nil {
		return models.Transaction{}, err
	}
	s.notifyCancelled(ctx, tx)
	return updated, nil
}

// undoReservation gives the weight back to the trip and the package back to
// the market. Every step is idempotent, so a failed cancel can be repeated.
func (s *EscrowService) undoReservation(ctx context.Context, tx models.Transaction) error {
	if err := s.Ledger.Release(ctx, tx.ReservationToken); err != nil {
		return fmt.Errorf("escrow.Cancel: %w", err)
	}
	s.movePackage(ctx, tx.PackageID, models.PackageReserved, models.PackagePublished)
	if err := s.Verifier.Invalidate(ctx, tx.ID); err != nil {
		utils.LogWarn(ctx, "escrow", "cancel", "code invalidation failed", "transaction_id", tx.ID.String(), "error", err.Error())
	}
	return nil
}

func (s *EscrowService) notifyCancelled(ctx context.Context, tx models.Transaction) {
	for _, party := range []domain.ID{tx.ShipperID, tx.TravelerID} {
		notifyAsync(ctx, s.Notifier, party, "cancelled", fmt.Sprintf("Shipment %s was cancelled.", tx.ID))
	}
}

// Dispute freezes the transaction. Resolution happens outside this service,
// so the reservation and the escrowed funds are left as they are.
func (s *EscrowService) Dispute(ctx context.Context, rc domain.RequestContext, txID domain.ID, reason string) (models.Transaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.Transaction{}, domain.ValidationError{Field: "reason", Msg: "required"}
	}

	unlock := s.locks.Lock(txID)
	defer unlock()

	tx, err := s.Transactions.GetByID(ctx, txID)
	if err != nil {
		return models.Transaction{}, err
	}
	if err := authorizeParty(rc, tx); err != nil {
		return models.Transaction{}, err
	}
	if tx.Status.Terminal() {
		return models.Transaction{}, domain.InvalidState("transaction", string(tx.Status), "dispute")
	}

	now := nowOr(s.Now)
	by := rc.UserID
	updated, err := s.apply(ctx, tx, "dispute", models.TransactionUpdate{
		Status:        models.TxDisputed,
		DisputeReason: &reason,
		DisputedBy:    &by,
		DisputedAt:    &now,
	})
	if err != nil {
		return models.Transaction{}, err
	}
	if other, ok := tx.Counterparty(rc.UserID); ok {
		notifyAsync(ctx, s.Notifier, other, "disputed", fmt.Sprintf("Shipment %s was disputed.", tx.ID))
	}
	return updated, nil
}

// ExpirePending cancels PENDING transactions created before now-olderThan.
// It is meant to be called by an external scheduler.
func (s *EscrowService) ExpirePending(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, domain.ValidationError{Field: "older_than", Msg: "must be positive"}
	}
	cutoff := nowOr(s.Now).Add(-olderThan)
	tried := map[domain.ID]bool{}
	cancelled := 0
	for {
		batch, err := s.Transactions.ListPendingBefore(ctx, cutoff, expireBatchSize)
		if err != nil {
			return cancelled, err
		}
		progressed := false
		for _, tx := range batch {
			if tried[tx.ID] {
				continue
			}
			tried[tx.ID] = true
			progressed = true
			if err := ctx.Err(); err != nil {
				return cancelled, err
			}
			unlock := s.locks.Lock(tx.ID)
			_, err := s.cancelLocked(ctx, tx)
			unlock()
			if err != nil {
				utils.LogWarn(ctx, "escrow", "expire_pending", "cancel failed", "transaction_id", tx.ID.String(), "error", err.Error())
				continue
			}
			cancelled++
		}
		if !progressed || len(batch) < expireBatchSize {
			break
		}
	}
	utils.LogEvent(ctx, "escrow", "expire_pending", "expired pending transactions", "cancelled", cancelled, "cutoff", cutoff.Format(time.RFC3339))
	return cancelled, nil
}

// Get returns the transaction to one of its parties.
func (s *EscrowService) Get(ctx context.Context, rc domain.RequestContext, txID domain.ID) (models.Transaction, error) {
	tx, err := s.Transactions.GetByID(ctx, txID)
	if err != nil {
		return models.Transaction{}, err
	}
	if err := authorizeParty(rc, tx); err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

func (s *EscrowService) ListForUser(ctx context.Context, rc domain.RequestContext, userID domain.ID, p domain.Pagination) ([]models.Transaction, error) {
	if !rc.Privileged() && rc.UserID != userID {
		return nil, domain.ForbiddenError{Msg: "cannot list another user's transactions"}
	}
	return s.Transactions.ListForUser(ctx, userID, p)
}

// apply writes u guarded by tx.Status and returns the updated copy.
func (s *EscrowService) apply(ctx context.Context, tx models.Transaction, action string, u models.TransactionUpdate) (models.Transaction, error) {
	if err := u.Validate(tx.Status); err != nil {
		return models.Transaction{}, domain.InvalidState("transaction", string(tx.Status), action)
	}
	now := nowOr(s.Now)
	ok, err := s.Transactions.Update(ctx, tx.ID, tx.Status, u, now)
	if err != nil {
		return models.Transaction{}, err
	}
	if !ok {
		cur, gerr := s.Transactions.GetByID(ctx, tx.ID)
		if gerr != nil {
			return models.Transaction{}, gerr
		}
		return models.Transaction{}, domain.InvalidState("transaction", string(cur.Status), action)
	}
	from := tx.Status
	u.Apply(&tx)
	tx.UpdatedAt = now
	if from != tx.Status {
		utils.LogEvent(ctx, "escrow", strings.ReplaceAll(action, " ", "_"), "status changed",
			"transaction_id", tx.ID.String(), "from", string(from), "to", string(tx.Status))
	}
	return tx, nil
}

func (s *EscrowService) requireKYC(ctx context.Context, userID domain.ID) error {
	ok, err := s.KYC.IsVerified(ctx, userID)
	if err != nil {
		return domain.UnavailableError{Msg: "identity verification unavailable", Err: err}
	}
	if !ok {
		return domain.ForbiddenError{Msg: fmt.Sprintf("user %s has not completed identity verification", userID), Err: domain.ErrKycNotVerified}
	}
	return nil
}

func (s *EscrowService) loadForTraveler(ctx context.Context, rc domain.RequestContext, txID domain.ID) (models.Transaction, error) {
	tx, err := s.Transactions.GetByID(ctx, txID)
	if err != nil {
		return models.Transaction{}, err
	}
	if !rc.Privileged() && rc.UserID != tx.TravelerID {
		return models.Transaction{}, domain.ForbiddenError{Msg: "only the traveler can report handover"}
	}
	return tx, nil
}

// movePackage follows the transaction; a mismatch is logged, not fatal.
func (s *EscrowService) movePackage(ctx context.Context, packageID domain.ID, from, to models.PackageStatus) {
	ok, err := s.Packages.UpdateStatus(ctx, packageID, from, to, nowOr(s.Now))
	if err != nil || !ok {
		msg := "package already moved"
		if err != nil {
			msg = err.Error()
		}
		utils.LogWarn(ctx, "escrow", "package_status", msg, "package_id", packageID.String(), "from", string(from), "to", string(to))
	}
}

func (s *EscrowService) revertPackage(ctx context.Context, packageID domain.ID, from models.PackageStatus) {
	s.movePackage(ctx, packageID, from, models.PackagePublished)
}

func (s *EscrowService) releaseQuietly(ctx context.Context, token domain.ID) {
	if err := s.Ledger.Release(ctx, token); err != nil {
		utils.LogWarn(ctx, "escrow", "compensate", "reservation release failed", "token", token.String(), "error", err.Error())
	}
}

func authorizeParty(rc domain.RequestContext, tx models.Transaction) error {
	if rc.Privileged() || tx.IsParty(rc.UserID) {
		return nil
	}
	return domain.ForbiddenError{Msg: "not a party to this transaction"}
}
