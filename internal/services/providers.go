package services

import (
	"context"
	"time"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/repositories"
	"parcelhop/internal/utils"
)

// KYCChecker answers whether a user passed identity verification.
type KYCChecker interface {
	IsVerified(ctx context.Context, userID domain.ID) (bool, error)
}

// EscrowProvider moves money through the payment processor. Both calls take
// an idempotency key so a retried request never charges or pays twice.
type EscrowProvider interface {
	Charge(ctx context.Context, amount models.Cents, payer domain.ID, idempotencyKey string) (string, error)
	Transfer(ctx context.Context, amount models.Cents, payee domain.ID, idempotencyKey string) (string, error)
}

// Notifier delivers a message to a user. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, userID domain.ID, kind, message string) error
}

// UserKYC reads the kyc_verified flag maintained by the identity service.
type UserKYC struct {
	Users repositories.UserRepository
}

func (k UserKYC) IsVerified(ctx context.Context, userID domain.ID) (bool, error) {
	u, err := k.Users.GetByID(ctx, userID)
	if domain.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.KYCVerified, nil
}

// LogNotifier writes notifications to the structured log. The message body is
// not logged since it may carry a delivery code.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, userID domain.ID, kind, message string) error {
	utils.LogEvent(ctx, "notify", kind, "notification sent", "user_id", userID.String(), "length", len(message))
	return nil
}

const notifyTimeout = 5 * time.Second

// notifyAsync never blocks the caller; failures are only logged.
func notifyAsync(ctx context.Context, n Notifier, userID domain.ID, kind, message string) {
	if n == nil {
		return
	}
	base := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(base, notifyTimeout)
		defer cancel()
		if err := n.Notify(ctx, userID, kind, message); err != nil {
			utils.LogWarn(ctx, "notify", kind, "notification failed", "user_id", userID.String(), "error", err.Error())
		}
	}()
}

func nowOr(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return utils.NowUTC()
}
