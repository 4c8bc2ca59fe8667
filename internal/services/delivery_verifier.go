package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/bcrypt"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/repositories"
	"parcelhop/internal/utils"
)

const (
	deliveryCodeDigits      = 6
	defaultMaxAttempts      = 5
	maxFingerprintRetries   = 10
	fingerprintDomainPrefix = "parcelhop/delivery-code/v1:"
)

var deliveryCodeSpace = big.NewInt(1_000_000)

// DeliveryVerifier issues and checks one-time delivery codes. The plaintext
// code only exists in memory: storage keeps a bcrypt hash for verification and
// a keyed BLAKE3 fingerprint that must be unique among live codes.
type DeliveryVerifier struct {
	Codes       repositories.DeliveryCodeRepository
	MaxAttempts int
	Now         func() time.Time
	Random      io.Reader
	// HashCost defaults to bcrypt.DefaultCost.
	HashCost int

	key [32]byte
}

// NewDeliveryVerifier derives the fingerprint key from secret.
func NewDeliveryVerifier(codes repositories.DeliveryCodeRepository, secret string, maxAttempts int) *DeliveryVerifier {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &DeliveryVerifier{
		Codes:       codes,
		MaxAttempts: maxAttempts,
		key:         blake3.Sum256([]byte(secret)),
	}
}

func (v *DeliveryVerifier) fingerprint(code string) (string, error) {
	h, err := blake3.NewKeyed(v.key[:])
	if err != nil {
		return "", err
	}
	_, _ = h.Write([]byte(fingerprintDomainPrefix))
	_, _ = h.Write([]byte(code))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (v *DeliveryVerifier) randomCode() (string, error) {
	r := v.Random
	if r == nil {
		r = rand.Reader
	}
	n, err := rand.Int(r, deliveryCodeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", deliveryCodeDigits, n.Int64()), nil
}

// GenerateCode issues the transaction's code and returns the plaintext once.
func (v *DeliveryVerifier) GenerateCode(ctx context.Context, txID domain.ID) (string, error) {
	for range maxFingerprintRetries {
		code, err := v.randomCode()
		if err != nil {
			return "", fmt.Errorf("delivery.GenerateCode: %w", err)
		}
		fp, err := v.fingerprint(code)
		if err != nil {
			return "", fmt.Errorf("delivery.GenerateCode: %w", err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(code), v.hashCost())
		if err != nil {
			return "", fmt.Errorf("delivery.GenerateCode: %w", err)
		}
		err = v.Codes.Create(ctx, models.DeliveryCode{
			TransactionID: txID,
			Hash:          string(hash),
			Fingerprint:   fp,
			CreatedAt:     nowOr(v.Now),
		})
		if errors.Is(err, repositories.ErrFingerprintTaken) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("delivery.GenerateCode: %w", err)
		}
		utils.LogEvent(ctx, "delivery", "generate_code", "delivery code issued", "transaction_id", txID.String())
		return code, nil
	}
	return "", domain.InternalError{Msg: "could not allocate a unique delivery code"}
}

// Verify reports whether code is the live code of txID. A mismatch counts
// against the attempt limit; once it is reached every call fails with
// ErrDeliveryAttemptsExceeded, including one with the right code.
func (v *DeliveryVerifier) Verify(ctx context.Context, txID domain.ID, code string) (bool, error) {
	stored, err := v.Codes.Get(ctx, txID)
	if err != nil {
		return false, fmt.Errorf("delivery.Verify: %w", err)
	}
	if stored.ConsumedAt != nil {
		return false, nil
	}
	if stored.Attempts >= v.maxAttempts() {
		return false, domain.DomainError{Code: "delivery_attempts_exceeded", Err: domain.ErrDeliveryAttemptsExceeded}
	}

	code = strings.TrimSpace(code)
	if v.matches(stored, code) {
		return true, nil
	}

	attempts, err := v.Codes.IncrementAttempts(ctx, txID)
	if err != nil {
		return false, fmt.Errorf("delivery.Verify: %w", err)
	}
	utils.LogWarn(ctx, "delivery", "verify", "delivery code mismatch",
		"transaction_id", txID.String(), "attempts", attempts, "max_attempts", v.maxAttempts())
	return false, nil
}

func (v *DeliveryVerifier) matches(stored models.DeliveryCode, code string) bool {
	if len(code) != deliveryCodeDigits {
		return false
	}
	fp, err := v.fingerprint(code)
	if err != nil || subtle.ConstantTimeCompare([]byte(fp), []byte(stored.Fingerprint)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored.Hash), []byte(code)) == nil
}

// Invalidate consumes the code so it can never verify again.
func (v *DeliveryVerifier) Invalidate(ctx context.Context, txID domain.ID) error {
	if _, err := v.Codes.Consume(ctx, txID, nowOr(v.Now)); err != nil {
		return fmt.Errorf("delivery.Invalidate: %w", err)
	}
	return nil
}

func (v *DeliveryVerifier) maxAttempts() int {
	if v.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return v.MaxAttempts
}

func (v *DeliveryVerifier) hashCost() int {
	if v.HashCost < bcrypt.MinCost {
		return bcrypt.DefaultCost
	}
	return v.HashCost
}
