package memory

import (
	"context"
	"time"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/repositories"
)

type DeliveryCodeRepo struct{ s *Store }

func (r DeliveryCodeRepo) Create(_ context.Context, c models.DeliveryCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.codes[c.TransactionID]; ok {
		return domain.ConflictError{Resource: "delivery code", Msg: "code already issued for transaction"}
	}
	if _, ok := r.s.liveCodes[c.Fingerprint]; ok {
		return repositories.ErrFingerprintTaken
	}
	c.Attempts, c.ConsumedAt = 0, nil
	r.s.codes[c.TransactionID] = c
	r.s.liveCodes[c.Fingerprint] = c.TransactionID
	return nil
}

func (r DeliveryCodeRepo) Get(_ context.Context, txID domain.ID) (models.DeliveryCode, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.codes[txID]
	if !ok {
		return models.DeliveryCode{}, domain.NotFoundError{Resource: "delivery code"}
	}
	return c, nil
}

func (r DeliveryCodeRepo) IncrementAttempts(_ context.Context, txID domain.ID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.codes[txID]
	if !ok {
		return 0, domain.NotFoundError{Resource: "delivery code"}
	}
	if c.ConsumedAt == nil {
		c.Attempts++
		r.s.codes[txID] = c
	}
	return c.Attempts, nil
}

func (r DeliveryCodeRepo) Consume(_ context.Context, txID domain.ID, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.codes[txID]
	if !ok || c.ConsumedAt != nil {
		return false, nil
	}
	c.ConsumedAt = &now
	r.s.codes[txID] = c
	delete(r.s.liveCodes, c.Fingerprint)
	return true, nil
}
