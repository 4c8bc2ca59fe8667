// Package payments holds EscrowProvider implementations.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/utils"
)

var ErrEmptyIdempotencyKey = errors.New("payments: idempotency key required")

// Movement is one recorded charge or transfer.
type Movement struct {
	Ref    string
	Kind   string
	Amount models.Cents
	Party  domain.ID
}

// Sandbox is an in-memory processor for development. A repeated idempotency
// key returns the first reference without moving money again.
type Sandbox struct {
	mu        sync.Mutex
	byKey     map[string]Movement
	movements []Movement
	// Fail, when set, is returned by every call.
	Fail error
}

func NewSandbox() *Sandbox {
	return &Sandbox{byKey: map[string]Movement{}}
}

func (s *Sandbox) Charge(ctx context.Context, amount models.Cents, payer domain.ID, idempotencyKey string) (string, error) {
	return s.record(ctx, "charge", amount, payer, idempotencyKey)
}

func (s *Sandbox) Transfer(ctx context.Context, amount models.Cents, payee domain.ID, idempotencyKey string) (string, error) {
	return s.record(ctx, "transfer", amount, payee, idempotencyKey)
}

func (s *Sandbox) record(ctx context.Context, kind string, amount models.Cents, party domain.ID, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyIdempotencyKey
	}
	if amount < 0 {
		return "", fmt.Errorf("payments: negative %s amount %d", kind, amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return "", s.Fail
	}
	if s.byKey == nil {
		s.byKey = map[string]Movement{}
	}
	if m, ok := s.byKey[key]; ok {
		return m.Ref, nil
	}
	prefix := "ch_"
	if kind == "transfer" {
		prefix = "tr_"
	}
	m := Movement{Ref: prefix + uuid.NewString(), Kind: kind, Amount: amount, Party: party}
	s.byKey[key] = m
	s.movements = append(s.movements, m)
	utils.LogEvent(ctx, "payments", kind, "sandbox movement recorded", "ref", m.Ref, "amount", int64(amount))
	return m.Ref, nil
}

// Movements returns a copy of everything recorded so far.
func (s *Sandbox) Movements() []Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Movement, len(s.movements))
	copy(out, s.movements)
	return out
}
