// Package memory is an in-process arena implementing the repository
// interfaces. Entities are addressed by id and copied in and out, so callers
// never share memory with the store. One mutex guards the whole arena, which
// makes every multi-entity write (reserve, release) atomic.
package memory

import (
	"slices"
	"sync"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/repositories"
)

type reviewKey struct {
	tx, reviewer domain.ID
}

type Store struct {
	mu           sync.RWMutex
	trips        map[domain.ID]models.Trip
	packages     map[domain.ID]models.Package
	transactions map[domain.ID]models.Transaction
	reservations map[domain.ID]models.Reservation
	reviews      map[domain.ID]models.Review
	reviewIndex  map[reviewKey]domain.ID
	users        map[domain.ID]models.User
	codes        map[domain.ID]models.DeliveryCode
	liveCodes    map[string]domain.ID
}

func New() *Store {
	return &Store{
		trips:        map[domain.ID]models.Trip{},
		packages:     map[domain.ID]models.Package{},
		transactions: map[domain.ID]models.Transaction{},
		reservations: map[domain.ID]models.Reservation{},
		reviews:      map[domain.ID]models.Review{},
		reviewIndex:  map[reviewKey]domain.ID{},
		users:        map[domain.ID]models.User{},
		codes:        map[domain.ID]models.DeliveryCode{},
		liveCodes:    map[string]domain.ID{},
	}
}

// Repositories bundles the views of one arena.
type Repositories = repositories.Set

func (s *Store) Repositories() Repositories {
	return Repositories{
		Trips:         TripRepo{s},
		Packages:      PackageRepo{s},
		Transactions:  TransactionRepo{s},
		Reservations:  ReservationRepo{s},
		Reviews:       ReviewRepo{s},
		Users:         UserRepo{s},
		DeliveryCodes: DeliveryCodeRepo{s},
	}
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return slices.Clone(items[offset:end])
}
