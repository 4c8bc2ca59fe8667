package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

// The interfaces below are the persistence boundary. The MySQL
// implementations live in this package; internal/store/memory provides an
// in-process arena with the same behaviour for development and tests.

type TripRepository interface {
	Create(ctx context.Context, t models.Trip) error
	GetByID(ctx context.Context, id domain.ID) (models.Trip, error)
	ListByTraveler(ctx context.Context, travelerID domain.ID, p domain.Pagination) ([]models.Trip, error)
	// ListCandidates returns up to limit trips in TripCursor order. Callers
	// page by setting f.After to the last trip's cursor.
	ListCandidates(ctx context.Context, f models.TripFilter, limit int) ([]models.Trip, error)
	// Update applies u only if the stored status is one of expected.
	Update(ctx context.Context, id domain.ID, expected []models.TripStatus, u models.TripUpdate, now time.Time) (bool, error)
	Delete(ctx context.Context, id domain.ID) error
}

type PackageRepository interface {
	Create(ctx context.Context, p models.Package) error
	GetByID(ctx context.Context, id domain.ID) (models.Package, error)
	ListByShipper(ctx context.Context, shipperID domain.ID, p domain.Pagination) ([]models.Package, error)
	// ListCandidates returns up to limit packages in PackageCursor order.
	ListCandidates(ctx context.Context, f models.PackageFilter, limit int) ([]models.Package, error)
	// UpdateStatus moves the package from -> to; false when the stored status differs.
	UpdateStatus(ctx context.Context, id domain.ID, from, to models.PackageStatus, now time.Time) (bool, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, tx models.Transaction) error
	GetByID(ctx context.Context, id domain.ID) (models.Transaction, error)
	ListForUser(ctx context.Context, userID domain.ID, p domain.Pagination) ([]models.Transaction, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error)
	// CountOpenForTrip counts non-terminal transactions on the trip, excluding one id.
	CountOpenForTrip(ctx context.Context, tripID, exclude domain.ID) (int, error)
	// Update applies u only if the stored status equals from.
	Update(ctx context.Context, id domain.ID, from models.TxStatus, u models.TransactionUpdate, now time.Time) (bool, error)
}

// ReservationRepository is the storage side of the capacity ledger. Every
// method moves the trip's reserved counter and the reservation row together.
type ReservationRepository interface {
	// Reserve records r and adds its weight to the trip when it still fits.
	// Fails with domain.ErrInsufficientCapacity or domain.ErrTripUnavailable.
	Reserve(ctx context.Context, r models.Reservation, now time.Time) (models.Trip, error)
	// Release returns an ACTIVE reservation's weight; false when nothing changed.
	Release(ctx context.Context, token domain.ID, now time.Time) (bool, error)
	// Consume marks an ACTIVE reservation permanent; false when nothing changed.
	Consume(ctx context.Context, token domain.ID, now time.Time) (bool, error)
	Get(ctx context.Context, token domain.ID) (models.Reservation, error)
	// CountActiveForTrip counts reservations on the trip still holding weight
	// that is neither released nor consumed.
	CountActiveForTrip(ctx context.Context, tripID domain.ID) (int, error)
}

type ReviewRepository interface {
	// Create fails with domain.ErrDuplicateReview on a second review by the same reviewer.
	Create(ctx context.Context, r models.Review) error
	ListForUser(ctx context.Context, reviewedID domain.ID, p domain.Pagination) ([]models.Review, error)
	// Stats returns the sum and count of overall ratings a user received.
	Stats(ctx context.Context, reviewedID domain.ID) (sum int64, count int, err error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id domain.ID) (models.User, error)
	Upsert(ctx context.Context, u models.User) error
	UpdateRating(ctx context.Context, id domain.ID, rating float64, count int, now time.Time) error
}

type DeliveryCodeRepository interface {
	// Create fails with ErrFingerprintTaken when a live code has the same fingerprint.
	Create(ctx context.Context, c models.DeliveryCode) error
	Get(ctx context.Context, txID domain.ID) (models.DeliveryCode, error)
	// IncrementAttempts bumps the failed attempt counter of a live code and returns it.
	IncrementAttempts(ctx context.Context, txID domain.ID) (int, error)
	// Consume invalidates the code; false when it was already consumed.
	Consume(ctx context.Context, txID domain.ID, now time.Time) (bool, error)
}

// ErrFingerprintTaken is returned by DeliveryCodeRepository.Create when a live
// code already has the same fingerprint.
var ErrFingerprintTaken = errors.New("delivery code fingerprint in use")

// Set bundles one implementation of every repository.
type Set struct {
	Trips         TripRepository
	Packages      PackageRepository
	Transactions  TransactionRepository
	Reservations  ReservationRepository
	Reviews       ReviewRepository
	Users         UserRepository
	DeliveryCodes DeliveryCodeRepository
}

// NewMySQL returns the MySQL-backed set sharing one pool.
func NewMySQL(db *sql.DB) Set {
	return Set{
		Trips:         TripRepo{DB: db},
		Packages:      PackageRepo{DB: db},
		Transactions:  TransactionRepo{DB: db},
		Reservations:  ReservationRepo{DB: db},
		Reviews:       ReviewRepo{DB: db},
		Users:         UserRepo{DB: db},
		DeliveryCodes: DeliveryCodeRepo{DB: db},
	}
}
