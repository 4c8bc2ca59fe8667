package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

var tripCols = []string{"id", "traveler_id", "departure_city", "departure_country", "arrival_city", "arrival_country",
	"departure_at", "available_weight", "reserved_weight", "price_per_kg", "status", "notes", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	return db, mock, func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	}
}

func tripRow(rows *sqlmock.Rows, id uuid.UUID, available, reserved int64, status string, departure time.Time) *sqlmock.Rows {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id.String(), uuid.New().String(), "Paris", "FR", "Dakar", "SN",
		departure, available, reserved, int64(1200), status, "", now, now)
}

func TestTripRepoGetByIDNotFound(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := TripRepo{DB: db}

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM trips WHERE id=").WithArgs(id).
		WillReturnRows(sqlmock.NewRows(tripCols))

	_, err := repo.GetByID(context.Background(), id)
	assert.True(t, domain.IsNotFound(err))
}

func TestTripRepoRejectsUnknownStatus(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := TripRepo{DB: db}

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM trips WHERE id=").WithArgs(id).
		WillReturnRows(tripRow(sqlmock.NewRows(tripCols), id, 15000, 0, "PARKED", time.Now().UTC()))

	_, err := repo.GetByID(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown trip status "PARKED"`)
	assert.False(t, domain.IsNotFound(err))
}

func TestReservationRepoCountActiveForTrip(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := ReservationRepo{DB: db}

	tripID := uuid.New()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reservations WHERE trip_id=\? AND state=\?`).
		WithArgs(tripID, models.ReservationActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountActiveForTrip(context.Background(), tripID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTripRepoListCandidatesOrdersByDepartureThenPrice(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := TripRepo{DB: db}

	dep := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	a, b := uuid.New(), uuid.New()
	rows := sqlmock.NewRows(tripCols)
	tripRow(rows, a, 15000, 0, "ACTIVE", dep)
	tripRow(rows, b, 10000, 2000, "ACTIVE", dep.Add(time.Hour))

	mock.ExpectQuery(`WHERE 1=1 AND status=\? AND available_weight-reserved_weight>=\?\s+ORDER BY departure_at ASC, price_per_kg ASC, id ASC`).
		WithArgs(models.TripActive, models.Grams(5000), 50).
		WillReturnRows(rows)

	trips, err := repo.ListCandidates(context.Background(), models.TripFilter{Status: models.TripActive, MinRemaining: 5000}, 50)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, a, trips[0].ID)
	assert.Equal(t, models.Grams(8000), trips[1].Remaining())
	assert.Equal(t, models.TripActive, trips[1].Status)
}

func TestTripRepoListCandidatesAfterCursor(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := TripRepo{DB: db}

	after := models.TripCursor{DepartureAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), PricePerKg: 1200, ID: uuid.New()}
	mock.ExpectQuery(`WHERE 1=1 AND status=\? AND \(departure_at, price_per_kg, id\) > \(\?,\?,\?\)\s+ORDER BY departure_at ASC, price_per_kg ASC, id ASC LIMIT \?$`).
		WithArgs(models.TripActive, after.DepartureAt, after.PricePerKg, after.ID, 2).
		WillReturnRows(sqlmock.NewRows(tripCols))

	trips, err := repo.ListCandidates(context.Background(), models.TripFilter{Status: models.TripActive, After: &after}, 2)
	require.NoError(t, err)
	assert.Empty(t, trips)
}

func TestReservationRepoReserve(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := ReservationRepo{DB: db}

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	tripID := uuid.New()
	res := models.Reservation{Token: uuid.New(), TripID: tripID, Weight: 7000}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE trips").
		WithArgs(res.Weight, res.Weight, now, tripID, now, res.Weight).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs(res.Token, tripID, res.Weight, models.ReservationActive, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM trips WHERE id=").WithArgs(tripID).
		WillReturnRows(tripRow(sqlmock.NewRows(tripCols), tripID, 15000, 15000, "FULL", now.Add(48*time.Hour)))
	mock.ExpectCommit()

	trip, err := repo.Reserve(context.Background(), res, now)
	require.NoError(t, err)
	assert.Equal(t, models.TripFull, trip.Status)
	assert.Equal(t, models.Grams(0), trip.Remaining())
}

func TestReservationRepoReserveInsufficientCapacity(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := ReservationRepo{DB: db}

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	tripID := uuid.New()
	res := models.Reservation{Token: uuid.New(), TripID: tripID, Weight: 8000}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE trips").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM trips WHERE id=").WithArgs(tripID).
		WillReturnRows(tripRow(sqlmock.NewRows(tripCols), tripID, 15000, 8000, "ACTIVE", now.Add(48*time.Hour)))
	mock.ExpectRollback()

	_, err := repo.Reserve(context.Background(), res, now)
	assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
}

func TestReservationRepoReserveDepartedTrip(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := ReservationRepo{DB: db}

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	tripID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE trips").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM trips WHERE id=").WithArgs(tripID).
		WillReturnRows(tripRow(sqlmock.NewRows(tripCols), tripID, 15000, 0, "ACTIVE", now.Add(-time.Hour)))
	mock.ExpectRollback()

	_, err := repo.Reserve(context.Background(), models.Reservation{Token: uuid.New(), TripID: tripID, Weight: 1000}, now)
	assert.ErrorIs(t, err, domain.ErrTripUnavailable)
}

func TestReservationRepoReleaseIsIdempotent(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := ReservationRepo{DB: db}

	now := time.Now().UTC()
	token, tripID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT token, trip_id, weight, state FROM reservations").WithArgs(token).
		WillReturnRows(sqlmock.NewRows([]string{"token", "trip_id", "weight", "state"}).
			AddRow(token.String(), tripID.String(), int64(8000), "ACTIVE"))
	mock.ExpectExec("UPDATE reservations SET state").
		WithArgs(models.ReservationReleased, now, token).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE trips").
		WithArgs(now, models.Grams(8000), now, tripID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT token, trip_id, weight, state FROM reservations").WithArgs(token).
		WillReturnRows(sqlmock.NewRows([]string{"token", "trip_id", "weight", "state"}).
			AddRow(token.String(), tripID.String(), int64(8000), "RELEASED"))
	mock.ExpectCommit()

	released, err := repo.Release(context.Background(), token, now)
	require.NoError(t, err)
	assert.True(t, released)

	released, err = repo.Release(context.Background(), token, now)
	require.NoError(t, err)
	assert.False(t, released, "second release is a no-op")
}

func TestReviewRepoDuplicate(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := ReviewRepo{DB: db}

	mock.ExpectExec("INSERT INTO reviews").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uq_reviews_tx_reviewer'"})

	err := repo.Create(context.Background(), models.Review{ID: uuid.New(), Ratings: models.Ratings{Overall: 5, Communication: 5, Punctuality: 5, Care: 5}})
	assert.ErrorIs(t, err, domain.ErrDuplicateReview)
	assert.Equal(t, "duplicate_review", domain.Code(err))
}

func TestReviewRepoStats(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := ReviewRepo{DB: db}

	user := uuid.New()
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(overall\\),0\\), COUNT\\(\\*\\) FROM reviews").WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"sum", "count"}).AddRow(int64(13), 3))

	sum, count, err := repo.Stats(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, int64(13), sum)
	assert.Equal(t, 3, count)
}

func TestTransactionRepoUpdateGuardsStatus(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := TransactionRepo{DB: db}

	id := uuid.New()
	now := time.Now().UTC()
	ref := "ch_1"
	mock.ExpectExec(`UPDATE transactions SET updated_at=\?, status=\?, processor_ref=\?, paid_at=\? WHERE id=\? AND status=\?`).
		WithArgs(now, models.TxPaid, ref, sqlmock.AnyArg(), id, models.TxPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Update(context.Background(), id, models.TxPending,
		models.TransactionUpdate{Status: models.TxPaid, ProcessorRef: &ref, PaidAt: &now}, now)
	require.NoError(t, err)
	assert.False(t, ok, "a concurrent writer already moved the status")
}

func TestTransactionRepoUpdateRejectsSkippedStep(t *testing.T) {
	db, _, done := newMock(t)
	defer done()
	repo := TransactionRepo{DB: db}

	_, err := repo.Update(context.Background(), uuid.New(), models.TxPaid,
		models.TransactionUpdate{Status: models.TxDelivered}, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestDeliveryCodeRepoFingerprintCollision(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := DeliveryCodeRepo{DB: db}

	mock.ExpectExec("INSERT INTO delivery_codes").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'abc' for key 'delivery_codes.live_fingerprint'"})

	err := repo.Create(context.Background(), models.DeliveryCode{TransactionID: uuid.New(), Hash: "h", Fingerprint: "abc"})
	assert.True(t, errors.Is(err, ErrFingerprintTaken))
}
