package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"showtime-booking/internal/apperr"
	"showtime-booking/internal/data/entity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRow fails every Scan with a fixed error.
type fakeRow struct {
	err error
}

func (r fakeRow) Scan(dest ...any) error { return r.err }

// fakeRows yields no rows and reports err from Err, the shape of a connection
// dropped mid-result-set.
type fakeRows struct {
	err error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool                                   { return false }
func (r *fakeRows) Scan(dest ...any) error                       { return pgx.ErrNoRows }
func (r *fakeRows) Values() ([]any, error)                       { return nil, r.err }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

type fakeDB struct {
	queryRowErr error
	rowsErr     error
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return &fakeRows{err: db.rowsErr}, nil
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return fakeRow{err: db.queryRowErr}
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("begin not supported")
}

func (db *fakeDB) Ping(ctx context.Context) error { return nil }
func (db *fakeDB) Close()                         {}

func testBooking() *entity.Booking {
	return &entity.Booking{
		Reference:   "BOOK-20260315-120000-0042",
		UserID:      7,
		ShowtimeID:  10,
		SeatID:      20,
		BookingTime: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		Amount:      150.00,
		Currency:    "USD",
		Status:      entity.BookingStatusInitializing,
	}
}

func TestBookingRepository_CreateSeatConflict(t *testing.T) {
	ctx := context.Background()

	t.Run("unique violation maps to already exists", func(t *testing.T) {
		// Two creates racing past the availability check: the loser hits the
		// partial unique index and must surface as AlreadyExists.
		db := &fakeDB{queryRowErr: &pgconn.PgError{Code: "23505", ConstraintName: "bookings_active_seat_uidx"}}
		repo := NewBookingRepository(db, zap.NewNop())

		err := repo.Create(ctx, testBooking())
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
	})

	t.Run("other pg errors stay internal", func(t *testing.T) {
		db := &fakeDB{queryRowErr: &pgconn.PgError{Code: "53300"}}
		repo := NewBookingRepository(db, zap.NewNop())

		err := repo.Create(ctx, testBooking())
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperr.ErrAlreadyExists)
	})

	t.Run("plain failures stay internal", func(t *testing.T) {
		db := &fakeDB{queryRowErr: errors.New("connection reset")}
		repo := NewBookingRepository(db, zap.NewNop())

		err := repo.Create(ctx, testBooking())
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperr.ErrAlreadyExists)
	})
}

func TestBookingRepository_IterationFailure(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{rowsErr: errors.New("connection reset mid-iteration")}
	repo := NewBookingRepository(db, zap.NewNop())

	t.Run("find active by showtime", func(t *testing.T) {
		bookings, err := repo.FindActiveByShowtimeID(ctx, 10)
		require.Error(t, err, "a dropped connection must not read as an empty list")
		assert.Nil(t, bookings)
	})

	t.Run("find by user", func(t *testing.T) {
		bookings, err := repo.FindByUserID(ctx, 7, nil, 10, 0)
		require.Error(t, err)
		assert.Nil(t, bookings)
	})
}

func TestFeedbackRepository_IterationFailure(t *testing.T) {
	db := &fakeDB{rowsErr: errors.New("connection reset mid-iteration")}
	repo := NewFeedbackRepository(db, zap.NewNop())

	feedbacks, err := repo.FindByBookingID(context.Background(), 5)
	require.Error(t, err)
	assert.Nil(t, feedbacks)
}
