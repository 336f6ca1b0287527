package repository

import (
	"context"
	"errors"
	"fmt"

	"showtime-booking/internal/apperr"
	"showtime-booking/internal/data/entity"
	"showtime-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id int64) (*entity.Booking, error)
	FindByReference(ctx context.Context, reference string) (*entity.Booking, error)
	FindByUserID(ctx context.Context, userID int64, status *entity.BookingStatus, limit, offset int) ([]*entity.Booking, error)
	CountByUserID(ctx context.Context, userID int64, status *entity.BookingStatus) (int64, error)

	// Business queries
	FindActiveByShowtimeID(ctx context.Context, showtimeID int64) ([]*entity.Booking, error)
	CountSeatOccupancy(ctx context.Context, showtimeID, seatID int64) (processing, confirmed int64, err error)
	UpdateStatusGuarded(ctx context.Context, id int64, decide func(current entity.BookingStatus) (entity.BookingStatus, error)) (entity.BookingStatus, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, reference, user_id, showtime_id, seat_id, booking_time, amount, currency, status, created_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.Reference,
		&booking.UserID,
		&booking.ShowtimeID,
		&booking.SeatID,
		&booking.BookingTime,
		&booking.Amount,
		&booking.Currency,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (reference, user_id, showtime_id, seat_id, booking_time, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		booking.Reference,
		booking.UserID,
		booking.ShowtimeID,
		booking.SeatID,
		booking.BookingTime,
		booking.Amount,
		booking.Currency,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		// The partial unique index closes the race between the availability
		// check and this insert; the loser surfaces as AlreadyExists:
		//
		//   CREATE UNIQUE INDEX bookings_active_seat_uidx
		//     ON bookings (showtime_id, seat_id)
		//     WHERE status IN ('initializing', 'pending', 'confirmed');
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.log.Warn("Seat already held for showtime",
				zap.Int64("showtime_id", booking.ShowtimeID),
				zap.Int64("seat_id", booking.SeatID),
			)
			return apperr.AlreadyExists("seat %d already booked for showtime %d", booking.SeatID, booking.ShowtimeID)
		}

		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("reference", booking.Reference),
			zap.Int64("user_id", booking.UserID),
		)
		return fmt.Errorf("create booking %s: %w", booking.Reference, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id int64) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.Int64("booking_id", id),
		)
		return nil, fmt.Errorf("find booking by ID %d: %w", id, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByReference(ctx context.Context, reference string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, reference))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by reference",
			zap.Error(err),
			zap.String("reference", reference),
		)
		return nil, fmt.Errorf("find booking by reference %s: %w", reference, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID int64, status *entity.BookingStatus, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY booking_time DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, userID, status, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by user ID",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find bookings by user ID %d: %w", userID, err)
	}
	defer rows.Close()

	return collectBookings(rows, r.log)
}

func (r *bookingRepository) CountByUserID(ctx context.Context, userID int64, status *entity.BookingStatus) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)`

	var count int64
	err := r.db.QueryRow(ctx, query, userID, status).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count bookings by user ID",
			zap.Error(err),
			zap.Int64("user_id", userID),
		)
		return 0, fmt.Errorf("count bookings by user ID %d: %w", userID, err)
	}

	return count, nil
}

func (r *bookingRepository) FindActiveByShowtimeID(ctx context.Context, showtimeID int64) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE showtime_id = $1 AND status IN ('initializing', 'pending', 'confirmed')
		ORDER BY booking_time DESC
	`

	rows, err := r.db.Query(ctx, query, showtimeID)
	if err != nil {
		r.log.Error("Failed to find bookings by showtime ID",
			zap.Error(err),
			zap.Int64("showtime_id", showtimeID),
		)
		return nil, fmt.Errorf("find bookings by showtime ID %d: %w", showtimeID, err)
	}
	defer rows.Close()

	return collectBookings(rows, r.log)
}

// CountSeatOccupancy returns how many bookings currently occupy the seat for
// the showtime, split into processing (initializing/pending) and confirmed.
// Storage failures are surfaced, never reported as zero.
func (r *bookingRepository) CountSeatOccupancy(ctx context.Context, showtimeID, seatID int64) (int64, int64, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status IN ('initializing', 'pending')),
			COUNT(*) FILTER (WHERE status = 'confirmed')
		FROM bookings
		WHERE showtime_id = $1 AND seat_id = $2
	`

	var processing, confirmed int64
	err := r.db.QueryRow(ctx, query, showtimeID, seatID).Scan(&processing, &confirmed)
	if err != nil {
		r.log.Error("Failed to count seat occupancy",
			zap.Error(err),
			zap.Int64("showtime_id", showtimeID),
			zap.Int64("seat_id", seatID),
		)
		return 0, 0, fmt.Errorf("count seat occupancy for showtime %d seat %d: %w", showtimeID, seatID, err)
	}

	return processing, confirmed, nil
}

// UpdateStatusGuarded locks the booking row, passes the current status to
// decide, and persists the returned status when it differs. The row lock is
// the single serialization point between the expiry path and the payment
// reconciler: whichever transaction acquires it first observes the current
// status and wins. decide returning the current status leaves the row
// untouched; decide errors abort the transaction.
func (r *bookingRepository) UpdateStatusGuarded(ctx context.Context, id int64, decide func(current entity.BookingStatus) (entity.BookingStatus, error)) (entity.BookingStatus, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin status transaction",
			zap.Error(err),
			zap.Int64("booking_id", id),
		)
		return "", fmt.Errorf("begin status update for booking %d: %w", id, err)
	}
	defer tx.Rollback(ctx)

	var current entity.BookingStatus
	err = tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err == pgx.ErrNoRows {
		return "", apperr.NotFound("booking %d", id)
	}
	if err != nil {
		r.log.Error("Failed to lock booking row",
			zap.Error(err),
			zap.Int64("booking_id", id),
		)
		return "", fmt.Errorf("lock booking %d: %w", id, err)
	}

	next, err := decide(current)
	if err != nil {
		return current, err
	}

	if next != current {
		if _, err := tx.Exec(ctx, `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`, id, next); err != nil {
			r.log.Error("Failed to update booking status",
				zap.Error(err),
				zap.Int64("booking_id", id),
				zap.String("status", string(next)),
			)
			return current, fmt.Errorf("update booking %d status to %s: %w", id, string(next), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit status transaction",
			zap.Error(err),
			zap.Int64("booking_id", id),
		)
		return current, fmt.Errorf("commit status update for booking %d: %w", id, err)
	}

	return next, nil
}

func collectBookings(rows pgx.Rows, log *zap.Logger) ([]*entity.Booking, error) {
	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}
	// A connection dropped mid-result-set surfaces here, not in Next.
	if err := rows.Err(); err != nil {
		log.Error("Failed to iterate booking rows", zap.Error(err))
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}
	return bookings, nil
}
