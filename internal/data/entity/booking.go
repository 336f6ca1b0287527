package entity

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusInitializing BookingStatus = "initializing"
	BookingStatusPending      BookingStatus = "pending"
	BookingStatusConfirmed    BookingStatus = "confirmed"
	BookingStatusCancelled    BookingStatus = "cancelled"
)

// IsProcessing reports whether the booking occupies a seat without being
// confirmed yet.
func (s BookingStatus) IsProcessing() bool {
	return s == BookingStatusInitializing || s == BookingStatusPending
}

// IsTerminal reports whether no further transitions are permitted.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusConfirmed || s == BookingStatusCancelled
}

type Booking struct {
	ID          int64         `db:"id"`
	Reference   string        `db:"reference"`
	UserID      int64         `db:"user_id"`
	ShowtimeID  int64         `db:"showtime_id"`
	SeatID      int64         `db:"seat_id"`
	BookingTime time.Time     `db:"booking_time"`
	Amount      float64       `db:"amount"`
	Currency    string        `db:"currency"`
	Status      BookingStatus `db:"status"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}
