package entity

import (
	"time"
)

type Feedback struct {
	ID        int64     `db:"id"`
	BookingID int64     `db:"booking_id"`
	UserID    int64     `db:"user_id"`
	Rating    int       `db:"rating"`
	Comment   string    `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
}
