package repository

import (
	"showtime-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Booking  BookingRepository
	Feedback FeedbackRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Booking:  NewBookingRepository(db, log),
		Feedback: NewFeedbackRepository(db, log),
	}
}
