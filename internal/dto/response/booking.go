package response

import (
	"time"

	"showtime-booking/internal/data/entity"
)

type BookingResponse struct {
	ID          int64                `json:"id"`
	Reference   string               `json:"reference"`
	UserID      int64                `json:"user_id"`
	ShowtimeID  int64                `json:"showtime_id"`
	SeatID      int64                `json:"seat_id"`
	BookingTime time.Time            `json:"booking_time"`
	Amount      float64              `json:"amount"`
	Currency    string               `json:"currency"`
	Status      entity.BookingStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
}

func BookingToResponse(booking *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:          booking.ID,
		Reference:   booking.Reference,
		UserID:      booking.UserID,
		ShowtimeID:  booking.ShowtimeID,
		SeatID:      booking.SeatID,
		BookingTime: booking.BookingTime,
		Amount:      booking.Amount,
		Currency:    booking.Currency,
		Status:      booking.Status,
		CreatedAt:   booking.CreatedAt,
	}
}

func BookingsToResponse(bookings []*entity.Booking) []BookingResponse {
	responses := make([]BookingResponse, len(bookings))
	for i, booking := range bookings {
		responses[i] = BookingToResponse(booking)
	}
	return responses
}
