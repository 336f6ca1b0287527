package request

type CreateBookingRequest struct {
	UserID     int64   `json:"user_id" validate:"required,gt=0"`
	ShowtimeID int64   `json:"showtime_id" validate:"required,gt=0"`
	SeatID     int64   `json:"seat_id" validate:"required,gt=0"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Currency   string  `json:"currency" validate:"required,len=3"`
}

type ListUserBookingsRequest struct {
	PaginatedRequest
	Status string `json:"status" validate:"omitempty,oneof=initializing pending confirmed cancelled"`
}
