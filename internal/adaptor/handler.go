package adaptor

import (
	"showtime-booking/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Booking  *BookingHandler
	Feedback *FeedbackHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking:  NewBookingHandler(service.Booking, log),
		Feedback: NewFeedbackHandler(service.Feedback, log),
	}
}
