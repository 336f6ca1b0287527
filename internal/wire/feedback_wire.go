package wire

import (
	"showtime-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireFeedback(r chi.Router, feedbackHandler *adaptor.FeedbackHandler) {
	// POST /api/bookings/{id}/feedback - Leave feedback on a booking
	r.Post("/api/bookings/{id}/feedback", feedbackHandler.CreateFeedback)

	// GET /api/bookings/{id}/feedback - List feedback for a booking
	r.Get("/api/bookings/{id}/feedback", feedbackHandler.GetBookingFeedback)
}
