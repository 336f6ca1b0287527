package wire

import (
	"showtime-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler) {
	r.Route("/api/bookings", func(r chi.Router) {
		// POST /api/bookings - Create a booking in initializing status
		r.Post("/", bookingHandler.CreateBooking)

		// GET /api/bookings/reference/{reference} - Look up by booking reference
		r.Get("/reference/{reference}", bookingHandler.GetBookingByReference)

		// GET /api/bookings/{id} - Booking details
		r.Get("/{id}", bookingHandler.GetBookingByID)

		// GET /api/bookings/{id}/status - Current lifecycle status only
		r.Get("/{id}/status", bookingHandler.GetBookingStatus)

		// PUT /api/bookings/{id}/pending - Move initializing -> pending
		r.Put("/{id}/pending", bookingHandler.MarkPending)
	})

	// GET /api/users/{userID}/bookings - Booking history, paginated
	r.Get("/api/users/{userID}/bookings", bookingHandler.GetUserBookings)

	// GET /api/showtimes/{showtimeID}/bookings - Active bookings for a showtime
	r.Get("/api/showtimes/{showtimeID}/bookings", bookingHandler.GetShowtimeBookings)
}
