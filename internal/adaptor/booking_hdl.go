package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"showtime-booking/internal/apperr"
	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/dto/request"
	"showtime-booking/internal/usecase"
	"showtime-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "success", booking)
}

// GetBookingByID handles GET /api/bookings/{id}. With user_id and status
// query parameters the booking must additionally belong to that user and be
// in that status.
func (h *BookingHandler) GetBookingByID(w http.ResponseWriter, r *http.Request) {
	bookingID := utils.ParseInt64(chi.URLParam(r, "id"))
	if bookingID <= 0 {
		utils.ResponseBadRequest(w, "Booking ID must be a positive integer", nil)
		return
	}

	query := r.URL.Query()
	userID := utils.ParseInt64(query.Get("user_id"))
	status := query.Get("status")

	if userID > 0 && status != "" {
		booking, err := h.service.GetBookingForUser(r.Context(), bookingID, userID, entity.BookingStatus(status))
		if err != nil {
			h.handleServiceError(w, err, "get booking for user")
			return
		}
		utils.ResponseSuccess(w, "success", booking)
		return
	}

	booking, err := h.service.GetBookingByID(r.Context(), bookingID)
	if err != nil {
		h.handleServiceError(w, err, "get booking by ID")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// GetBookingStatus handles GET /api/bookings/{id}/status
func (h *BookingHandler) GetBookingStatus(w http.ResponseWriter, r *http.Request) {
	bookingID := utils.ParseInt64(chi.URLParam(r, "id"))
	if bookingID <= 0 {
		utils.ResponseBadRequest(w, "Booking ID must be a positive integer", nil)
		return
	}

	booking, err := h.service.GetBookingByID(r.Context(), bookingID)
	if err != nil {
		h.handleServiceError(w, err, "get booking status")
		return
	}

	utils.ResponseSuccess(w, "success", map[string]string{"status": string(booking.Status)})
}

// MarkPending handles PUT /api/bookings/{id}/pending
func (h *BookingHandler) MarkPending(w http.ResponseWriter, r *http.Request) {
	bookingID := utils.ParseInt64(chi.URLParam(r, "id"))
	if bookingID <= 0 {
		utils.ResponseBadRequest(w, "Booking ID must be a positive integer", nil)
		return
	}

	if err := h.service.MarkPending(r.Context(), bookingID); err != nil {
		h.handleServiceError(w, err, "mark booking pending")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// GetBookingByReference handles GET /api/bookings/reference/{reference}
func (h *BookingHandler) GetBookingByReference(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		utils.ResponseBadRequest(w, "Booking reference is required", nil)
		return
	}

	booking, err := h.service.GetBookingByReference(r.Context(), reference)
	if err != nil {
		h.handleServiceError(w, err, "get booking by reference")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// GetUserBookings handles GET /api/users/{userID}/bookings
func (h *BookingHandler) GetUserBookings(w http.ResponseWriter, r *http.Request) {
	userID := utils.ParseInt64(chi.URLParam(r, "userID"))
	if userID <= 0 {
		utils.ResponseBadRequest(w, "User ID must be a positive integer", nil)
		return
	}

	query := r.URL.Query()
	req := &request.ListUserBookingsRequest{
		PaginatedRequest: request.PaginatedRequest{
			Page:    utils.ParseInt(query.Get("page"), 1),
			PerPage: utils.ParseInt(query.Get("per_page"), 10),
		},
		Status: query.Get("status"),
	}

	bookings, err := h.service.GetUserBookings(r.Context(), userID, req)
	if err != nil {
		h.handleServiceError(w, err, "get user bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// GetShowtimeBookings handles GET /api/showtimes/{showtimeID}/bookings
func (h *BookingHandler) GetShowtimeBookings(w http.ResponseWriter, r *http.Request) {
	showtimeID := utils.ParseInt64(chi.URLParam(r, "showtimeID"))
	if showtimeID <= 0 {
		utils.ResponseBadRequest(w, "Showtime ID must be a positive integer", nil)
		return
	}

	bookings, err := h.service.GetShowtimeBookings(r.Context(), showtimeID)
	if err != nil {
		h.handleServiceError(w, err, "get showtime bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

func (h *BookingHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	log := h.log.With(zap.Error(err), zap.String("operation", operation))

	switch {
	case errors.Is(err, apperr.ErrNotFound):
		log.Warn("Resource not found")
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, apperr.ErrAlreadyExists):
		log.Warn("Seat already booked")
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, apperr.ErrInvalidArgument):
		log.Warn("Invalid input")
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, apperr.ErrDeadlineExceeded):
		log.Warn("Booking window closed")
		utils.ResponseUnprocessable(w, err.Error())

	case errors.Is(err, apperr.ErrFailedPrecondition):
		log.Warn("Invalid state transition")
		utils.ResponsePreconditionFailed(w, err.Error())

	default:
		log.Error("Internal error")
		utils.ResponseInternalError(w, "Internal server error")
	}
}
