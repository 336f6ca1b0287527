package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"showtime-booking/internal/apperr"
	"showtime-booking/internal/dto/request"
	"showtime-booking/internal/usecase"
	"showtime-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type FeedbackHandler struct {
	service usecase.FeedbackService
	log     *zap.Logger
}

func NewFeedbackHandler(service usecase.FeedbackService, log *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
		log:     log.With(zap.String("handler", "feedback")),
	}
}

// CreateFeedback handles POST /api/bookings/{id}/feedback
func (h *FeedbackHandler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	bookingID := utils.ParseInt64(chi.URLParam(r, "id"))
	if bookingID <= 0 {
		utils.ResponseBadRequest(w, "Booking ID must be a positive integer", nil)
		return
	}

	var req request.CreateFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	feedback, err := h.service.CreateFeedback(r.Context(), bookingID, &req)
	if err != nil {
		h.handleServiceError(w, err, "create feedback")
		return
	}

	utils.ResponseCreated(w, "success", feedback)
}

// GetBookingFeedback handles GET /api/bookings/{id}/feedback
func (h *FeedbackHandler) GetBookingFeedback(w http.ResponseWriter, r *http.Request) {
	bookingID := utils.ParseInt64(chi.URLParam(r, "id"))
	if bookingID <= 0 {
		utils.ResponseBadRequest(w, "Booking ID must be a positive integer", nil)
		return
	}

	feedbacks, err := h.service.GetBookingFeedback(r.Context(), bookingID)
	if err != nil {
		h.handleServiceError(w, err, "get booking feedback")
		return
	}

	utils.ResponseSuccess(w, "success", feedbacks)
}

func (h *FeedbackHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	log := h.log.With(zap.Error(err), zap.String("operation", operation))

	switch {
	case errors.Is(err, apperr.ErrNotFound):
		log.Warn("Resource not found")
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, apperr.ErrInvalidArgument):
		log.Warn("Invalid input")
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, apperr.ErrFailedPrecondition):
		log.Warn("Precondition failed")
		utils.ResponsePreconditionFailed(w, err.Error())

	default:
		log.Error("Internal error")
		utils.ResponseInternalError(w, "Internal server error")
	}
}
