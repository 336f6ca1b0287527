package usecase

import (
	"context"
	"fmt"
	"time"

	"showtime-booking/internal/apperr"
	"showtime-booking/internal/catalog"
	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/dto/request"
	"showtime-booking/internal/dto/response"
	"showtime-booking/pkg/utils"

	"go.uber.org/zap"
)

// ExpiryScheduler enqueues the delayed job that cancels a booking still
// unconfirmed after the hold window.
type ExpiryScheduler interface {
	ScheduleExpiryCheck(ctx context.Context, bookingID int64) error
}

type BookingService interface {
	// Write paths
	CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	MarkPending(ctx context.Context, bookingID int64) error
	ExpireBooking(ctx context.Context, bookingID int64) error
	ReconcilePayment(ctx context.Context, bookingID int64, outcome entity.PaymentOutcome) error

	// Read paths
	GetBookingByID(ctx context.Context, bookingID int64) (*response.BookingResponse, error)
	GetBookingForUser(ctx context.Context, bookingID, userID int64, status entity.BookingStatus) (*response.BookingResponse, error)
	GetBookingByReference(ctx context.Context, reference string) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, userID int64, req *request.ListUserBookingsRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	GetShowtimeBookings(ctx context.Context, showtimeID int64) ([]response.BookingResponse, error)
}

type bookingService struct {
	repo      *repository.Repository
	gateway   catalog.Gateway
	scheduler ExpiryScheduler
	leadTime  time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewBookingService(
	repo *repository.Repository,
	gateway catalog.Gateway,
	scheduler ExpiryScheduler,
	config *utils.Config,
	log *zap.Logger,
) BookingService {
	return &bookingService{
		repo:      repo,
		gateway:   gateway,
		scheduler: scheduler,
		leadTime:  config.Booking.LeadTime,
		log:       log.With(zap.String("service", "booking")),
		now:       time.Now,
	}
}

// CreateBooking validates seat availability, showtime timing and price, then
// persists the booking in initializing status and schedules its expiry check.
// The availability check and the insert are deliberately not one transaction;
// the store's unique index resolves the losing side of that race.
func (s *bookingService) CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, apperr.InvalidArgument("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	// 1. Reject when any booking occupies the seat for that showtime
	processing, confirmed, err := s.repo.Booking.CountSeatOccupancy(ctx, req.ShowtimeID, req.SeatID)
	if err != nil {
		return nil, apperr.Internal(err, "check seat availability")
	}
	if processing > 0 || confirmed > 0 {
		return nil, apperr.AlreadyExists("seat %d already booked for showtime %d", req.SeatID, req.ShowtimeID)
	}

	// 2. Resolve showtime
	showtime, err := s.gateway.GetShowtime(ctx, req.ShowtimeID)
	if err != nil {
		return nil, fmt.Errorf("resolve showtime %d: %w", req.ShowtimeID, err)
	}

	// 3. Enforce the minimum lead time before the show starts
	bookingTime := s.now()
	deadline := showtime.TimeStart.Add(-s.leadTime)
	if bookingTime.After(deadline) {
		return nil, apperr.DeadlineExceeded("booking closed for showtime %d since %s", req.ShowtimeID, deadline.Format(time.RFC3339))
	}

	// 4. Resolve seat
	if _, err := s.gateway.GetSeat(ctx, req.SeatID); err != nil {
		return nil, fmt.Errorf("resolve seat %d: %w", req.SeatID, err)
	}

	// 5. Resolve price; the caller-supplied amount must match exactly
	price, err := s.gateway.GetPrice(ctx, req.SeatID, req.ShowtimeID)
	if err != nil {
		return nil, fmt.Errorf("resolve price for seat %d showtime %d: %w", req.SeatID, req.ShowtimeID, err)
	}
	if req.Amount != price.Amount || req.Currency != price.Currency {
		return nil, apperr.InvalidArgument("amount %.2f %s does not match price %.2f %s",
			req.Amount, req.Currency, price.Amount, price.Currency)
	}

	// 6. Persist in initializing status
	booking := &entity.Booking{
		Reference:   utils.GenerateBookingReference(),
		UserID:      req.UserID,
		ShowtimeID:  req.ShowtimeID,
		SeatID:      req.SeatID,
		BookingTime: bookingTime,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Status:      entity.BookingStatusInitializing,
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		return nil, err
	}

	// 7. Schedule the expiry check. Losing the enqueue must not lose the
	// booking, so its failure is logged and the creation still succeeds.
	if err := s.scheduler.ScheduleExpiryCheck(ctx, booking.ID); err != nil {
		s.log.Error("Failed to schedule expiry check",
			zap.Error(err),
			zap.Int64("booking_id", booking.ID),
		)
	}

	s.log.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.String("reference", booking.Reference),
		zap.Int64("user_id", booking.UserID),
		zap.Int64("showtime_id", booking.ShowtimeID),
		zap.Int64("seat_id", booking.SeatID),
		zap.Float64("amount", booking.Amount),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

// MarkPending moves a booking from initializing to pending, driven by the
// payment transaction created event.
func (s *bookingService) MarkPending(ctx context.Context, bookingID int64) error {
	_, err := s.repo.Booking.UpdateStatusGuarded(ctx, bookingID, func(current entity.BookingStatus) (entity.BookingStatus, error) {
		if current != entity.BookingStatusInitializing {
			return current, apperr.FailedPrecondition("booking %d is %s, expected %s",
				bookingID, current, entity.BookingStatusInitializing)
		}
		return entity.BookingStatusPending, nil
	})
	if err != nil {
		return err
	}

	s.log.Info("Booking marked pending", zap.Int64("booking_id", bookingID))
	return nil
}

// ExpireBooking cancels a booking whose hold window elapsed while it was still
// initializing. Any other status is a no-op, so redelivered expiry jobs and
// jobs firing after a payment outcome are harmless.
func (s *bookingService) ExpireBooking(ctx context.Context, bookingID int64) error {
	final, err := s.repo.Booking.UpdateStatusGuarded(ctx, bookingID, func(current entity.BookingStatus) (entity.BookingStatus, error) {
		if current == entity.BookingStatusInitializing {
			return entity.BookingStatusCancelled, nil
		}
		return current, nil
	})
	if err != nil {
		return err
	}

	if final == entity.BookingStatusCancelled {
		s.log.Info("Booking expired", zap.Int64("booking_id", bookingID))
	} else {
		s.log.Debug("Expiry check was a no-op",
			zap.Int64("booking_id", bookingID),
			zap.String("status", string(final)),
		)
	}

	return nil
}

// ReconcilePayment applies a transaction completed outcome to the booking
// under the same row lock the expiry path uses. A confirmed booking is never
// revisited; the first terminal transition wins.
func (s *bookingService) ReconcilePayment(ctx context.Context, bookingID int64, outcome entity.PaymentOutcome) error {
	final, err := s.repo.Booking.UpdateStatusGuarded(ctx, bookingID, func(current entity.BookingStatus) (entity.BookingStatus, error) {
		if current == entity.BookingStatusConfirmed {
			return current, nil
		}

		switch outcome {
		case entity.PaymentOutcomeSuccess:
			if current == entity.BookingStatusCancelled {
				// Late success after expiry: the cancellation stands.
				return current, nil
			}
			return entity.BookingStatusConfirmed, nil
		case entity.PaymentOutcomeCancel:
			return entity.BookingStatusCancelled, nil
		case entity.PaymentOutcomePending:
			return current, nil
		default:
			return current, apperr.InvalidArgument("unknown payment outcome %q for booking %d", outcome, bookingID)
		}
	})
	if err != nil {
		return err
	}

	s.log.Info("Payment outcome reconciled",
		zap.Int64("booking_id", bookingID),
		zap.String("outcome", string(outcome)),
		zap.String("status", string(final)),
	)

	return nil
}

func (s *bookingService) GetBookingByID(ctx context.Context, bookingID int64) (*response.BookingResponse, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, apperr.Internal(err, "get booking %d", bookingID)
	}
	if booking == nil {
		return nil, apperr.NotFound("booking %d", bookingID)
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBookingForUser(ctx context.Context, bookingID, userID int64, status entity.BookingStatus) (*response.BookingResponse, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, apperr.Internal(err, "get booking %d", bookingID)
	}
	if booking == nil || booking.UserID != userID || booking.Status != status {
		return nil, apperr.NotFound("booking %d with status %s for user %d", bookingID, status, userID)
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBookingByReference(ctx context.Context, reference string) (*response.BookingResponse, error) {
	booking, err := s.repo.Booking.FindByReference(ctx, reference)
	if err != nil {
		return nil, apperr.Internal(err, "get booking by reference %s", reference)
	}
	if booking == nil {
		return nil, apperr.NotFound("booking with reference %s", reference)
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID int64, req *request.ListUserBookingsRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	if userID <= 0 {
		return nil, apperr.InvalidArgument("user id must be positive")
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.InvalidArgument("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	var status *entity.BookingStatus
	if req.Status != "" {
		st := entity.BookingStatus(req.Status)
		status = &st
	}

	bookings, err := s.repo.Booking.FindByUserID(ctx, userID, status, req.Limit(), req.Offset())
	if err != nil {
		return nil, apperr.Internal(err, "get bookings for user %d", userID)
	}

	total, err := s.repo.Booking.CountByUserID(ctx, userID, status)
	if err != nil {
		return nil, apperr.Internal(err, "count bookings for user %d", userID)
	}

	return response.NewPaginatedResponse(response.BookingsToResponse(bookings), req.Page, req.PerPage, total), nil
}

func (s *bookingService) GetShowtimeBookings(ctx context.Context, showtimeID int64) ([]response.BookingResponse, error) {
	if showtimeID <= 0 {
		return nil, apperr.InvalidArgument("showtime id must be positive")
	}

	bookings, err := s.repo.Booking.FindActiveByShowtimeID(ctx, showtimeID)
	if err != nil {
		return nil, apperr.Internal(err, "get bookings for showtime %d", showtimeID)
	}

	return response.BookingsToResponse(bookings), nil
}
