package usecase

import (
	"context"

	"showtime-booking/internal/apperr"
	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/dto/request"
	"showtime-booking/internal/dto/response"
	"showtime-booking/pkg/utils"

	"go.uber.org/zap"
)

type FeedbackService interface {
	CreateFeedback(ctx context.Context, bookingID int64, req *request.CreateFeedbackRequest) (*response.FeedbackResponse, error)
	GetBookingFeedback(ctx context.Context, bookingID int64) ([]response.FeedbackResponse, error)
}

type feedbackService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewFeedbackService(repo *repository.Repository, log *zap.Logger) FeedbackService {
	return &feedbackService{
		repo: repo,
		log:  log.With(zap.String("service", "feedback")),
	}
}

func (s *feedbackService) CreateFeedback(ctx context.Context, bookingID int64, req *request.CreateFeedbackRequest) (*response.FeedbackResponse, error) {
	if bookingID <= 0 {
		return nil, apperr.InvalidArgument("booking id must be positive")
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.InvalidArgument("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, apperr.Internal(err, "get booking %d", bookingID)
	}
	if booking == nil {
		return nil, apperr.NotFound("booking %d", bookingID)
	}
	if booking.UserID != req.UserID {
		return nil, apperr.FailedPrecondition("booking %d does not belong to user %d", bookingID, req.UserID)
	}

	feedback := &entity.Feedback{
		BookingID: bookingID,
		UserID:    req.UserID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}

	if err := s.repo.Feedback.Create(ctx, feedback); err != nil {
		return nil, apperr.Internal(err, "create feedback for booking %d", bookingID)
	}

	s.log.Info("Feedback created",
		zap.Int64("feedback_id", feedback.ID),
		zap.Int64("booking_id", bookingID),
		zap.Int("rating", feedback.Rating),
	)

	resp := response.FeedbackToResponse(feedback)
	return &resp, nil
}

func (s *feedbackService) GetBookingFeedback(ctx context.Context, bookingID int64) ([]response.FeedbackResponse, error) {
	if bookingID <= 0 {
		return nil, apperr.InvalidArgument("booking id must be positive")
	}

	feedbacks, err := s.repo.Feedback.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, apperr.Internal(err, "get feedback for booking %d", bookingID)
	}

	return response.FeedbacksToResponse(feedbacks), nil
}
