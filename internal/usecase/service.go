package usecase

import (
	"showtime-booking/internal/catalog"
	"showtime-booking/internal/data/repository"
	"showtime-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Booking  BookingService
	Feedback FeedbackService
}

func NewService(
	repo *repository.Repository,
	gateway catalog.Gateway,
	scheduler ExpiryScheduler,
	config *utils.Config,
	log *zap.Logger,
) *Service {
	return &Service{
		Booking:  NewBookingService(repo, gateway, scheduler, config, log),
		Feedback: NewFeedbackService(repo, log),
	}
}
