package usecase

import (
	"context"
	"testing"

	"showtime-booking/internal/apperr"
	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/dto/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFeedbackFixture(t *testing.T) (*bookingFixture, FeedbackService) {
	t.Helper()

	f := newBookingFixture(t)
	svc := NewFeedbackService(f.svc.repo, zap.NewNop())
	return f, svc
}

func TestFeedbackService_CreateFeedback(t *testing.T) {
	ctx := context.Background()

	t.Run("creates feedback for own booking", func(t *testing.T) {
		f, svc := newFeedbackFixture(t)
		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)

		feedback, err := svc.CreateFeedback(ctx, booking.ID, &request.CreateFeedbackRequest{
			UserID:  7,
			Rating:  5,
			Comment: "great seat",
		})
		require.NoError(t, err)
		assert.Equal(t, booking.ID, feedback.BookingID)
		assert.Equal(t, 5, feedback.Rating)
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, svc := newFeedbackFixture(t)

		_, err := svc.CreateFeedback(ctx, 42, &request.CreateFeedbackRequest{UserID: 7, Rating: 4})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("rejects feedback from another user", func(t *testing.T) {
		f, svc := newFeedbackFixture(t)
		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)

		_, err = svc.CreateFeedback(ctx, booking.ID, &request.CreateFeedbackRequest{UserID: 8, Rating: 4})
		assert.ErrorIs(t, err, apperr.ErrFailedPrecondition)
	})

	t.Run("rejects out-of-range rating", func(t *testing.T) {
		f, svc := newFeedbackFixture(t)
		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)

		_, err = svc.CreateFeedback(ctx, booking.ID, &request.CreateFeedbackRequest{UserID: 7, Rating: 6})
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	})
}

func TestFeedbackService_GetBookingFeedback(t *testing.T) {
	ctx := context.Background()
	f, svc := newFeedbackFixture(t)

	booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
	require.NoError(t, err)
	require.NoError(t, f.svc.ReconcilePayment(ctx, booking.ID, entity.PaymentOutcomeSuccess))

	for rating := 3; rating <= 5; rating++ {
		_, err := svc.CreateFeedback(ctx, booking.ID, &request.CreateFeedbackRequest{UserID: 7, Rating: rating})
		require.NoError(t, err)
	}

	feedbacks, err := svc.GetBookingFeedback(ctx, booking.ID)
	require.NoError(t, err)
	assert.Len(t, feedbacks, 3)

	empty, err := svc.GetBookingFeedback(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
