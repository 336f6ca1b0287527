package repository

import (
	"context"
	"fmt"

	"showtime-booking/internal/data/entity"
	"showtime-booking/pkg/database"

	"go.uber.org/zap"
)

type FeedbackRepository interface {
	Create(ctx context.Context, feedback *entity.Feedback) error
	FindByBookingID(ctx context.Context, bookingID int64) ([]*entity.Feedback, error)
}

type feedbackRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewFeedbackRepository(db database.PgxIface, log *zap.Logger) FeedbackRepository {
	return &feedbackRepository{
		db:  db,
		log: log.With(zap.String("repository", "feedback")),
	}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *entity.Feedback) error {
	query := `
		INSERT INTO feedbacks (booking_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		feedback.BookingID,
		feedback.UserID,
		feedback.Rating,
		feedback.Comment,
	).Scan(&feedback.ID, &feedback.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create feedback",
			zap.Error(err),
			zap.Int64("booking_id", feedback.BookingID),
			zap.Int64("user_id", feedback.UserID),
		)
		return fmt.Errorf("create feedback for booking %d: %w", feedback.BookingID, err)
	}

	return nil
}

func (r *feedbackRepository) FindByBookingID(ctx context.Context, bookingID int64) ([]*entity.Feedback, error) {
	query := `
		SELECT id, booking_id, user_id, rating, comment, created_at
		FROM feedbacks
		WHERE booking_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find feedback by booking ID",
			zap.Error(err),
			zap.Int64("booking_id", bookingID),
		)
		return nil, fmt.Errorf("find feedback by booking ID %d: %w", bookingID, err)
	}
	defer rows.Close()

	var feedbacks []*entity.Feedback
	for rows.Next() {
		var feedback entity.Feedback
		err := rows.Scan(
			&feedback.ID,
			&feedback.BookingID,
			&feedback.UserID,
			&feedback.Rating,
			&feedback.Comment,
			&feedback.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan feedback row", zap.Error(err))
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		feedbacks = append(feedbacks, &feedback)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("Failed to iterate feedback rows",
			zap.Error(err),
			zap.Int64("booking_id", bookingID),
		)
		return nil, fmt.Errorf("iterate feedback rows for booking %d: %w", bookingID, err)
	}

	return feedbacks, nil
}
