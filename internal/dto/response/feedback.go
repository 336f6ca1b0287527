package response

import (
	"time"

	"showtime-booking/internal/data/entity"
)

type FeedbackResponse struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"booking_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func FeedbacksToResponse(feedbacks []*entity.Feedback) []FeedbackResponse {
	out := make([]FeedbackResponse, 0, len(feedbacks))
	for _, f := range feedbacks {
		out = append(out, FeedbackToResponse(f))
	}
	return out
}

func FeedbackToResponse(feedback *entity.Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:        feedback.ID,
		BookingID: feedback.BookingID,
		UserID:    feedback.UserID,
		Rating:    feedback.Rating,
		Comment:   feedback.Comment,
		CreatedAt: feedback.CreatedAt,
	}
}
