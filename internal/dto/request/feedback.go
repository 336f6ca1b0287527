package request

type CreateFeedbackRequest struct {
	UserID  int64  `json:"user_id" validate:"required,gt=0"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}
