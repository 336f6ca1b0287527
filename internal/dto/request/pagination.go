package request

// Booking history pages default to 10 entries and are capped at 100.
const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// PaginatedRequest carries page-based pagination for list endpoints.
type PaginatedRequest struct {
	Page    int `json:"page" validate:"min=1"`
	PerPage int `json:"per_page" validate:"min=1,max=100"`
}

// Offset translates the 1-based page into a row offset.
func (p PaginatedRequest) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit clamps per_page into [1, maxPerPage].
func (p PaginatedRequest) Limit() int {
	if p.PerPage < 1 {
		return defaultPerPage
	}
	if p.PerPage > maxPerPage {
		return maxPerPage
	}
	return p.PerPage
}
