package shared

import "github.com/runoshun/sprintcrew/internal/domain"

// Pagination limits.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is a validated page request.
type Page struct {
	Number int `validate:"min=1"`
	Limit  int `validate:"min=1,max=100"`
}

// NewPage applies defaults to zero values and validates the result.
func NewPage(number, limit int) (Page, error) {
	if number == 0 {
		number = 1
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	p := Page{Number: number, Limit: limit}
	if err := domain.Validate(p); err != nil {
		return Page{}, err
	}
	return p, nil
}

// Pagination describes the slice of a collection that was returned.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// Paginate returns the items of page p and the pagination summary.
func Paginate[T any](items []T, p Page) ([]T, Pagination) {
	total := len(items)
	pages := (total + p.Limit - 1) / p.Limit

	pg := Pagination{
		Total: total,
		Page:  p.Number,
		Limit: p.Limit,
		Pages: pages,
	}
	// Compare before multiplying: a huge page number overflows the offset.
	if p.Number < 1 || p.Number > pages {
		return items[:0], pg
	}

	start := (p.Number - 1) * p.Limit
	end := min(start+p.Limit, total)
	return items[start:end], pg
}
