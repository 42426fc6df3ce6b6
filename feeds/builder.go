package feeds

import (
	"slices"

	"instaplan/models"
	"instaplan/query"
)

// ViewBuilder produces the displayed sequence: filtered, newest first
type ViewBuilder struct {
	filters []query.FilterStrategy
}

func NewViewBuilder() *ViewBuilder {
	return &ViewBuilder{
		filters: make([]query.FilterStrategy, 0),
	}
}

func (b *ViewBuilder) AddFilter(filter query.FilterStrategy) *ViewBuilder {
	b.filters = append(b.filters, filter)
	return b
}

// Build returns a new slice, the input is left untouched
func (b *ViewBuilder) Build(posts []models.Post) []models.Post {
	view := make([]models.Post, 0, len(posts))
	for _, post := range posts {
		if b.keep(post) {
			view = append(view, post)
		}
	}
	SortPosts(view)
	return view
}

func (b *ViewBuilder) keep(post models.Post) bool {
	for _, filter := range b.filters {
		if !filter.Keep(post) {
			return false
		}
	}
	return true
}

// SortPosts orders posts by date descending. Equal dates keep their
// relative order, so callers control tie-breaks through input order.
func SortPosts(posts []models.Post) {
	slices.SortStableFunc(posts, func(a, b models.Post) int {
		return b.Date.Compare(a.Date.Time)
	})
}

var _ query.Builder = (*ViewBuilder)(nil)
