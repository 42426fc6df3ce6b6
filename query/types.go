package query

import (
	"instaplan/models"
)

// FilterStrategy decides whether a post stays in a result
type FilterStrategy interface {
	// Keep reports whether the post passes the filter
	Keep(post models.Post) bool
	// Name identifies the filter in logs and metrics
	Name() string
}

// Builder produces an ordered view from a set of posts
type Builder interface {
	Build(posts []models.Post) []models.Post
}
