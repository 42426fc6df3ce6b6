package reorder

import (
	"time"

	"instaplan/models"
)

// InterpolateDate returns the date for a post dropped between prev and next.
// Without prev the post lands the day before next, without next the day after
// prev. With both it takes the midpoint truncated to the day.
func InterpolateDate(prev, next *models.Post, now time.Time) models.Date {
	switch {
	case prev == nil && next == nil:
		return models.DateOf(now)
	case prev == nil:
		return next.Date.AddDays(-1)
	case next == nil:
		return prev.Date.AddDays(1)
	}

	mid := (prev.Date.UnixMilli() + next.Date.UnixMilli()) / 2
	return models.DateOf(time.UnixMilli(mid).UTC())
}
