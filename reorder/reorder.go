package reorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"instaplan/models"
)

// ErrSamePosition is returned when a post is dropped where it already is
var ErrSamePosition = errors.New("post dropped at its own position")

// Reorderer turns a drag within the displayed sequence into a date change
type Reorderer struct {
	sources []models.Source
	syncer  *Syncer
	now     func() time.Time
}

func NewReorderer(sources []models.Source, syncer *Syncer) *Reorderer {
	return &Reorderer{sources: sources, syncer: syncer, now: time.Now}
}

// FindSource returns the configured source owning post. The source id is
// matched across every source first, the calendar label only when no id
// matches.
func (r *Reorderer) FindSource(post models.Post) (models.Source, error) {
	if post.SourceId != "" {
		if src, ok := lo.Find(r.sources, func(s models.Source) bool {
			return sourceKey(s) == post.SourceId
		}); ok {
			return src, nil
		}
	}
	if post.Calendar != "" {
		if src, ok := lo.Find(r.sources, func(s models.Source) bool {
			return s.DisplayLabel() == post.Calendar
		}); ok {
			return src, nil
		}
	}
	return models.Source{}, fmt.Errorf("%w: %q", models.ErrSourceNotFound, lo.Ternary(post.SourceId != "", post.SourceId, post.Calendar))
}

// sourceKey is the key posts of s are tagged with, which uses the normalized
// container id when s has no explicit id.
func sourceKey(s models.Source) string {
	if valid, err := s.Validate(); err == nil {
		return valid.Key()
	}
	return s.Key()
}

// Move drops the post at index from onto index to of view. Neighbours are
// read from view as it is before the move. The returned post carries the new
// date, the caller refreshes from the source to see the authoritative state.
func (r *Reorderer) Move(ctx context.Context, view []models.Post, from, to int) (models.Post, error) {
	if from < 0 || from >= len(view) {
		return models.Post{}, &models.ValidationError{Field: "from", Message: fmt.Sprintf("position %d is outside the feed", from)}
	}
	if to < 0 || to > len(view) {
		return models.Post{}, &models.ValidationError{Field: "to", Message: fmt.Sprintf("position %d is outside the feed", to)}
	}
	if from == to {
		return models.Post{}, ErrSamePosition
	}

	post := view[from]
	src, err := r.FindSource(post)
	if err != nil {
		return models.Post{}, err
	}

	var prev, next *models.Post
	if to > 0 {
		prev = &view[to-1]
	}
	if to < len(view) {
		next = &view[to]
	}
	date := InterpolateDate(prev, next, r.now())

	log.WithFields(log.Fields{
		"post": post.Id,
		"from": from,
		"to":   to,
		"date": date.String(),
	}).Debug("Moving post")

	if err := r.syncer.Sync(ctx, src, post, date); err != nil {
		return models.Post{}, err
	}
	return post.WithDate(date), nil
}
