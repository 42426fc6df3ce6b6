package feeds

import (
	"strings"

	"instaplan/models"
	"instaplan/query"
)

// PublishedLabels are the status values marking a post as already published
var PublishedLabels = []string{"posted", "posté"}

// PublishedFilter drops posts whose status says they are already out
type PublishedFilter struct {
	Labels []string
}

func (f *PublishedFilter) Keep(post models.Post) bool {
	labels := f.Labels
	if len(labels) == 0 {
		labels = PublishedLabels
	}
	status := strings.TrimSpace(post.Status)
	for _, label := range labels {
		if strings.EqualFold(status, label) {
			return false
		}
	}
	return true
}

func (f *PublishedFilter) Name() string { return "published" }

// HasMediaFilter drops posts with nothing to display
type HasMediaFilter struct{}

func (f *HasMediaFilter) Keep(post models.Post) bool {
	return len(post.MediaUrls) > 0
}

func (f *HasMediaFilter) Name() string { return "no_media" }

// AccountFilter keeps posts of a single account. An empty account keeps everything.
type AccountFilter struct {
	Account string
}

func (f *AccountFilter) Keep(post models.Post) bool {
	return f.Account == "" || post.Account == f.Account
}

func (f *AccountFilter) Name() string { return "account" }

// SourceFilter keeps posts coming from one source, matched by id or label
type SourceFilter struct {
	Source string
}

func (f *SourceFilter) Keep(post models.Post) bool {
	return f.Source == "" || post.SourceId == f.Source || post.Calendar == f.Source
}

func (f *SourceFilter) Name() string { return "source" }

var _ query.FilterStrategy = (*PublishedFilter)(nil)
var _ query.FilterStrategy = (*HasMediaFilter)(nil)
var _ query.FilterStrategy = (*AccountFilter)(nil)
var _ query.FilterStrategy = (*SourceFilter)(nil)
