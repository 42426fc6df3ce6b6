package feeds

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"instaplan/models"
	"instaplan/query"
)

var (
	rowsNormalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "instaplan_rows_normalized_total",
		Help: "The total number of source rows turned into posts",
	})

	rowsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "instaplan_rows_dropped_total",
		Help: "The total number of source rows dropped by a filter",
	}, []string{"filter"})
)

// Normalizer turns raw rows into posts
type Normalizer struct {
	resolver *Resolver
	filters  []query.FilterStrategy
	now      func() time.Time
}

// NormalizerOption configures a Normalizer
type NormalizerOption func(*Normalizer)

// WithResolver replaces the default column resolver
func WithResolver(r *Resolver) NormalizerOption {
	return func(n *Normalizer) {
		n.resolver = r
	}
}

// WithClock sets the clock used for the default date
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) {
		n.now = now
	}
}

// WithFilter adds a filter on top of the media and published status filters
func WithFilter(filter query.FilterStrategy) NormalizerOption {
	return func(n *Normalizer) {
		n.filters = append(n.filters, filter)
	}
}

func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		resolver: NewResolver(),
		filters:  []query.FilterStrategy{&HasMediaFilter{}, &PublishedFilter{}},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts one row. It returns false when the row has no media
// or is already published.
func (n *Normalizer) Normalize(row models.RawRow) (models.Post, bool) {
	post := n.convert(row)

	for _, filter := range n.filters {
		if !filter.Keep(post) {
			rowsDropped.WithLabelValues(filter.Name()).Inc()
			log.WithFields(log.Fields{
				"row":    row.Id,
				"filter": filter.Name(),
			}).Debug("Dropping row")
			return models.Post{}, false
		}
	}

	rowsNormalized.Inc()
	return post, true
}

// NormalizeAll converts rows in order, skipping filtered ones
func (n *Normalizer) NormalizeAll(rows []models.RawRow) []models.Post {
	posts := make([]models.Post, 0, len(rows))
	for _, row := range rows {
		if post, ok := n.Normalize(row); ok {
			posts = append(posts, post)
		}
	}
	return posts
}

func (n *Normalizer) convert(row models.RawRow) models.Post {
	post := models.Post{
		Id:           row.Id,
		Title:        placeholderTitle(row.Id),
		Date:         models.DateOf(n.now()),
		DateProperty: models.DefaultDateProperty,
	}

	if prop, ok := n.resolver.Resolve(row, FieldTitle); ok && strings.TrimSpace(prop.Text) != "" {
		post.Title = strings.TrimSpace(prop.Text)
	}

	if prop, ok := n.resolver.Resolve(row, FieldDate); ok {
		if prop.Type == models.PropertyDate {
			post.DateProperty = prop.Name
		}
		raw := prop.Date
		if raw == "" {
			raw = prop.Text
		}
		if date, err := models.ParseDate(raw); err == nil {
			post.Date = date
		}
	}

	var refs []models.MediaRef
	if prop, ok := n.resolver.Resolve(row, FieldMedia); ok {
		refs = mediaRefs(prop)
	}
	post.MediaUrls = make([]string, 0, len(refs))
	for _, ref := range refs {
		post.MediaUrls = append(post.MediaUrls, ref.Url())
	}

	if prop, ok := n.resolver.Resolve(row, FieldCaption); ok {
		post.Caption = prop.Text
	}

	var explicitType string
	if prop, ok := n.resolver.Resolve(row, FieldType); ok {
		explicitType = prop.Text
	}
	post.MediaType = Classify(refs, explicitType)

	if prop, ok := n.resolver.Resolve(row, FieldStatus); ok {
		post.Status = strings.TrimSpace(prop.Text)
	}

	if prop, ok := n.resolver.Resolve(row, FieldAccount); ok {
		post.Account = strings.TrimSpace(prop.Text)
	}

	return post
}

// mediaRefs keeps the references that carry a url. A url column counts as
// one external reference.
func mediaRefs(prop models.Property) []models.MediaRef {
	refs := make([]models.MediaRef, 0, len(prop.Files))
	for _, ref := range prop.Files {
		if ref.Url() != "" {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 && prop.Type == models.PropertyUrl && prop.Text != "" {
		refs = append(refs, models.MediaRef{ExternalUrl: prop.Text})
	}
	return refs
}

func placeholderTitle(id string) string {
	fragment := strings.ReplaceAll(id, "-", "")
	if runes := []rune(fragment); len(runes) > 6 {
		fragment = string(runes[len(runes)-6:])
	}
	if fragment == "" {
		return "Untitled post"
	}
	return "Untitled post " + fragment
}
