package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"instaplan/feeds"
	"instaplan/models"
)

var aggregations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "instaplan_aggregations_total",
	Help: "The total number of aggregation passes by mode and result",
}, []string{"mode", "result"})

// RowSource reads the raw rows of a container
type RowSource interface {
	QueryContainer(ctx context.Context, credential, containerId string) ([]models.RawRow, error)
}

// Aggregator fetches sources and merges their posts into one date sorted list
type Aggregator struct {
	rows       RowSource
	normalizer *feeds.Normalizer
}

func New(rows RowSource, normalizer *feeds.Normalizer) *Aggregator {
	if normalizer == nil {
		normalizer = feeds.NewNormalizer()
	}
	return &Aggregator{rows: rows, normalizer: normalizer}
}

// FetchSource queries one source and returns its eligible posts tagged with
// the source, in response order.
func (a *Aggregator) FetchSource(ctx context.Context, src models.Source) ([]models.Post, error) {
	src, err := src.Validate()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := a.rows.QueryContainer(ctx, src.Credential, src.ContainerId)
	if err != nil {
		return nil, err
	}

	posts := a.normalizer.NormalizeAll(rows)
	for i := range posts {
		posts[i].SourceId = src.Key()
		posts[i].Calendar = src.DisplayLabel()
	}

	log.WithFields(log.Fields{
		"source":  src.Key(),
		"rows":    len(rows),
		"posts":   len(posts),
		"latency": time.Since(start),
	}).Debug("Fetched source")

	return posts, nil
}

// FetchSources fetches every source concurrently. A failing source is logged
// and contributes nothing, the others are still returned merged and sorted.
func (a *Aggregator) FetchSources(ctx context.Context, sources []models.Source) ([]models.Post, models.Meta) {
	results := make([][]models.Post, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			posts, err := a.FetchSource(ctx, src)
			if err != nil {
				aggregations.WithLabelValues("source", "error").Inc()
				log.WithFields(log.Fields{
					"source": src.Key(),
					"error":  err,
				}).Warn("Skipping source")
				return nil
			}
			results[i] = posts
			return nil
		})
	}
	_ = g.Wait()

	posts := merge(results)
	aggregations.WithLabelValues("lenient", "ok").Inc()
	return posts, BuildMeta(posts, labels(sources))
}

// BatchSource is one entry of a batch request. Empty fields fall back to the
// request level credential and container id.
type BatchSource struct {
	ContainerId string `json:"containerId"`
	Credential  string `json:"credential,omitempty"`
	Label       string `json:"label,omitempty"`
}

// ResolveBatch applies the fallbacks and validates every entry. Nothing is
// returned unless all entries are valid.
func ResolveBatch(defaultCredential, defaultContainer string, items []BatchSource) ([]models.Source, error) {
	if len(items) == 0 {
		return nil, &models.ValidationError{Field: "sources", Message: "sources must be a non-empty list"}
	}

	sources := make([]models.Source, 0, len(items))
	for i, item := range items {
		src := models.Source{
			Label:       strings.TrimSpace(item.Label),
			ContainerId: lo.Ternary(strings.TrimSpace(item.ContainerId) != "", item.ContainerId, defaultContainer),
			Credential:  lo.Ternary(strings.TrimSpace(item.Credential) != "", item.Credential, defaultCredential),
		}

		valid, err := src.Validate()
		if err != nil {
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				return nil, &models.ValidationError{
					Field:   verr.Field,
					Message: fmt.Sprintf("source %d: %s", i, verr.Message),
				}
			}
			return nil, err
		}
		if valid.Label == "" {
			valid.Label = valid.ContainerId
		}
		valid.Id = valid.Label
		sources = append(sources, valid)
	}
	return sources, nil
}

// FetchBatch fetches all sources concurrently. The first failure fails the
// whole call and no posts are returned.
func (a *Aggregator) FetchBatch(ctx context.Context, sources []models.Source) ([]models.Post, models.Meta, error) {
	if len(sources) == 0 {
		return nil, models.Meta{}, &models.ValidationError{Field: "sources", Message: "sources must be a non-empty list"}
	}
	for _, src := range sources {
		if _, err := src.Validate(); err != nil {
			return nil, models.Meta{}, err
		}
	}

	results := make([][]models.Post, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			posts, err := a.FetchSource(ctx, src)
			if err != nil {
				return err
			}
			results[i] = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		aggregations.WithLabelValues("batch", "error").Inc()
		log.WithFields(log.Fields{
			"sources": len(sources),
			"error":   err,
		}).Error("Batch aggregation failed")
		return nil, models.Meta{}, err
	}

	posts := merge(results)
	meta := BuildMeta(posts, labels(sources))

	aggregations.WithLabelValues("batch", "ok").Inc()
	log.WithFields(log.Fields{
		"sources": len(sources),
		"posts":   meta.Total,
	}).Info("Batch aggregation done")

	return posts, meta, nil
}

// BuildMeta counts the posts and lists distinct accounts in order of first
// appearance. Calendars are the distinct labels given.
func BuildMeta(posts []models.Post, calendars []string) models.Meta {
	accounts := lo.Uniq(lo.FilterMap(posts, func(p models.Post, _ int) (string, bool) {
		return p.Account, p.Account != ""
	}))

	meta := models.Meta{
		Total:    len(posts),
		Accounts: accounts,
	}
	if len(calendars) > 0 {
		meta.Calendars = lo.Uniq(lo.Compact(calendars))
	}
	return meta
}

// merge concatenates per-source results in source order then sorts them, so
// ties keep source-then-row order whatever the completion order was.
func merge(results [][]models.Post) []models.Post {
	posts := lo.Flatten(results)
	feeds.SortPosts(posts)
	return posts
}

func labels(sources []models.Source) []string {
	return lo.Map(sources, func(s models.Source, _ int) string {
		return s.DisplayLabel()
	})
}
