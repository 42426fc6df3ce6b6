package reorder

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"instaplan/models"
)

var dateSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "instaplan_date_syncs_total",
	Help: "The total number of date sync attempts by result",
}, []string{"result"})

// DateUpdater writes a new date to a row of a container
type DateUpdater interface {
	UpdateRowDate(ctx context.Context, credential, containerId, rowId, property string, date models.Date) error
}

// Journal records every date change attempt
type Journal interface {
	Record(ctx context.Context, change models.DateChange) error
}

// Syncer sends date changes upstream, one at a time. A call made while
// another is outstanding is rejected with models.ErrSyncInFlight.
type Syncer struct {
	updater  DateUpdater
	journal  Journal
	now      func() time.Time
	inFlight atomic.Bool
}

type SyncerOption func(*Syncer)

// WithJournal records each attempt, successful or not
func WithJournal(journal Journal) SyncerOption {
	return func(s *Syncer) {
		s.journal = journal
	}
}

func WithSyncClock(now func() time.Time) SyncerOption {
	return func(s *Syncer) {
		s.now = now
	}
}

func NewSyncer(updater DateUpdater, opts ...SyncerOption) *Syncer {
	s := &Syncer{updater: updater, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Busy reports whether a sync is outstanding
func (s *Syncer) Busy() bool {
	return s.inFlight.Load()
}

// Sync writes date to the post's date column in src. It runs to completion
// once started, the flag is released only after the upstream call returns.
func (s *Syncer) Sync(ctx context.Context, src models.Source, post models.Post, date models.Date) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		dateSyncs.WithLabelValues("rejected").Inc()
		log.WithField("post", post.Id).Warn("Date sync already in progress, rejecting")
		return models.ErrSyncInFlight
	}
	defer s.inFlight.Store(false)

	src, err := src.Validate()
	if err != nil {
		dateSyncs.WithLabelValues("invalid").Inc()
		return err
	}
	if date.IsZero() {
		dateSyncs.WithLabelValues("invalid").Inc()
		return &models.ValidationError{Field: "newDate", Message: "new date is required"}
	}

	property := post.DateProperty
	if property == "" {
		property = models.DefaultDateProperty
	}

	err = s.updater.UpdateRowDate(ctx, src.Credential, src.ContainerId, post.Id, property, date)

	change := models.DateChange{
		Id:          uuid.NewString(),
		PostId:      post.Id,
		SourceId:    src.Key(),
		ContainerId: src.ContainerId,
		Property:    property,
		NewDate:     date,
		Status:      models.DateChangeOK,
		CreatedAt:   s.now().UTC(),
	}
	if err != nil {
		change.Status = models.DateChangeFailed
		change.Error = err.Error()
	}
	s.record(ctx, change)

	if err != nil {
		dateSyncs.WithLabelValues("error").Inc()
		log.WithFields(log.Fields{
			"post":   post.Id,
			"source": src.Key(),
			"date":   date.String(),
			"error":  err,
		}).Error("Date sync failed")
		return err
	}

	dateSyncs.WithLabelValues("ok").Inc()
	log.WithFields(log.Fields{
		"post":   post.Id,
		"source": src.Key(),
		"from":   post.Date.String(),
		"to":     date.String(),
	}).Info("Synced post date")
	return nil
}

func (s *Syncer) record(ctx context.Context, change models.DateChange) {
	if s.journal == nil {
		return
	}
	// A journal failure never fails the sync itself
	if err := s.journal.Record(context.WithoutCancel(ctx), change); err != nil {
		log.WithFields(log.Fields{
			"change": change.Id,
			"error":  err,
		}).Warn("Could not journal date change")
	}
}
