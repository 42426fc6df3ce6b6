package aggregator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instaplan/feeds"
	"instaplan/models"
)

var (
	containerA = strings.Repeat("a", 32)
	containerB = strings.Repeat("b", 32)
	containerC = strings.Repeat("c", 32)
)

type fakeRows struct {
	mu      sync.Mutex
	rows    map[string][]models.RawRow
	errs    map[string]error
	delays  map[string]time.Duration
	queried []string
}

func (f *fakeRows) QueryContainer(ctx context.Context, credential, containerId string) ([]models.RawRow, error) {
	if d, ok := f.delays[containerId]; ok {
		time.Sleep(d)
	}
	f.mu.Lock()
	f.queried = append(f.queried, containerId)
	f.mu.Unlock()

	if err, ok := f.errs[containerId]; ok {
		return nil, err
	}
	return f.rows[containerId], nil
}

func row(id, day, account string) models.RawRow {
	props := []models.Property{
		{Name: "Titre", Type: models.PropertyTitle, Text: "Post " + id},
		{Name: "Date", Type: models.PropertyDate, Date: day},
		{Name: "Contenu", Type: models.PropertyFiles, Files: []models.MediaRef{{FileUrl: "https://files/" + id + ".jpg"}}},
	}
	if account != "" {
		props = append(props, models.Property{Name: "Compte", Type: models.PropertySelect, Text: account})
	}
	return models.RawRow{Id: id, Properties: props}
}

func ids(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Id)
	}
	return out
}

func newAggregator(rows *fakeRows) *Aggregator {
	return New(rows, feeds.NewNormalizer(feeds.WithClock(func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	})))
}

func TestFetchSourceTagsPosts(t *testing.T) {
	rows := &fakeRows{rows: map[string][]models.RawRow{
		containerA: {
			row("r1", "2024-02-01", "brand"),
			{Id: "no-media", Properties: []models.Property{{Name: "Titre", Type: models.PropertyTitle, Text: "x"}}},
			row("r2", "2024-03-01", ""),
		},
	}}

	src := models.Source{Id: "main", Label: "Main", ContainerId: containerA, Credential: "ntn_x"}
	posts, err := newAggregator(rows).FetchSource(context.Background(), src)
	require.NoError(t, err)

	// response order, not sorted
	assert.Equal(t, []string{"r1", "r2"}, ids(posts))
	for _, p := range posts {
		assert.Equal(t, "main", p.SourceId)
		assert.Equal(t, "Main", p.Calendar)
	}
}

func TestFetchSourceValidatesBeforeQuerying(t *testing.T) {
	rows := &fakeRows{}
	_, err := newAggregator(rows).FetchSource(context.Background(), models.Source{ContainerId: containerA, Credential: "bad"})

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "credential", verr.Field)
	assert.Empty(t, rows.queried)
}

func TestFetchSourcePropagatesUpstreamError(t *testing.T) {
	rows := &fakeRows{errs: map[string]error{
		containerA: &models.UpstreamError{Status: 404, Message: "not found"},
	}}
	_, err := newAggregator(rows).FetchSource(context.Background(), models.Source{ContainerId: containerA, Credential: "ntn_x"})

	var upstream *models.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 404, upstream.Status)
}

func TestFetchBatchMergesByDate(t *testing.T) {
	rows := &fakeRows{
		rows: map[string][]models.RawRow{
			containerA: {row("a-mar", "2024-03-01", "one"), row("a-feb", "2024-02-01", "two")},
			containerB: {row("b-feb", "2024-02-15", "one")},
		},
		// the first source finishes last
		delays: map[string]time.Duration{containerA: 20 * time.Millisecond},
	}

	sources, err := ResolveBatch("ntn_default", "", []BatchSource{
		{ContainerId: containerA, Label: "Perso"},
		{ContainerId: containerB, Label: "Client"},
	})
	require.NoError(t, err)

	posts, meta, err := newAggregator(rows).FetchBatch(context.Background(), sources)
	require.NoError(t, err)

	assert.Equal(t, []string{"a-mar", "b-feb", "a-feb"}, ids(posts))
	assert.Equal(t, "Perso", posts[0].Calendar)
	assert.Equal(t, "Client", posts[1].Calendar)
	assert.Equal(t, 3, meta.Total)
	assert.Equal(t, []string{"one", "two"}, meta.Accounts)
	assert.Equal(t, []string{"Perso", "Client"}, meta.Calendars)
}

func TestFetchBatchTiesKeepSourceThenRowOrder(t *testing.T) {
	rows := &fakeRows{
		rows: map[string][]models.RawRow{
			containerA: {row("a1", "2024-01-01", ""), row("a2", "2024-01-01", "")},
			containerB: {row("b1", "2024-01-01", "")},
		},
		delays: map[string]time.Duration{containerA: 20 * time.Millisecond},
	}

	sources, err := ResolveBatch("ntn_default", "", []BatchSource{{ContainerId: containerA}, {ContainerId: containerB}})
	require.NoError(t, err)

	posts, _, err := newAggregator(rows).FetchBatch(context.Background(), sources)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "b1"}, ids(posts))
}

func TestFetchBatchFailsWhole(t *testing.T) {
	rows := &fakeRows{
		rows: map[string][]models.RawRow{
			containerA: {row("a1", "2024-01-01", "")},
		},
		errs: map[string]error{containerB: &models.NetworkError{Err: errors.New("connection refused")}},
	}

	sources, err := ResolveBatch("ntn_default", "", []BatchSource{{ContainerId: containerA}, {ContainerId: containerB}})
	require.NoError(t, err)

	posts, meta, err := newAggregator(rows).FetchBatch(context.Background(), sources)
	var network *models.NetworkError
	require.ErrorAs(t, err, &network)
	assert.Nil(t, posts)
	assert.Zero(t, meta.Total)
}

func TestFetchBatchRejectsInvalidSourceWithoutQuerying(t *testing.T) {
	rows := &fakeRows{rows: map[string][]models.RawRow{containerA: {row("a1", "2024-01-01", "")}}}

	sources := []models.Source{
		{ContainerId: containerA, Credential: "ntn_x"},
		{ContainerId: "", Credential: "ntn_x"},
	}
	posts, _, err := newAggregator(rows).FetchBatch(context.Background(), sources)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Nil(t, posts)
	assert.Empty(t, rows.queried)
}

func TestResolveBatch(t *testing.T) {
	tests := []struct {
		name        string
		credential  string
		container   string
		items       []BatchSource
		wantErr     string
		wantSources []models.Source
	}{
		{
			name:    "empty list",
			items:   nil,
			wantErr: "sources must be a non-empty list",
		},
		{
			name:       "falls back to request credential and container",
			credential: "ntn_default",
			container:  containerC,
			items:      []BatchSource{{}, {ContainerId: containerA, Credential: "secret_own", Label: "Own"}},
			wantSources: []models.Source{
				{Id: containerC, Label: containerC, ContainerId: containerC, Credential: "ntn_default"},
				{Id: "Own", Label: "Own", ContainerId: containerA, Credential: "secret_own"},
			},
		},
		{
			name:       "strips hyphens",
			credential: "ntn_default",
			items:      []BatchSource{{ContainerId: "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", Label: "L"}},
			wantSources: []models.Source{
				{Id: "L", Label: "L", ContainerId: containerA, Credential: "ntn_default"},
			},
		},
		{
			name:       "missing container after fallback",
			credential: "ntn_default",
			items:      []BatchSource{{ContainerId: containerA}, {}},
			wantErr:    "source 1: container id is required",
		},
		{
			name:    "missing credential after fallback",
			items:   []BatchSource{{ContainerId: containerA}},
			wantErr: "source 0: credential is required",
		},
		{
			name:       "bad credential prefix",
			credential: "ntn_default",
			items:      []BatchSource{{ContainerId: containerA, Credential: "pat_123"}},
			wantErr:    "source 0: invalid credential format, expected ntn_ or secret_...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources, err := ResolveBatch(tt.credential, tt.container, tt.items)
			if tt.wantErr != "" {
				var verr *models.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantErr, verr.Message)
				assert.Nil(t, sources)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSources, sources)
		})
	}
}

func TestFetchSourcesSkipsFailingSources(t *testing.T) {
	rows := &fakeRows{
		rows: map[string][]models.RawRow{
			containerA: {row("a1", "2024-01-01", "one")},
			containerC: {row("c1", "2024-01-05", "")},
		},
		errs: map[string]error{containerB: &models.UpstreamError{Status: 401, Message: "invalid or expired credential"}},
	}

	sources := []models.Source{
		{Id: "a", ContainerId: containerA, Credential: "ntn_x"},
		{Id: "b", ContainerId: containerB, Credential: "ntn_x"},
		{Id: "c", Label: "Third", ContainerId: containerC, Credential: "ntn_x"},
	}
	posts, meta := newAggregator(rows).FetchSources(context.Background(), sources)

	assert.Equal(t, []string{"c1", "a1"}, ids(posts))
	assert.Equal(t, 2, meta.Total)
	assert.Equal(t, []string{"one"}, meta.Accounts)
	assert.Equal(t, []string{"a", "b", "Third"}, meta.Calendars)
}

func TestBuildMeta(t *testing.T) {
	posts := []models.Post{{Account: "b"}, {Account: ""}, {Account: "a"}, {Account: "b"}}

	meta := BuildMeta(posts, nil)
	assert.Equal(t, 4, meta.Total)
	assert.Equal(t, []string{"b", "a"}, meta.Accounts)
	assert.Nil(t, meta.Calendars)

	meta = BuildMeta(nil, []string{"x", "", "x", "y"})
	assert.Equal(t, 0, meta.Total)
	assert.Empty(t, meta.Accounts)
	assert.Equal(t, []string{"x", "y"}, meta.Calendars)
}
