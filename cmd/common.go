package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"instaplan/config"
	"instaplan/db"
	"instaplan/feeds"
	"instaplan/models"
	"instaplan/notion"
	"instaplan/reorder"
)

func sourceFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:    "source",
		Aliases: []string{"s"},
		Usage:   "Source id or label, repeat for several. All configured sources when empty",
		EnvVars: []string{"INSTAPLAN_SOURCE"},
	}
}

func calendarFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "calendar",
		Usage:   "Only show posts of this calendar, by source id or label. Other sources are still fetched",
		EnvVars: []string{"INSTAPLAN_CALENDAR"},
	}
}

func accountFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "account",
		Aliases: []string{"a"},
		Usage:   "Only show posts of this account",
		EnvVars: []string{"INSTAPLAN_ACCOUNT"},
	}
}

func loadConfig(ctx *cli.Context) (*config.TomlConfig, error) {
	path := ctx.String("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"config":  path,
		"sources": len(cfg.Sources),
	}).Debug("Loaded configuration")
	return cfg, nil
}

func newClient(cfg *config.TomlConfig) *notion.Client {
	opts := []notion.ClientOption{
		notion.WithPageSize(cfg.Notion.PageSize),
	}
	if cfg.Notion.BaseUrl != "" {
		opts = append(opts, notion.WithBaseUrl(cfg.Notion.BaseUrl))
	}
	if cfg.Notion.Version != "" {
		opts = append(opts, notion.WithVersion(cfg.Notion.Version))
	}
	if cfg.Notion.SortProperty != "" {
		opts = append(opts, notion.WithSortProperty(cfg.Notion.SortProperty))
	}
	if cfg.Notion.Timeout > 0 {
		opts = append(opts, notion.WithTimeout(cfg.Notion.Timeout))
	}
	return notion.NewClient(opts...)
}

// selectSources resolves the --source flag against the configuration
func selectSources(ctx *cli.Context, cfg *config.TomlConfig) ([]models.Source, error) {
	names := ctx.StringSlice("source")
	if len(names) == 0 {
		sources := cfg.ResolvedSources()
		if len(sources) == 0 {
			return nil, fmt.Errorf("no sources configured in %s, add one with `instaplan sources add`", ctx.String("config"))
		}
		return sources, nil
	}

	sources := make([]models.Source, 0, len(names))
	for _, name := range names {
		src, ok := cfg.FindSource(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", models.ErrSourceNotFound, name)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// viewBuilder narrows the feed to the --calendar and --account tabs
func viewBuilder(ctx *cli.Context) *feeds.ViewBuilder {
	return feeds.NewViewBuilder().
		AddFilter(&feeds.SourceFilter{Source: ctx.String("calendar")}).
		AddFilter(&feeds.AccountFilter{Account: ctx.String("account")})
}

// openJournal migrates and opens the journal database
func openJournal(ctx *cli.Context) (*db.Journal, error) {
	path := ctx.String("database")
	if err := db.Migrate(path); err != nil {
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return db.OpenJournal(path)
}

// newSyncer returns a syncer journaling to the database when it can be opened.
// The returned func closes the journal.
func newSyncer(ctx *cli.Context, updater reorder.DateUpdater) (*reorder.Syncer, func()) {
	journal, err := openJournal(ctx)
	if err != nil {
		log.WithError(err).Warn("Journal unavailable, date changes will not be recorded")
		return reorder.NewSyncer(updater), func() {}
	}
	return reorder.NewSyncer(updater, reorder.WithJournal(journal)), func() { journal.Close() }
}

// printStdout writes v as a single JSON line
func printStdout(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Error("Could not encode output")
		return
	}
	fmt.Fprintln(os.Stdout, string(data))
}

// snapshotKey identifies the order and dates of a feed
func snapshotKey(posts []models.Post) string {
	var sb strings.Builder
	for _, p := range posts {
		sb.WriteString(p.SourceId)
		sb.WriteByte('/')
		sb.WriteString(p.Id)
		sb.WriteByte('@')
		sb.WriteString(p.Date.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
