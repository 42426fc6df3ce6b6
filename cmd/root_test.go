package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"instaplan/config"
	"instaplan/models"
)

func TestRootAppCommands(t *testing.T) {
	app := RootApp()
	names := lo.Map(app.Commands, func(c *cli.Command, _ int) string { return c.Name })
	assert.ElementsMatch(t, []string{
		"serve", "feed", "move", "test", "watch", "sources",
		"migrate", "rollback", "tidy", "history",
	}, names)
}

func TestRejectsUnknownLogLevel(t *testing.T) {
	err := RootApp().Run([]string{"instaplan", "--log-level", "loud", "sources", "list"})
	assert.Error(t, err)
}

func TestJournalCommands(t *testing.T) {
	database := filepath.Join(t.TempDir(), "journal.db")

	for _, args := range [][]string{
		{"migrate"},
		{"history", "--limit", "5"},
		{"tidy"},
		{"rollback"},
	} {
		err := RootApp().Run(append([]string{"instaplan", "--database", database}, args...))
		require.NoError(t, err, args)
	}
}

func TestSourcesList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instaplan.toml")
	cfg := config.Default()
	cfg.Credential = "ntn_default"
	require.NoError(t, cfg.AddSource(models.Source{Id: "perso", ContainerId: strings.Repeat("a", 32)}))
	require.NoError(t, config.SaveConfig(path, cfg))

	err := RootApp().Run([]string{"instaplan", "--config", path, "sources", "list"})
	assert.NoError(t, err)
}

func TestFeedWithoutSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instaplan.toml")
	require.NoError(t, config.SaveConfig(path, config.Default()))

	err := RootApp().Run([]string{"instaplan", "--config", path, "feed"})
	assert.ErrorContains(t, err, "no sources configured")
}

func TestFeedUnknownSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instaplan.toml")
	cfg := config.Default()
	cfg.Credential = "ntn_default"
	require.NoError(t, cfg.AddSource(models.Source{Id: "perso", ContainerId: strings.Repeat("a", 32)}))
	require.NoError(t, config.SaveConfig(path, cfg))

	err := RootApp().Run([]string{"instaplan", "--config", path, "feed", "--source", "client"})
	assert.ErrorIs(t, err, models.ErrSourceNotFound)
}

func TestSnapshotKey(t *testing.T) {
	posts := []models.Post{
		{Id: "p1", SourceId: "a", Date: models.NewDate(2024, 3, 1)},
		{Id: "p2", SourceId: "b", Date: models.NewDate(2024, 2, 1)},
	}
	key := snapshotKey(posts)
	assert.Equal(t, "a/p1@2024-03-01\nb/p2@2024-02-01\n", key)

	moved := []models.Post{posts[0], posts[1].WithDate(models.NewDate(2024, 2, 2))}
	assert.NotEqual(t, key, snapshotKey(moved))
	assert.Empty(t, snapshotKey(nil))
}

func TestViewBuilderTabs(t *testing.T) {
	posts := []models.Post{
		{Id: "p1", SourceId: "perso", Calendar: "Perso", Account: "brand", Date: models.NewDate(2024, 3, 1)},
		{Id: "p2", SourceId: "client", Calendar: "Client", Account: "brand", Date: models.NewDate(2024, 2, 1)},
		{Id: "p3", SourceId: "client", Calendar: "Client", Account: "other", Date: models.NewDate(2024, 4, 1)},
	}

	tests := []struct {
		args []string
		want []string
	}{
		{args: nil, want: []string{"p3", "p1", "p2"}},
		{args: []string{"--calendar", "Client"}, want: []string{"p3", "p2"}},
		{args: []string{"--calendar", "client", "--account", "brand"}, want: []string{"p2"}},
		{args: []string{"--account", "brand"}, want: []string{"p1", "p2"}},
	}

	for _, tt := range tests {
		var view []models.Post
		app := &cli.App{
			Flags: []cli.Flag{calendarFlag(), accountFlag()},
			Action: func(ctx *cli.Context) error {
				view = viewBuilder(ctx).Build(posts)
				return nil
			},
		}
		require.NoError(t, app.Run(append([]string{"instaplan"}, tt.args...)))
		assert.Equal(t, tt.want, lo.Map(view, func(p models.Post, _ int) string { return p.Id }), tt.args)
	}
}
