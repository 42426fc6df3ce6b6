package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"instaplan/aggregator"
	"instaplan/feeds"
	"instaplan/models"
)

func feedCmd() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Print the feed of the configured sources",
		Description: `Fetches the configured sources and prints the merged feed, newest
first, as one JSON object per line. Use a tool like jq to process the output.

By default a failing source is skipped. With --strict any failing source
fails the whole command and nothing is printed.

Prints all other log messages to stderr.`,
		Flags: []cli.Flag{
			sourceFlag(),
			calendarFlag(),
			accountFlag(),
			&cli.BoolFlag{
				Name:    "strict",
				Usage:   "Fail when any source fails",
				EnvVars: []string{"INSTAPLAN_STRICT"},
			},
		},
		Action: func(ctx *cli.Context) error {
			log.SetOutput(os.Stderr)

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			sources, err := selectSources(ctx, cfg)
			if err != nil {
				return err
			}

			agg := aggregator.New(newClient(cfg), feeds.NewNormalizer())

			var (
				posts []models.Post
				meta  models.Meta
			)
			if ctx.Bool("strict") {
				posts, meta, err = agg.FetchBatch(ctx.Context, sources)
				if err != nil {
					return err
				}
			} else {
				posts, meta = agg.FetchSources(ctx.Context, sources)
			}

			view := viewBuilder(ctx).Build(posts)
			for _, post := range view {
				printStdout(post)
			}

			log.WithFields(log.Fields{
				"total":     meta.Total,
				"shown":     len(view),
				"accounts":  meta.Accounts,
				"calendars": meta.Calendars,
			}).Info("Feed built")
			return nil
		},
	}
}
