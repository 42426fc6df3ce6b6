package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"instaplan/aggregator"
	"instaplan/feeds"
	"instaplan/reorder"
)

func moveCmd() *cli.Command {
	return &cli.Command{
		Name:  "move",
		Usage: "Move a post to another position in the feed",
		Description: `Moves the post at position --from to position --to of the feed, as
printed by the feed command with the same --source and --account flags.
Positions start at 0 and --to may equal the feed length to move a post
to the end.

The move is saved to Notion as a new date between the neighbouring posts.
Prints the moved post, and the refreshed feed when --refresh is set.`,
		Flags: []cli.Flag{
			sourceFlag(),
			calendarFlag(),
			accountFlag(),
			&cli.IntFlag{
				Name:     "from",
				Usage:    "Current position of the post",
				Required: true,
			},
			&cli.IntFlag{
				Name:     "to",
				Usage:    "Position to drop the post at",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "refresh",
				Usage: "Fetch and print the feed again after the move",
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

			client := newClient(cfg)
			agg := aggregator.New(client, feeds.NewNormalizer())
			posts, _ := agg.FetchSources(ctx.Context, sources)
			view := viewBuilder(ctx).Build(posts)

			syncer, closeJournal := newSyncer(ctx, client)
			defer closeJournal()

			moved, err := reorder.NewReorderer(cfg.ResolvedSources(), syncer).Move(ctx.Context, view, ctx.Int("from"), ctx.Int("to"))
			if err != nil {
				return err
			}
			printStdout(moved)

			if !ctx.Bool("refresh") {
				return nil
			}
			posts, _ = agg.FetchSources(ctx.Context, sources)
			for _, post := range viewBuilder(ctx).Build(posts) {
				printStdout(post)
			}
			return nil
		},
	}
}
