package cmd

import (
	"github.com/urfave/cli/v2"

	"instaplan/db"
)

func historyCmd() *cli.Command {
	return &cli.Command{
		Name:        "history",
		Usage:       "Print the journal of date changes",
		Description: `Prints recorded date changes, newest first, as one JSON object per line.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "post", Usage: "Only changes of this post id"},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Only changes of this source id"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 50, Usage: "Maximum number of entries"},
		},
		Action: func(ctx *cli.Context) error {
			journal, err := openJournal(ctx)
			if err != nil {
				return err
			}
			defer journal.Close()

			changes, err := journal.List(ctx.Context, db.ListOptions{
				PostId:   ctx.String("post"),
				SourceId: ctx.String("source"),
				Limit:    ctx.Int("limit"),
			})
			if err != nil {
				return err
			}
			for _, change := range changes {
				printStdout(change)
			}
			return nil
		},
	}
}
