package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the journal",
		Description: `Tidy up the journal by removing date changes that are old.

		Removes entries that are older than 90 days.`,
		Action: func(ctx *cli.Context) error {
			journal, err := openJournal(ctx)
			if err != nil {
				return err
			}
			defer journal.Close()

			removed, err := journal.Tidy(ctx.Context)
			if err != nil {
				return err
			}
			log.WithField("removed", removed).Info("Journal tidied")
			return nil
		},
	}
}
