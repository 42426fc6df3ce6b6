package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"instaplan/config"
)

// Version is set at build time
var Version = "dev"

func RootApp() *cli.App {
	return &cli.App{
		Name:    "instaplan",
		Usage:   "Plan an Instagram feed from Notion databases",
		Version: Version,
		Description: `Reads content calendars kept in Notion databases and turns their
		rows into a single feed of posts, newest first. Rows without media or
		already marked as posted are left out.

		Moving a post in the feed is saved back to Notion as a new date,
		placed between the posts it was dropped between.

		Flags can generally be set via environment variables, e.g.:

		--config => INSTAPLAN_CONFIG=config/instaplan.toml
		--port => INSTAPLAN_PORT=3000
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "Path to the configuration file",
				EnvVars: []string{"INSTAPLAN_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "journal.db",
				Usage:   "SQLite journal of date changes",
				EnvVars: []string{"INSTAPLAN_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"INSTAPLAN_LOG_LEVEL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			feedCmd(),
			moveCmd(),
			testCmd(),
			watchCmd(),
			sourcesCmd(),
			migrateCmd(),
			rollbackCmd(),
			tidyCmd(),
			historyCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return cli.ShowAppHelp(ctx)
		},
	}
}
