package cmd

import (
	"github.com/urfave/cli/v2"

	"instaplan/db"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run journal migrations",
		Description: `Runs the migrations of the date change journal. Will create the database if it does not exist.`,
		Action: func(ctx *cli.Context) error {
			return db.Migrate(ctx.String("database"))
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:        "rollback",
		Usage:       "Rollback journal migration",
		Description: `Rolls back the last migration of the date change journal`,
		Action: func(ctx *cli.Context) error {
			return db.Rollback(ctx.String("database"))
		},
	}
}
