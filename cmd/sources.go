package cmd

import (
	"fmt"
	"strings"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"instaplan/config"
	"instaplan/models"
)

func sourcesCmd() *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "Manage the configured Notion databases",
		Subcommands: []*cli.Command{
			sourcesAddCmd(),
			sourcesListCmd(),
		},
	}
}

func sourcesAddCmd() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a Notion database to the configuration",
		Description: `Adds a database to the configuration file, creating the file when
needed. Missing values are asked for interactively. The integration
token is only asked for when no default credential is configured.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Source id, defaults to the database id"},
			&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Usage: "Calendar name shown in the feed"},
			&cli.StringFlag{Name: "container", Usage: "Notion database id"},
			&cli.BoolFlag{Name: "no-check", Usage: "Save without testing the connection"},
		},
		Action: func(ctx *cli.Context) error {
			path := ctx.String("config")
			cfg, err := config.LoadOrDefault(path)
			if err != nil {
				return err
			}

			src := models.Source{
				Id:          ctx.String("id"),
				Label:       ctx.String("label"),
				ContainerId: ctx.String("container"),
			}

			if src.ContainerId == "" {
				src.ContainerId, err = prompt.New().Ask("Database id:").Input("")
				if err != nil {
					return err
				}
			}
			if src.Label == "" {
				src.Label, err = prompt.New().Ask("Label:").Input("")
				if err != nil {
					return err
				}
			}
			if cfg.Credential == "" {
				credential, err := prompt.New().Ask("Integration token:").Input("", input.WithEchoMode(input.EchoNone))
				if err != nil {
					return err
				}
				src.Credential = strings.TrimSpace(credential)
			}

			if err := cfg.AddSource(src); err != nil {
				return err
			}
			added := cfg.Sources[len(cfg.Sources)-1]

			if !ctx.Bool("no-check") {
				resolved, _ := cfg.FindSource(added.Key())
				title, err := testSource(ctx, newClient(cfg), resolved)
				if err != nil {
					return fmt.Errorf("connection test failed, use --no-check to save anyway: %w", err)
				}
				log.WithField("title", title).Info("Connection ok")
			}

			if err := config.SaveConfig(path, cfg); err != nil {
				return err
			}
			fmt.Printf("Added source %s to %s\n", added.Key(), path)
			return nil
		},
	}
}

func sourcesListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the configured Notion databases",
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			for _, src := range cfg.ResolvedSources() {
				printStdout(map[string]interface{}{
					"id":            src.Key(),
					"label":         src.DisplayLabel(),
					"containerId":   src.ContainerId,
					"hasCredential": src.Credential != "",
				})
			}
			return nil
		},
	}
}
