package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"instaplan/models"
	"instaplan/notion"
)

func testCmd() *cli.Command {
	return &cli.Command{
		Name:  "test",
		Usage: "Check that the configured sources are reachable",
		Flags: []cli.Flag{
			sourceFlag(),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			sources, err := selectSources(ctx, cfg)
			if err != nil {
				return err
			}

			client := newClient(cfg)
			failed := 0
			for _, src := range sources {
				title, err := testSource(ctx, client, src)
				if err != nil {
					failed++
					fmt.Printf("error %-20s %v\n", src.DisplayLabel(), err)
					continue
				}
				fmt.Printf("ok    %-20s %s\n", src.DisplayLabel(), title)
			}

			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d sources failed", failed, len(sources)), 1)
			}
			return nil
		},
	}
}

func testSource(ctx *cli.Context, client *notion.Client, src models.Source) (string, error) {
	src, err := src.Validate()
	if err != nil {
		return "", err
	}
	container, err := client.TestConnection(ctx.Context, src.Credential, src.ContainerId)
	if err != nil {
		log.WithFields(log.Fields{
			"source": src.Key(),
			"error":  err,
		}).Debug("Connection test failed")
		return "", err
	}
	return container.Title, nil
}
