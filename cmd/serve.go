package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"instaplan/aggregator"
	"instaplan/config"
	"instaplan/feeds"
	"instaplan/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the Notion proxy API",
		Description: `Starts the HTTP server used by the feed widget.

POST /api/notion runs the query, test, batch and updateDate actions,
GET /api/notion is a health check. Successful date updates are announced
on the GET /api/notion/events stream so clients can refresh. Prometheus
metrics are served on /metrics.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on, overrides the configuration",
				EnvVars: []string{"INSTAPLAN_PORT"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.LoadOrDefault(ctx.String("config"))
			if err != nil {
				return err
			}

			client := newClient(cfg)
			syncer, closeJournal := newSyncer(ctx, client)
			defer closeJournal()

			bc := server.NewBroadcaster()
			app := server.Server(&server.ServerConfig{
				Version:        Version,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				Fetcher:        aggregator.New(client, feeds.NewNormalizer()),
				Tester:         client,
				Syncer:         syncer,
				Broadcaster:    bc,
			})

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-c
				log.Info("Gracefully shutting down...")
				bc.Shutdown()
				if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
					log.WithError(err).Error("Shutdown failed")
				}
			}()

			port := ctx.Int("port")
			if port == 0 {
				port = cfg.Server.Port
			}
			log.WithField("port", port).Info("Starting server")
			return app.Listen(fmt.Sprintf(":%d", port))
		},
	}
}
