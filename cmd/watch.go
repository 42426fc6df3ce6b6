package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"instaplan/aggregator"
	"instaplan/feeds"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Poll the sources and print the feed when it changes",
		Description: `Fetches all sources on an interval and prints the feed summary as a
JSON line whenever the order or dates of the posts change. Failing passes
are retried with an exponential backoff.`,
		Flags: []cli.Flag{
			sourceFlag(),
			calendarFlag(),
			accountFlag(),
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Value:   time.Minute,
				Usage:   "Time between two passes",
				EnvVars: []string{"INSTAPLAN_WATCH_INTERVAL"},
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
			interval := ctx.Duration("interval")

			retry := backoff.NewExponentialBackOff()
			retry.InitialInterval = 5 * time.Second
			retry.MaxInterval = 5 * time.Minute
			retry.Multiplier = 1.5
			retry.MaxElapsedTime = 0 // Never stop retrying
			retry.Reset()

			stop, cancel := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			last := ""
			for {
				wait := interval

				posts, meta, err := agg.FetchBatch(stop, sources)
				if err != nil {
					wait = retry.NextBackOff()
					log.WithFields(log.Fields{
						"error": err,
						"retry": wait,
					}).Warn("Aggregation failed")
				} else {
					retry.Reset()
					view := viewBuilder(ctx).Build(posts)
					if key := snapshotKey(view); key != last {
						last = key
						printStdout(map[string]interface{}{
							"at":    time.Now().UTC().Format(time.RFC3339),
							"meta":  meta,
							"posts": view,
						})
					}
				}

				select {
				case <-stop.Done():
					log.Info("Stopping watch")
					return nil
				case <-time.After(wait):
				}
			}
		},
	}
}
