package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"instaplan/models"
)

// PostFetcher aggregates posts from one or several sources
type PostFetcher interface {
	FetchSource(ctx context.Context, src models.Source) ([]models.Post, error)
	FetchBatch(ctx context.Context, sources []models.Source) ([]models.Post, models.Meta, error)
}

// ConnectionTester checks that a container is reachable with a credential
type ConnectionTester interface {
	TestConnection(ctx context.Context, credential, containerId string) (*models.Container, error)
}

// DateSyncer writes a new date for a post to its source
type DateSyncer interface {
	Sync(ctx context.Context, src models.Source, post models.Post, date models.Date) error
}

type ServerConfig struct {
	// Reported by the health check
	Version string

	// Origins allowed by CORS, "*" when empty
	AllowedOrigins []string

	Fetcher PostFetcher
	Tester  ConnectionTester
	Syncer  DateSyncer

	// Broadcast refresh events to SSE clients
	Broadcaster *Broadcaster

	// Clock used when interpolating dates, time.Now when nil
	Now func() time.Time
}

// Returns a fiber.App serving the Notion proxy API
func Server(config *ServerConfig) *fiber.App {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Broadcaster == nil {
		config.Broadcaster = NewBroadcaster()
	}
	bc := config.Broadcaster

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	origins := "*"
	if len(config.AllowedOrigins) > 0 {
		origins = strings.Join(config.AllowedOrigins, ",")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Cache-Control",
	}))

	// Responses always reflect the source, never a cached copy
	app.Use(func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.Next()
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Delete("/api/notion/events", func(c *fiber.Ctx) error {
		bc.RemoveClient(c.Query("key", ""))
		return c.SendStatus(fiber.StatusOK)
	})

	app.Get("/api/notion/events", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")

		key := uuid.New().String()
		events := make(chan RefreshEvent, 10)
		bc.AddClient(key, events)

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			alive := time.NewTicker(15 * time.Second)
			defer alive.Stop()
			defer bc.RemoveClient(key)

			fmt.Fprintf(w, "event: init\ndata: %s\n\n", key)
			if err := w.Flush(); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			for {
				select {
				case <-alive.C:
					fmt.Fprintf(w, "event: ping\ndata: \n\n")
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush ping for client %s: %v", key, err)
						return
					}

				case event, ok := <-events:
					if !ok {
						return
					}
					data, err := json.Marshal(event)
					if err != nil {
						log.Errorf("Error marshalling refresh for client %s: %v", key, err)
						continue
					}
					fmt.Fprintf(w, "event: refresh\ndata: %s\n\n", data)
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush refresh for client %s: %v", key, err)
						return
					}
				}
			}
		}))

		return nil
	})

	h := &handler{config: config}
	app.All("/api/notion", h.dispatch)

	return app
}
