package server

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"instaplan/aggregator"
	"instaplan/feeds"
	"instaplan/models"
	"instaplan/reorder"
)

const (
	ActionQuery      = "query"
	ActionTest       = "test"
	ActionBatch      = "batch"
	ActionUpdateDate = "updateDate"
)

// notionRequest is the body of a POST to /api/notion. The apiKey, databaseId
// and pageId names are accepted as aliases.
type notionRequest struct {
	Action       string                   `json:"action"`
	Credential   string                   `json:"credential"`
	ApiKey       string                   `json:"apiKey"`
	ContainerId  string                   `json:"containerId"`
	DatabaseId   string                   `json:"databaseId"`
	Label        string                   `json:"label"`
	PostId       string                   `json:"postId"`
	PageId       string                   `json:"pageId"`
	DateProperty string                   `json:"dateProperty"`
	NewDate      string                   `json:"newDate"`
	PrevDate     string                   `json:"prevDate"`
	NextDate     string                   `json:"nextDate"`
	Sources      []aggregator.BatchSource `json:"sources"`
	Calendar     string                   `json:"calendar"`
	Account      string                   `json:"account"`
}

func (r notionRequest) credential() string {
	if r.Credential != "" {
		return r.Credential
	}
	return r.ApiKey
}

func (r notionRequest) containerId() string {
	if r.ContainerId != "" {
		return r.ContainerId
	}
	return r.DatabaseId
}

func (r notionRequest) postId() string {
	if r.PostId != "" {
		return r.PostId
	}
	return r.PageId
}

// source builds and validates the single source a request targets
func (r notionRequest) source() (models.Source, error) {
	src := models.Source{
		Label:       strings.TrimSpace(r.Label),
		ContainerId: r.containerId(),
		Credential:  r.credential(),
	}
	src, err := src.Validate()
	if err != nil {
		return src, err
	}
	src.Id = src.ContainerId
	return src, nil
}

type handler struct {
	config *ServerConfig
}

func (h *handler) dispatch(c *fiber.Ctx) error {
	switch c.Method() {
	case fiber.MethodOptions:
		c.Status(fiber.StatusOK)
		return nil
	case fiber.MethodGet:
		return c.JSON(fiber.Map{
			"status":  "OK",
			"message": "Notion API proxy is running",
			"version": h.config.Version,
		})
	case fiber.MethodPost:
	default:
		c.Set(fiber.HeaderAllow, "GET, POST, OPTIONS")
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
			"success": false,
			"error":   "method not allowed",
		})
	}

	var req notionRequest
	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return sendError(c, &models.ValidationError{Field: "body", Message: "invalid JSON body"})
		}
	}
	if req.Action == "" {
		req.Action = ActionQuery
	}

	log.WithFields(log.Fields{
		"action":    req.Action,
		"container": req.containerId(),
	}).Debug("Handling notion action")

	switch req.Action {
	case ActionQuery:
		return h.query(c, req)
	case ActionTest:
		return h.test(c, req)
	case ActionBatch:
		return h.batch(c, req)
	case ActionUpdateDate:
		return h.updateDate(c, req)
	}
	return sendError(c, &models.ValidationError{Field: "action", Message: "unknown action: " + req.Action})
}

func (h *handler) query(c *fiber.Ctx, req notionRequest) error {
	src, err := req.source()
	if err != nil {
		return sendError(c, err)
	}

	posts, err := h.config.Fetcher.FetchSource(c.UserContext(), src)
	if err != nil {
		return sendError(c, err)
	}
	feeds.SortPosts(posts)

	return c.JSON(fiber.Map{
		"success": true,
		"posts":   posts,
		"meta":    aggregator.BuildMeta(posts, nil),
	})
}

func (h *handler) test(c *fiber.Ctx, req notionRequest) error {
	src, err := req.source()
	if err != nil {
		return sendError(c, err)
	}

	container, err := h.config.Tester.TestConnection(c.UserContext(), src.Credential, src.ContainerId)
	if err != nil {
		return sendError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "connection ok",
		"database": container,
	})
}

func (h *handler) batch(c *fiber.Ctx, req notionRequest) error {
	sources, err := aggregator.ResolveBatch(req.credential(), req.containerId(), req.Sources)
	if err != nil {
		return sendError(c, err)
	}

	posts, meta, err := h.config.Fetcher.FetchBatch(c.UserContext(), sources)
	if err != nil {
		return sendError(c, err)
	}

	// Meta lists every calendar and account so the tabs stay complete
	posts = feeds.NewViewBuilder().
		AddFilter(&feeds.SourceFilter{Source: req.Calendar}).
		AddFilter(&feeds.AccountFilter{Account: req.Account}).
		Build(posts)

	return c.JSON(fiber.Map{
		"success": true,
		"posts":   posts,
		"meta":    meta,
	})
}

func (h *handler) updateDate(c *fiber.Ctx, req notionRequest) error {
	src, err := req.source()
	if err != nil {
		return sendError(c, err)
	}

	postId := strings.TrimSpace(req.postId())
	if postId == "" {
		return sendError(c, &models.ValidationError{Field: "postId", Message: "post id is required"})
	}

	date, err := h.requestedDate(req)
	if err != nil {
		return sendError(c, err)
	}

	post := models.Post{Id: postId, SourceId: src.Key(), DateProperty: req.DateProperty}
	if err := h.config.Syncer.Sync(c.UserContext(), src, post, date); err != nil {
		return sendError(c, err)
	}

	if h.config.Broadcaster != nil {
		h.config.Broadcaster.Broadcast(RefreshEvent{SourceId: src.Key(), PostId: postId, Date: date.String()})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"date":    date,
	})
}

// requestedDate is newDate when given, otherwise the date interpolated
// between the prevDate and nextDate neighbours
func (h *handler) requestedDate(req notionRequest) (models.Date, error) {
	if strings.TrimSpace(req.NewDate) != "" {
		date, err := models.ParseDate(req.NewDate)
		if err != nil {
			return models.Date{}, &models.ValidationError{Field: "newDate", Message: err.Error()}
		}
		return date, nil
	}

	prev, err := neighbour("prevDate", req.PrevDate)
	if err != nil {
		return models.Date{}, err
	}
	next, err := neighbour("nextDate", req.NextDate)
	if err != nil {
		return models.Date{}, err
	}
	return reorder.InterpolateDate(prev, next, h.config.Now()), nil
}

func neighbour(field, raw string) (*models.Post, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return nil, &models.ValidationError{Field: field, Message: err.Error()}
	}
	return &models.Post{Date: date}, nil
}

// statusFor maps the error taxonomy to an HTTP status
func statusFor(err error) int {
	var (
		validation *models.ValidationError
		upstream   *models.UpstreamError
		network    *models.NetworkError
	)
	switch {
	case errors.As(err, &validation):
		return fiber.StatusBadRequest
	case errors.As(err, &upstream):
		if upstream.Status >= 400 && upstream.Status <= 599 {
			return upstream.Status
		}
		return fiber.StatusBadGateway
	case errors.As(err, &network):
		return fiber.StatusBadGateway
	case errors.Is(err, models.ErrSyncInFlight):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrSourceNotFound):
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

func sendError(c *fiber.Ctx, err error) error {
	status := statusFor(err)

	message := err.Error()
	var upstream *models.UpstreamError
	if errors.As(err, &upstream) {
		message = upstream.Message
	}
	if status == fiber.StatusInternalServerError {
		log.WithError(err).Error("Request failed")
		message = "internal error"
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
