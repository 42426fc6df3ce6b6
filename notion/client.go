package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"instaplan/models"
)

const (
	DefaultBaseUrl      = "https://api.notion.com"
	DefaultVersion      = "2022-06-28"
	DefaultSortProperty = "Date"
	defaultPageSize     = 100
	defaultMaxPages     = 50
)

// HTTPClient allows injection of the transport in tests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds each request made through the default http.Client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if hc, ok := c.httpClient.(*http.Client); ok {
			hc.Timeout = timeout
		}
	}
}

// WithBaseUrl points the client at another API host
func WithBaseUrl(url string) ClientOption {
	return func(c *Client) {
		c.baseUrl = strings.TrimRight(url, "/")
	}
}

// WithVersion sets the Notion-Version header
func WithVersion(version string) ClientOption {
	return func(c *Client) {
		c.version = version
	}
}

// WithSortProperty asks the API to sort query results by this date column.
// An empty name disables upstream sorting.
func WithSortProperty(name string) ClientOption {
	return func(c *Client) {
		c.sortProperty = name
	}
}

// WithPageSize sets how many rows are requested per query page
func WithPageSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 && size <= defaultPageSize {
			c.pageSize = size
		}
	}
}

// WithMaxPages caps how many query pages are fetched per container
func WithMaxPages(pages int) ClientOption {
	return func(c *Client) {
		if pages > 0 {
			c.maxPages = pages
		}
	}
}

// Client talks to the Notion API. Credentials are passed per call, one
// client serves every configured source.
type Client struct {
	httpClient   HTTPClient
	baseUrl      string
	version      string
	sortProperty string
	pageSize     int
	maxPages     int
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseUrl:      DefaultBaseUrl,
		version:      DefaultVersion,
		sortProperty: DefaultSortProperty,
		pageSize:     defaultPageSize,
		maxPages:     defaultMaxPages,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sortSpec struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

type queryRequest struct {
	Sorts       []sortSpec `json:"sorts,omitempty"`
	StartCursor string     `json:"start_cursor,omitempty"`
	PageSize    int        `json:"page_size,omitempty"`
}

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// QueryContainer returns every row of the database, following pagination.
// Rows come back in upstream order, callers must not rely on it being sorted.
// When the database has no column named like the sort property the query is
// retried unsorted.
func (c *Client) QueryContainer(ctx context.Context, credential, containerId string) ([]models.RawRow, error) {
	rows := make([]models.RawRow, 0)
	request := queryRequest{PageSize: c.pageSize}
	if c.sortProperty != "" {
		request.Sorts = []sortSpec{{Property: c.sortProperty, Direction: "descending"}}
	}

	truncated := false
	for pageNum := 0; pageNum < c.maxPages; pageNum++ {
		var response queryResponse
		err := c.do(ctx, "query", http.MethodPost, "/v1/databases/"+containerId+"/query", credential, request, &response)
		if err != nil && pageNum == 0 && request.Sorts != nil && isValidationError(err) {
			log.WithFields(log.Fields{
				"container": containerId,
				"sort":      c.sortProperty,
			}).Warn("Sort rejected, querying unsorted")
			request.Sorts = nil
			err = c.do(ctx, "query", http.MethodPost, "/v1/databases/"+containerId+"/query", credential, request, &response)
		}
		if err != nil {
			return nil, err
		}

		for _, p := range response.Results {
			rows = append(rows, p.toRow())
		}

		if !response.HasMore || response.NextCursor == "" {
			truncated = false
			break
		}
		truncated = true
		request.StartCursor = response.NextCursor
	}

	if truncated {
		log.WithFields(log.Fields{
			"container": containerId,
			"rows":      len(rows),
			"pages":     c.maxPages,
		}).Warn("Stopped paginating, remaining rows were not fetched")
	}

	log.WithFields(log.Fields{
		"container": containerId,
		"rows":      len(rows),
	}).Info("Queried container")

	return rows, nil
}

// isValidationError reports a 400 whose body carries the validation_error code
func isValidationError(err error) bool {
	var upstream *models.UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != http.StatusBadRequest {
		return false
	}
	var parsed errorBody
	if json.Unmarshal([]byte(upstream.Body), &parsed) != nil {
		return false
	}
	return parsed.Code == "validation_error"
}

type dateValue struct {
	Start string `json:"start"`
}

type updateRequest struct {
	Properties map[string]map[string]dateValue `json:"properties"`
}

// UpdateRowDate writes date into the given date column of a row
func (c *Client) UpdateRowDate(ctx context.Context, credential, containerId, rowId, property string, date models.Date) error {
	if property == "" {
		property = models.DefaultDateProperty
	}
	request := updateRequest{
		Properties: map[string]map[string]dateValue{
			property: {"date": {Start: date.String()}},
		},
	}

	if err := c.do(ctx, "update", http.MethodPatch, "/v1/pages/"+rowId, credential, request, nil); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"container": containerId,
		"row":       rowId,
		"property":  property,
		"date":      date.String(),
	}).Info("Updated row date")

	return nil
}

type databaseResponse struct {
	Id    string     `json:"id"`
	Title []richText `json:"title"`
}

// TestConnection fetches the database metadata to check credential and sharing
func (c *Client) TestConnection(ctx context.Context, credential, containerId string) (*models.Container, error) {
	var response databaseResponse
	if err := c.do(ctx, "test", http.MethodGet, "/v1/databases/"+containerId, credential, nil, &response); err != nil {
		return nil, err
	}

	title := joinText(response.Title)
	if title == "" {
		title = "Untitled database"
	}
	return &models.Container{Id: response.Id, Title: title}, nil
}

func (c *Client) do(ctx context.Context, operation, method, path, credential string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	upstreamLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		upstreamRequests.WithLabelValues(operation, "network_error").Inc()
		log.WithFields(log.Fields{
			"operation": operation,
			"error":     err,
		}).Error("Notion request failed")
		return &models.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	upstreamRequests.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.NetworkError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upstreamErr := newUpstreamError(resp.StatusCode, data)
		log.WithFields(log.Fields{
			"operation": operation,
			"status":    resp.StatusCode,
			"message":   upstreamErr.Message,
		}).Warn("Notion returned an error")
		return upstreamErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", operation, err)
	}
	return nil
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newUpstreamError(status int, body []byte) *models.UpstreamError {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	message := parsed.Message
	switch status {
	case http.StatusUnauthorized:
		message = "invalid or expired credential"
	case http.StatusNotFound:
		message = "database not found or not shared with the integration"
	case http.StatusForbidden:
		message = "access denied, check the integration permissions"
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = http.StatusText(status)
	}

	return &models.UpstreamError{Status: status, Message: message, Body: string(body)}
}
