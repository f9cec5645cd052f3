// Package uptimeapi implements the service.Service interface over the
// Builder Uptime REST API.
package uptimeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"uptime/internal/service"
)

const (
	// DefaultTimeout is the per-call timeout when none is configured.
	DefaultTimeout = 10 * time.Second

	// DefaultHistoryDays is used when History is called with days <= 0.
	DefaultHistoryDays = 7

	tasksPath   = "/api/uptime/tasks"
	sessionPath = "/api/uptime/session"
	historyPath = "/api/uptime/history"
	weeklyPath  = "/api/uptime/stats/weekly"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Client implements service.Service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	creds   *Credentials
	timeout time.Duration
	log     logr.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log logr.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a client for the API at baseURL. creds may be nil, in which
// case every request is sent unauthenticated.
func New(baseURL string, creds *Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		creds:   creds,
		timeout: DefaultTimeout,
		log:     logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListTasks returns all tasks.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	var tasks []service.Task
	if err := c.do(ctx, http.MethodGet, tasksPath, nil, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask creates a task and returns the server's copy.
func (c *Client) CreateTask(ctx context.Context, text string) (service.Task, error) {
	body := struct {
		Text string `json:"text"`
	}{Text: text}

	var task service.Task
	if err := c.do(ctx, http.MethodPost, tasksPath, body, nil, &task); err != nil {
		return service.Task{}, err
	}
	return task, nil
}

// UpdateTask sends a partial update and returns the server's copy.
func (c *Client) UpdateTask(ctx context.Context, id int64, update service.TaskUpdate) (service.Task, error) {
	var task service.Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), update, nil, &task); err != nil {
		return service.Task{}, err
	}
	return task, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil, nil)
}

// SaveSession submits a session snapshot. Each submission carries a fresh
// Idempotency-Key so the backend can drop duplicate deliveries.
func (c *Client) SaveSession(ctx context.Context, snap service.SessionSnapshot) error {
	if snap.Tasks == nil {
		snap.Tasks = []service.Task{}
	}
	header := http.Header{}
	header.Set("Idempotency-Key", uuid.NewString())
	return c.do(ctx, http.MethodPost, sessionPath, snap, header, nil)
}

// History returns session records for the last days days.
func (c *Client) History(ctx context.Context, days int) ([]service.HistoryRecord, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	path := historyPath + "?" + url.Values{"days": {strconv.Itoa(days)}}.Encode()

	var records []service.HistoryRecord
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// WeeklyStats returns the weekly aggregate.
func (c *Client) WeeklyStats(ctx context.Context) (service.WeeklyStats, error) {
	var stats service.WeeklyStats
	if err := c.do(ctx, http.MethodGet, weeklyPath, nil, nil, &stats); err != nil {
		return service.WeeklyStats{}, err
	}
	return stats, nil
}

func taskPath(id int64) string {
	return tasksPath + "/" + strconv.FormatInt(id, 10)
}

// do issues one JSON request. in is encoded as the body when non-nil; the
// response is decoded into out when out is non-nil and the body is not empty.
func (c *Client) do(ctx context.Context, method, path string, in any, header http.Header, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	c.creds.apply(req)

	c.log.V(1).Info("request", "method", method, "path", path, "authenticated", req.Header.Get("Authorization") != "")

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return wrapError(readError(resp))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapError(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readError builds a RequestError from a non-success response, using the
// body's "message" field when it parses.
func readError(resp *http.Response) error {
	reqErr := &service.RequestError{Status: resp.StatusCode, Message: service.FallbackMessage}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return reqErr
	}

	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil && strings.TrimSpace(payload.Message) != "" {
		reqErr.Message = payload.Message
	}
	return reqErr
}

// wrapError maps transport failures onto service errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrTimeout
	}

	var reqErr *service.RequestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	return fmt.Errorf("%s: %w", service.FallbackMessage, err)
}
