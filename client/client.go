// Package client implements the task sync client: the single point of
// contact between UI layers and the remote follow-up task API.
//
// Every operation resolves to a typed outcome instead of leaking
// transport errors. Reads degrade to the local cache on connectivity
// failure; creation queues locally and reports a degraded success;
// mutations on existing tasks fail plainly when offline (see
// MarkTaskDone for the rationale behind the asymmetry).
package client

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
	"time"

	"github.com/closerbase/tasksync/cache"
	"github.com/closerbase/tasksync/notify"
	"github.com/closerbase/tasksync/task"
)

const (
	defaultBaseURL = "https://app.closerbase.com"
	tasksPath      = "/api/user/tasks"
)

// DefaultCooldown is the minimum gap between two ingestion triggers.
const DefaultCooldown = 60 * time.Second

// Config holds configuration for the sync client.
type Config struct {
	// BaseURL is the API origin, without trailing slash.
	BaseURL string

	// HTTPClient carries the session cookie jar. Defaults to
	// http.DefaultClient; no extra timeout is imposed here, a transport
	// timeout surfaces as the offline path.
	HTTPClient *http.Client

	// Cache is the device-local fallback store. Defaults to an
	// in-process memory store when nil.
	Cache cache.Store

	// Cooldown gates the bulk ingestion trigger. Defaults to
	// DefaultCooldown.
	Cooldown time.Duration

	// Now is the clock, injectable for tests. Defaults to time.Now.
	Now func() time.Time

	// Events receives a notification after each successful operation.
	// Optional.
	Events *notify.Bus
}

// Client talks to the remote task store with offline-tolerant
// semantics. A single Client is safe for concurrent use.
//
// No ordering is guaranteed across concurrent mutations of the same
// task: when two are in flight, the last response to arrive wins at the
// caller, not the last request issued.
type Client struct {
	baseURL  string
	http     *http.Client
	cache    cache.Store
	cooldown time.Duration
	now      func() time.Time
	events   *notify.Bus
}

// New creates a sync client with the given config.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemory()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		http:     cfg.HTTPClient,
		cache:    cfg.Cache,
		cooldown: cfg.Cooldown,
		now:      cfg.Now,
		events:   cfg.Events,
	}
}

// TaskList is the outcome of a fetch. Offline marks a best-effort view
// served from the local cache after the remote fetch failed.
type TaskList struct {
	Tasks   []task.Task
	Offline bool
}

// Created is the outcome of a creation. Offline marks a task that was
// queued locally because the server was unreachable; its Task carries a
// LocalID instead of a server ID.
type Created struct {
	Task    task.Task
	Offline bool
}

// Draft is the caller-supplied input for a new task. Title is required;
// everything else has a default.
type Draft struct {
	Title      string
	SourceType task.SourceType
	SourceID   string
	Priority   task.Priority
	DueAt      *time.Time
	Details    string
}

var errTitleRequired = errors.New("client: task title is required")

// createRequest is the wire body for POST /api/user/tasks.
type createRequest struct {
	Title      string          `json:"title"`
	SourceType task.SourceType `json:"sourceType"`
	SourceID   string          `json:"sourceId,omitempty"`
	Priority   task.Priority   `json:"priority"`
	DueAt      *time.Time      `json:"dueAt,omitempty"`
	Details    string          `json:"details,omitempty"`
}

// FetchTasks lists tasks matching the filter.
//
// A 401 is a clean auth failure with an empty list; any other non-2xx
// is a server failure with an empty list. On a connectivity failure the
// local cache contents are returned in TaskList alongside a network
// error: reads degrade to a best-effort local view, never to a hard
// error with nothing to show.
func (c *Client) FetchTasks(ctx context.Context, f task.Filter) (TaskList, error) {
	empty := TaskList{Tasks: []task.Task{}}

	status, body, err := c.request(ctx, http.MethodGet, tasksPath+filterQuery(f), nil)
	if err != nil {
		cached, cacheErr := c.cache.Tasks()
		if cacheErr != nil || cached == nil {
			cached = []task.Task{}
		}
		return TaskList{Tasks: cached, Offline: true}, networkError(err)
	}
	if status == http.StatusUnauthorized {
		return empty, authError()
	}
	if status < 200 || status > 299 {
		return empty, serverError(status, body)
	}

	var tasks []task.Task
	if err := json.Unmarshal(body, &tasks); err != nil {
		return empty, &Error{Kind: KindServer, Status: status, Message: "malformed task list", cause: err}
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return TaskList{Tasks: tasks}, nil
}

// CreateTask creates a task on the server.
//
// On a connectivity failure the task is written to the local cache
// under a fresh LocalID and the call reports a degraded success;
// creation never appears to fail to the user solely because the
// network was down. A 409 means the (sourceType, sourceId) pair already
// has a task and is surfaced as KindConflict so callers can suppress
// duplicate-creation UI.
func (c *Client) CreateTask(ctx context.Context, d Draft) (Created, error) {
	if d.Title == "" {
		return Created{}, errTitleRequired
	}
	req := normalizeDraft(d)

	created, err := c.postTask(ctx, req)
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) && ce.Kind == KindNetwork {
			return c.queueLocal(req)
		}
		return Created{}, err
	}

	c.publish(notify.Event{Type: notify.TaskCreated, Task: &created})
	return Created{Task: created}, nil
}

// CreateTaskFromNextStep turns a next-step line from a call or chat
// summary into a task: the line (trimmed to the title cap) becomes the
// title, provenance is attached for server-side de-duplication, and a
// non-empty contactLabel is recorded as a "Kontakt:" annotation.
func (c *Client) CreateTaskFromNextStep(ctx context.Context, line string, sourceType task.SourceType, sourceID, contactLabel string) (Created, error) {
	d := Draft{
		Title:      task.TruncateTitle(line),
		SourceType: sourceType,
		SourceID:   sourceID,
	}
	if contactLabel != "" {
		d.Details = "Kontakt: " + contactLabel
	}
	return c.CreateTask(ctx, d)
}

// postTask performs the raw create call. It never touches the cache;
// offline queueing is the caller's decision (CreateTask queues,
// FlushLocal must not).
func (c *Client) postTask(ctx context.Context, req createRequest) (task.Task, error) {
	status, body, err := c.request(ctx, http.MethodPost, tasksPath, req)
	if err != nil {
		return task.Task{}, networkError(err)
	}
	switch {
	case status == http.StatusUnauthorized:
		return task.Task{}, authError()
	case status == http.StatusConflict:
		return task.Task{}, &Error{Kind: KindConflict, Status: status, Message: "a task for this source already exists"}
	case status < 200 || status > 299:
		return task.Task{}, serverError(status, body)
	}

	var created task.Task
	if err := json.Unmarshal(body, &created); err != nil {
		return task.Task{}, &Error{Kind: KindServer, Status: status, Message: "malformed task", cause: err}
	}
	return created, nil
}

// queueLocal writes a provisional task to the cache and reports the
// creation as a degraded success.
func (c *Client) queueLocal(req createRequest) (Created, error) {
	t := task.Task{
		Title:      req.Title,
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		Priority:   req.Priority,
		DueAt:      req.DueAt,
		Details:    req.Details,
		CreatedAt:  c.now().UTC(),
	}
	if err := c.cache.Put(&t); err != nil {
		// No durability, no degraded success.
		return Created{}, &Error{Kind: KindNetwork, Offline: true, Message: "offline and local cache unavailable", cause: err}
	}
	c.publish(notify.Event{Type: notify.TaskQueued, Task: &t})
	return Created{Task: t, Offline: true}, nil
}

func normalizeDraft(d Draft) createRequest {
	if d.SourceType == "" {
		d.SourceType = task.SourceManual
	}
	if d.Priority == "" {
		d.Priority = task.PriorityMedium
	}
	return createRequest{
		Title:      task.TruncateTitle(d.Title),
		SourceType: d.SourceType,
		SourceID:   d.SourceID,
		Priority:   d.Priority,
		DueAt:      d.DueAt,
		Details:    d.Details,
	}
}

// request performs one HTTP round trip. A non-nil error means the
// request never produced a response; status handling stays with the
// caller.
func (c *Client) request(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("client: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

// serverError builds a KindServer error, picking up the server's own
// message when the body carries one.
func serverError(status int, body []byte) *Error {
	msg := fmt.Sprintf("unexpected status %d", status)
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		msg = apiErr.Error
	}
	return &Error{Kind: KindServer, Status: status, Message: msg}
}

func (c *Client) publish(ev notify.Event) {
	if c.events != nil {
		c.events.Publish(ev)
	}
}

func filterQuery(f task.Filter) string {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.SourceType != "" {
		q.Set("sourceType", string(f.SourceType))
	}
	if f.SourceID != "" {
		q.Set("sourceId", f.SourceID)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.SinceDays > 0 {
		q.Set("sinceDays", strconv.Itoa(f.SinceDays))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
