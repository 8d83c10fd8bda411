package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/closerbase/tasksync/notify"
)

// SyncResult is the outcome of an ingestion trigger. Throttled marks a
// call that short-circuited on the cooldown without touching the
// network.
type SyncResult struct {
	Created   int  `json:"created"`
	Skipped   int  `json:"skipped"`
	Throttled bool `json:"-"`
}

// CanSyncTasks reports whether the ingestion cooldown has elapsed. It
// is side-effect free, for UI layers that disable a "sync now"
// affordance.
func (c *Client) CanSyncTasks() bool {
	last, err := c.cache.LastSyncAttempt()
	if err != nil {
		// An unreadable mark never blocks a sync.
		return true
	}
	return c.now().Sub(last) >= c.cooldown
}

// SyncTasks triggers server-side ingestion of tasks derived from recent
// call and chat summaries.
//
// The call is gated by a per-device cooldown: inside the window it
// short-circuits locally with a zero-count, throttled result and no
// network request, so rapid UI interactions cannot cause
// duplicate-detection churn server-side. The cooldown mark is stamped
// the moment a network attempt is made, before the response is
// inspected: a 401 or 500 still enforces the full window rather than
// hammering a failing endpoint on every render.
func (c *Client) SyncTasks(ctx context.Context) (SyncResult, error) {
	if !c.CanSyncTasks() {
		return SyncResult{Throttled: true}, nil
	}

	if err := c.cache.SetLastSyncAttempt(c.now()); err != nil {
		return SyncResult{}, fmt.Errorf("client: stamp sync mark: %w", err)
	}

	status, body, err := c.request(ctx, http.MethodPost, tasksPath+"/sync", nil)
	if err != nil {
		return SyncResult{}, networkError(err)
	}
	if status == http.StatusUnauthorized {
		return SyncResult{}, authError()
	}
	if status < 200 || status > 299 {
		return SyncResult{}, serverError(status, body)
	}

	var res SyncResult
	if err := json.Unmarshal(body, &res); err != nil {
		return SyncResult{}, &Error{Kind: KindServer, Status: status, Message: "malformed sync result", cause: err}
	}
	c.publish(notify.Event{Type: notify.SyncCompleted, Created: res.Created, Skipped: res.Skipped})
	return res, nil
}

// FlushResult reports one pass of local-cache reconciliation.
type FlushResult struct {
	Submitted int // created on the server and evicted
	Dropped   int // conflicts: already handled server-side, evicted
	Remaining int // still queued after the pass
}

// FlushLocal re-submits locally queued tasks, one at a time. A
// successful creation and a conflict both evict the entry (a conflict
// means the server already has a task for that source). A connectivity
// failure stops the pass with the rest left queued; any other failure
// leaves the entry in place and moves on, since each queued task is
// retried independently.
func (c *Client) FlushLocal(ctx context.Context) (FlushResult, error) {
	queued, err := c.cache.Tasks()
	if err != nil {
		return FlushResult{}, fmt.Errorf("client: read local queue: %w", err)
	}

	var res FlushResult
	for i, t := range queued {
		created, err := c.postTask(ctx, createRequest{
			Title:      t.Title,
			SourceType: t.SourceType,
			SourceID:   t.SourceID,
			Priority:   t.Priority,
			DueAt:      t.DueAt,
			Details:    t.Details,
		})
		if err != nil {
			var ce *Error
			switch {
			case errors.As(err, &ce) && ce.Kind == KindConflict:
				if err := c.cache.Remove(t.LocalID); err != nil {
					return res, fmt.Errorf("client: evict %s: %w", t.LocalID, err)
				}
				res.Dropped++
				continue
			case errors.As(err, &ce) && ce.Kind == KindNetwork:
				res.Remaining = len(queued) - i
				return res, err
			case errors.As(err, &ce) && ce.Kind == KindAuth:
				res.Remaining = len(queued) - i
				return res, err
			default:
				res.Remaining++
				continue
			}
		}

		if err := c.cache.Remove(t.LocalID); err != nil {
			return res, fmt.Errorf("client: evict %s: %w", t.LocalID, err)
		}
		res.Submitted++
		c.publish(notify.Event{Type: notify.TaskCreated, Task: &created})
	}
	return res, nil
}
