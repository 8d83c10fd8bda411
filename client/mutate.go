package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/closerbase/tasksync/notify"
	"github.com/closerbase/tasksync/task"
)

type doneRequest struct {
	Done bool `json:"done"`
}

type snoozeRequest struct {
	SnoozedUntil *string `json:"snoozedUntil"`
}

// MarkTaskDone toggles a task's completion flag on the server.
//
// Unlike creation, a connectivity failure applies no local fallback:
// mutating a task the server owns without confirming remote state risks
// divergence, whereas a brand-new task can always be deferred locally.
// The caller sees a network failure and retries once back online.
func (c *Client) MarkTaskDone(ctx context.Context, id string, done bool) (*task.Task, error) {
	updated, err := c.postMutation(ctx, tasksPath+"/"+id+"/done", doneRequest{Done: done})
	if err != nil {
		return nil, err
	}
	evType := notify.TaskCompleted
	if !done {
		evType = notify.TaskReopened
	}
	c.publish(notify.Event{Type: evType, Task: updated})
	return updated, nil
}

// SnoozeTask hides a task from active views until the wake time the
// snooze directive resolves to (see task.ResolveSnooze for the
// supported directives and the passthrough rule).
func (c *Client) SnoozeTask(ctx context.Context, id, mode string) (*task.Task, error) {
	until := task.ResolveSnooze(mode, c.now())
	updated, err := c.postMutation(ctx, tasksPath+"/"+id+"/snooze", snoozeRequest{SnoozedUntil: &until})
	if err != nil {
		return nil, err
	}
	c.publish(notify.Event{Type: notify.TaskSnoozed, Task: updated})
	return updated, nil
}

// UnsnoozeTask clears a task's wake time, returning it to active views.
func (c *Client) UnsnoozeTask(ctx context.Context, id string) (*task.Task, error) {
	updated, err := c.postMutation(ctx, tasksPath+"/"+id+"/snooze", snoozeRequest{})
	if err != nil {
		return nil, err
	}
	c.publish(notify.Event{Type: notify.TaskUnsnoozed, Task: updated})
	return updated, nil
}

// postMutation runs a POST against a task sub-resource with the shared
// 401/404/network handling of all update operations.
func (c *Client) postMutation(ctx context.Context, path string, payload any) (*task.Task, error) {
	status, body, err := c.request(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, networkError(err)
	}
	switch {
	case status == http.StatusUnauthorized:
		return nil, authError()
	case status == http.StatusNotFound:
		return nil, &Error{Kind: KindNotFound, Status: status, Message: "task not found"}
	case status < 200 || status > 299:
		return nil, serverError(status, body)
	}

	var updated task.Task
	if err := json.Unmarshal(body, &updated); err != nil {
		return nil, &Error{Kind: KindServer, Status: status, Message: "malformed task", cause: err}
	}
	return &updated, nil
}
