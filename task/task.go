// Package task defines the follow-up task model shared by the sync
// client, the local cache, and the dev stand-in server.
package task

import "time"

// SourceType records where a task came from.
type SourceType string

const (
	SourceCall   SourceType = "call"
	SourceSpace  SourceType = "space"
	SourceManual SourceType = "manual"
)

// Priority orders tasks in follow-up views.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Status filters task lists by completion.
type Status string

const (
	StatusOpen Status = "open"
	StatusDone Status = "done"
	StatusAll  Status = "all"
)

// MaxTitleLen is the server-side cap on task titles. Titles are
// truncated, not rejected, on every creation path.
const MaxTitleLen = 180

// Task is a unit of follow-up work.
//
// A task persisted by the server has a non-empty ID. A task created
// while offline exists only in the local cache and carries a LocalID
// surrogate instead; it keeps that key until it is re-submitted.
type Task struct {
	ID           string     `json:"id,omitempty"`
	LocalID      string     `json:"localId,omitempty"`
	Title        string     `json:"title"`
	SourceType   SourceType `json:"sourceType"`
	SourceID     string     `json:"sourceId,omitempty"`
	Priority     Priority   `json:"priority"`
	DueAt        *time.Time `json:"dueAt,omitempty"`
	SnoozedUntil *time.Time `json:"snoozedUntil,omitempty"`
	Details      string     `json:"details,omitempty"`
	Done         bool       `json:"done"`
	CreatedAt    time.Time  `json:"createdAt,omitzero"`
	UpdatedAt    time.Time  `json:"updatedAt,omitzero"`
}

// Provisional reports whether the task exists only in the local cache.
func (t *Task) Provisional() bool {
	return t.ID == "" && t.LocalID != ""
}

// Snoozed reports whether the task is hidden from active views at the
// given instant. A SnoozedUntil in the past counts as not snoozed; the
// field is derived over, never cleared.
func (t *Task) Snoozed(now time.Time) bool {
	return t.SnoozedUntil != nil && t.SnoozedUntil.After(now)
}

// Filter controls which tasks a list request returns. Zero values are
// omitted from the query.
type Filter struct {
	Status     Status
	SourceType SourceType
	SourceID   string
	Limit      int
	SinceDays  int
}

// TruncateTitle caps s at MaxTitleLen characters.
func TruncateTitle(s string) string {
	r := []rune(s)
	if len(r) <= MaxTitleLen {
		return s
	}
	return string(r[:MaxTitleLen])
}
