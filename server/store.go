package server

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/closerbase/tasksync/task"
)

// ErrDuplicateSource is returned when a task with the same
// (sourceType, sourceId) pair already exists.
var ErrDuplicateSource = errors.New("task for this source already exists")

// ErrNotFound is returned for mutations on unknown task IDs.
var ErrNotFound = errors.New("task not found")

// Summary is a next-step line extracted from a call or chat summary,
// queued for the next ingestion run.
type Summary struct {
	Line       string
	SourceType task.SourceType
	SourceID   string
	Contact    string
}

// Store is the in-memory task store behind the stand-in server.
type Store struct {
	mu        sync.Mutex
	tasks     map[string]*task.Task
	summaries []Summary
	now       func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		tasks: make(map[string]*task.Task),
		now:   time.Now,
	}
}

// SetClock overrides the store clock, for tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Create persists a task, enforcing (sourceType, sourceId) uniqueness
// for tasks that carry a source reference.
func (s *Store) Create(t task.Task) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(t)
}

func (s *Store) createLocked(t task.Task) (*task.Task, error) {
	if t.SourceID != "" {
		for _, existing := range s.tasks {
			if existing.SourceID == t.SourceID && existing.SourceType == t.SourceType {
				return nil, ErrDuplicateSource
			}
		}
	}

	t.ID = uuid.NewString()
	t.LocalID = ""
	t.Title = task.TruncateTitle(t.Title)
	if t.SourceType == "" {
		t.SourceType = task.SourceManual
	}
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}
	now := s.now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	s.tasks[t.ID] = &t
	out := t
	return &out, nil
}

// List returns tasks matching the filter, oldest first. Status "open"
// means the active view: not done and not currently snoozed.
func (s *Store) List(f task.Filter) []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out []task.Task
	for _, t := range s.tasks {
		switch f.Status {
		case task.StatusDone:
			if !t.Done {
				continue
			}
		case task.StatusAll:
		default: // open
			if t.Done || t.Snoozed(now) {
				continue
			}
		}
		if f.SourceType != "" && t.SourceType != f.SourceType {
			continue
		}
		if f.SourceID != "" && t.SourceID != f.SourceID {
			continue
		}
		if f.SinceDays > 0 && t.CreatedAt.Before(now.AddDate(0, 0, -f.SinceDays)) {
			continue
		}
		out = append(out, *t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// SetDone toggles a task's completion flag.
func (s *Store) SetDone(id string, done bool) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.Done = done
	t.UpdatedAt = s.now().UTC()
	out := *t
	return &out, nil
}

// SetSnooze sets or clears a task's wake time.
func (s *Store) SetSnooze(id string, until *time.Time) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.SnoozedUntil = until
	t.UpdatedAt = s.now().UTC()
	out := *t
	return &out, nil
}

// QueueSummary adds a next-step line for the next ingestion run.
func (s *Store) QueueSummary(sum Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, sum)
}

// Ingest drains the queued summaries into tasks, skipping lines whose
// (sourceType, sourceId) pair already has one.
func (s *Store) Ingest() (created, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sum := range s.summaries {
		t := task.Task{
			Title:      task.TruncateTitle(sum.Line),
			SourceType: sum.SourceType,
			SourceID:   sum.SourceID,
		}
		if sum.Contact != "" {
			t.Details = "Kontakt: " + sum.Contact
		}
		if _, err := s.createLocked(t); err != nil {
			skipped++
			continue
		}
		created++
	}
	s.summaries = nil
	return created, skipped
}
