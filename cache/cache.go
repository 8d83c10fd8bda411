// Package cache implements the device-local fallback store used by the
// sync client: tasks created while offline, plus the persisted sync
// cooldown mark. Entries are provisional; nothing here is merged with
// server state; eviction happens only through explicit re-submission.
package cache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/closerbase/tasksync/task"
)

const schema = `
CREATE TABLE IF NOT EXISTS local_tasks (
	local_id      TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	source_type   TEXT NOT NULL DEFAULT 'manual',
	source_id     TEXT NOT NULL DEFAULT '',
	priority      TEXT NOT NULL DEFAULT 'medium',
	due_at        DATETIME,
	snoozed_until DATETIME,
	details       TEXT NOT NULL DEFAULT '',
	done          INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS sync_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const lastSyncKey = "last_sync_attempt"

// Store is the device-local storage the sync client falls back to.
// Implementations must keep provisional tasks and the cooldown mark
// independently: the former is unbounded, the latter a single value.
type Store interface {
	// Tasks returns all locally queued tasks, oldest first.
	Tasks() ([]task.Task, error)

	// Put queues a task, assigning a fresh LocalID when it has none.
	Put(t *task.Task) error

	// Remove evicts a queued task by its local key.
	Remove(localID string) error

	// LastSyncAttempt returns the persisted cooldown mark, or the zero
	// time when no sync was ever attempted.
	LastSyncAttempt() (time.Time, error)

	// SetLastSyncAttempt persists a fresh cooldown mark.
	SetLastSyncAttempt(t time.Time) error

	// Close releases the underlying storage.
	Close() error
}

// SQLiteStore is the Store implementation backed by a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path and ensures the
// schema exists. The caller is responsible for calling Close.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Put queues a task for later re-submission. A task without a LocalID
// gets a fresh one; an existing LocalID is overwritten in place.
func (s *SQLiteStore) Put(t *task.Task) error {
	if t.LocalID == "" {
		t.LocalID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO local_tasks
			(local_id, title, source_type, source_id, priority, due_at, snoozed_until, details, done, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.LocalID, t.Title, string(t.SourceType), t.SourceID, string(t.Priority),
		nullTime(t.DueAt), nullTime(t.SnoozedUntil), t.Details, boolInt(t.Done), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("cache task: %w", err)
	}
	return nil
}

// Tasks returns all queued tasks, oldest first.
func (s *SQLiteStore) Tasks() ([]task.Task, error) {
	rows, err := s.db.Query(`
		SELECT local_id, title, source_type, source_id, priority, due_at, snoozed_until, details, done, created_at
		FROM local_tasks ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list cached tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Remove evicts a queued task. Removing an unknown key is not an error;
// eviction after a successful re-submission must be idempotent.
func (s *SQLiteStore) Remove(localID string) error {
	if _, err := s.db.Exec("DELETE FROM local_tasks WHERE local_id=?", localID); err != nil {
		return fmt.Errorf("evict cached task: %w", err)
	}
	return nil
}

// LastSyncAttempt returns the persisted cooldown mark, or the zero time
// when none was ever written.
func (s *SQLiteStore) LastSyncAttempt() (time.Time, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM sync_state WHERE key=?", lastSyncKey).Scan(&v)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read sync mark: %w", err)
	}
	mark, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse sync mark %q: %w", v, err)
	}
	return mark, nil
}

// SetLastSyncAttempt persists a fresh cooldown mark.
func (s *SQLiteStore) SetLastSyncAttempt(t time.Time) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO sync_state (key, value) VALUES (?,?)",
		lastSyncKey, t.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write sync mark: %w", err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*task.Task, error) {
	var t task.Task
	var sourceType, priority string
	var done int
	var dueAt, snoozedUntil sql.NullTime

	err := s.Scan(
		&t.LocalID, &t.Title, &sourceType, &t.SourceID, &priority,
		&dueAt, &snoozedUntil, &t.Details, &done, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.SourceType = task.SourceType(sourceType)
	t.Priority = task.Priority(priority)
	t.Done = done != 0
	if dueAt.Valid {
		t.DueAt = &dueAt.Time
	}
	if snoozedUntil.Valid {
		t.SnoozedUntil = &snoozedUntil.Time
	}
	return &t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
