package cache

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/closerbase/tasksync/task"
)

// MemoryStore is a Store that lives for the process only. It is the
// default when no cache path is configured, and convenient in tests;
// offline durability across restarts requires the SQLite store.
type MemoryStore struct {
	mu       sync.Mutex
	tasks    []task.Task
	lastSync time.Time
}

// NewMemory creates an empty in-process store.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

// Tasks returns all queued tasks, oldest first.
func (m *MemoryStore) Tasks() ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]task.Task, len(m.tasks))
	copy(out, m.tasks)
	return out, nil
}

// Put queues a task, assigning a fresh LocalID when it has none.
func (m *MemoryStore) Put(t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.LocalID == "" {
		t.LocalID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	for i := range m.tasks {
		if m.tasks[i].LocalID == t.LocalID {
			m.tasks[i] = *t
			return nil
		}
	}
	m.tasks = append(m.tasks, *t)
	return nil
}

// Remove evicts a queued task by its local key.
func (m *MemoryStore) Remove(localID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].LocalID == localID {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return nil
}

// LastSyncAttempt returns the cooldown mark, zero when never set.
func (m *MemoryStore) LastSyncAttempt() (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSync, nil
}

// SetLastSyncAttempt stores a fresh cooldown mark.
func (m *MemoryStore) SetLastSyncAttempt(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSync = t
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
