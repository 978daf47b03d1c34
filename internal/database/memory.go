package database

import (
	"context"
	"slices"
	"sync"

	"github.com/idrecon/idrecon/internal/model"
)

// MemoryStore keeps query state in process memory. Used for serve mode
// without a database and for tests.
type MemoryStore struct {
	mu       sync.Mutex
	queries  map[string]*model.Query
	tasks    map[string][]*model.ScannerTask
	entities map[string]*model.EntitySet
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		queries:  make(map[string]*model.Query),
		tasks:    make(map[string][]*model.ScannerTask),
		entities: make(map[string]*model.EntitySet),
	}
}

// SaveQueryState stores a copy of the query's lifecycle state.
func (m *MemoryStore) SaveQueryState(_ context.Context, q *model.Query) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *q
	m.queries[q.ID] = &cp
	return nil
}

// SaveTasks stores the task list for a query.
func (m *MemoryStore) SaveTasks(_ context.Context, queryID string, tasks []*model.ScannerTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[queryID] = slices.Clone(tasks)
	return nil
}

// SaveEntities stores the entity set for a query.
func (m *MemoryStore) SaveEntities(_ context.Context, queryID string, set *model.EntitySet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[queryID] = set
	return nil
}

// LoadResult rebuilds the result view of a stored query.
// Returns nil when the query is unknown.
func (m *MemoryStore) LoadResult(_ context.Context, queryID string) (*model.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queries[queryID]
	if !ok {
		return nil, nil
	}

	res := &model.Result{
		QueryID:       q.ID,
		Type:          q.Type,
		Value:         q.Value,
		Status:        q.Status,
		FailureReason: q.FailureReason,
		CreatedAt:     q.CreatedAt,
		CompletedAt:   q.CompletedAt,
	}
	if set, ok := m.entities[queryID]; ok {
		res.Entities = set.Entities
		res.Excluded = set.Excluded
	}
	for _, task := range m.tasks[queryID] {
		res.Scanners = append(res.Scanners, model.OutcomeFromTask(task))
	}

	return res, nil
}
