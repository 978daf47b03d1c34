package orchestrator

import (
	"context"

	"github.com/idrecon/idrecon/internal/model"
)

// Store is the narrow persistence collaborator. Implementations own their
// retries and transactions; the orchestrator logs and continues on store
// errors rather than failing the query.
type Store interface {
	// SaveQueryState persists the query's current lifecycle state.
	SaveQueryState(ctx context.Context, q *model.Query) error

	// SaveTasks persists the settled task list for a query.
	SaveTasks(ctx context.Context, queryID string, tasks []*model.ScannerTask) error

	// SaveEntities persists the entity set for a query.
	SaveEntities(ctx context.Context, queryID string, set *model.EntitySet) error
}

// NopStore discards everything. Used when running without persistence.
type NopStore struct{}

// SaveQueryState implements Store.
func (NopStore) SaveQueryState(context.Context, *model.Query) error { return nil }

// SaveTasks implements Store.
func (NopStore) SaveTasks(context.Context, string, []*model.ScannerTask) error { return nil }

// SaveEntities implements Store.
func (NopStore) SaveEntities(context.Context, string, *model.EntitySet) error { return nil }
