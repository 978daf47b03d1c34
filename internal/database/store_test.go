package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/idrecon/idrecon/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func testQuery(t *testing.T) *model.Query {
	t.Helper()
	q, err := model.NewQuery(model.QueryTypeEmail, "alice@example.com", model.Options{})
	if err != nil {
		t.Fatalf("NewQuery() = %v, want nil", err)
	}
	return q
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		dbPath := filepath.Join(dbDir, "idrecon.db")
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		opts := Options{CreateIfNotExists: false, EnableWAL: true}
		if _, err := Open(filepath.Join(t.TempDir(), "missing"), opts); err == nil {
			t.Error("Open() = nil error, want error for missing database")
		}
	})
}

func TestStoreQueryState(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	q := testQuery(t)

	if err := db.SaveQueryState(ctx, q); err != nil {
		t.Fatalf("SaveQueryState() = %v, want nil", err)
	}

	// Advance the lifecycle and save again; the row must update in place.
	q.Status = model.StatusComplete
	q.CompletedAt = time.Now()
	if err := db.SaveQueryState(ctx, q); err != nil {
		t.Fatalf("SaveQueryState(update) = %v, want nil", err)
	}

	res, err := db.LoadResult(ctx, q.ID)
	if err != nil {
		t.Fatalf("LoadResult() = %v, want nil", err)
	}
	if res == nil {
		t.Fatal("LoadResult() = nil, want result")
	}
	if res.Status != model.StatusComplete {
		t.Errorf("Status = %v, want %v", res.Status, model.StatusComplete)
	}
	if res.Value != "alice@example.com" {
		t.Errorf("Value = %q, want alice@example.com", res.Value)
	}
	if res.CompletedAt.IsZero() {
		t.Error("CompletedAt is zero after completion was saved")
	}
}

func TestStoreTasks(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	q := testQuery(t)
	if err := db.SaveQueryState(ctx, q); err != nil {
		t.Fatalf("SaveQueryState() = %v, want nil", err)
	}

	task := model.NewScannerTask(q.ID, "mxprobe")
	task.Status = model.TaskSucceeded
	task.Attempts = 2
	task.Latency = 120 * time.Millisecond
	task.StartedAt = time.Now().Add(-time.Second)
	task.FinishedAt = time.Now()

	failed := model.NewScannerTask(q.ID, "gravatar")
	failed.Status = model.TaskFailed
	failed.ErrorKind = model.ErrorKindPermanent
	failed.ErrorMessage = "upstream said no"
	failed.Attempts = 1

	if err := db.SaveTasks(ctx, q.ID, []*model.ScannerTask{task, failed}); err != nil {
		t.Fatalf("SaveTasks() = %v, want nil", err)
	}

	res, err := db.LoadResult(ctx, q.ID)
	if err != nil {
		t.Fatalf("LoadResult() = %v, want nil", err)
	}
	if len(res.Scanners) != 2 {
		t.Fatalf("len(Scanners) = %d, want 2", len(res.Scanners))
	}
	// Outcomes come back ordered by scanner name.
	if res.Scanners[0].Scanner != "gravatar" || res.Scanners[1].Scanner != "mxprobe" {
		t.Errorf("scanner order = [%s %s], want [gravatar mxprobe]",
			res.Scanners[0].Scanner, res.Scanners[1].Scanner)
	}
	if res.Scanners[1].Latency != 120*time.Millisecond {
		t.Errorf("Latency = %v, want 120ms", res.Scanners[1].Latency)
	}
	if res.Scanners[0].ErrorKind != model.ErrorKindPermanent {
		t.Errorf("ErrorKind = %v, want %v", res.Scanners[0].ErrorKind, model.ErrorKindPermanent)
	}

	// Saving again replaces rather than appends.
	if err := db.SaveTasks(ctx, q.ID, []*model.ScannerTask{task}); err != nil {
		t.Fatalf("SaveTasks(replace) = %v, want nil", err)
	}
	res, err = db.LoadResult(ctx, q.ID)
	if err != nil {
		t.Fatalf("LoadResult() = %v, want nil", err)
	}
	if len(res.Scanners) != 1 {
		t.Errorf("len(Scanners) after replace = %d, want 1", len(res.Scanners))
	}
}

func TestStoreEntities(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	q := testQuery(t)
	if err := db.SaveQueryState(ctx, q); err != nil {
		t.Fatalf("SaveQueryState() = %v, want nil", err)
	}

	rec := &model.NormalizedRecord{
		Source:    "mxprobe",
		QueryType: model.QueryTypeEmail,
		Fields:    map[string]string{model.FieldEmail: "alice@example.com"},
	}
	low := model.NewEntity()
	low.Records = append(low.Records, rec)
	low.Sources = []string{"mxprobe"}
	low.Confidence = 0.3
	high := model.NewEntity()
	high.Records = append(high.Records, rec)
	high.Sources = []string{"mxprobe"}
	high.Fields[model.FieldEmail] = model.FieldValue{Value: "alice@example.com", Count: 1, Sources: []string{"mxprobe"}}
	high.Confidence = 0.9

	set := &model.EntitySet{
		Entities: []*model.Entity{low, high},
		Excluded: []model.ExcludedRecord{
			{Record: rec, Reason: "parse_error"},
		},
	}
	if err := db.SaveEntities(ctx, q.ID, set); err != nil {
		t.Fatalf("SaveEntities() = %v, want nil", err)
	}

	res, err := db.LoadResult(ctx, q.ID)
	if err != nil {
		t.Fatalf("LoadResult() = %v, want nil", err)
	}
	if len(res.Entities) != 2 {
		t.Fatalf("len(Entities) = %d, want 2", len(res.Entities))
	}
	// Best confidence first.
	if res.Entities[0].ID != high.ID {
		t.Errorf("Entities[0].ID = %s, want the high-confidence entity", res.Entities[0].ID)
	}
	if got := res.Entities[0].Fields[model.FieldEmail].Value; got != "alice@example.com" {
		t.Errorf("round-tripped email = %q, want alice@example.com", got)
	}
	if len(res.Excluded) != 1 || res.Excluded[0].Reason != "parse_error" {
		t.Errorf("Excluded = %+v, want one parse_error entry", res.Excluded)
	}
}

func TestLoadResultUnknownQuery(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	res, err := db.LoadResult(context.Background(), "nope")
	if err != nil {
		t.Fatalf("LoadResult() = %v, want nil", err)
	}
	if res != nil {
		t.Errorf("LoadResult(unknown) = %+v, want nil", res)
	}
}

func TestListQueries(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	first := testQuery(t)
	first.CreatedAt = time.Now().Add(-time.Hour)
	second := testQuery(t)

	if err := db.SaveQueryState(ctx, first); err != nil {
		t.Fatalf("SaveQueryState() = %v, want nil", err)
	}
	if err := db.SaveQueryState(ctx, second); err != nil {
		t.Fatalf("SaveQueryState() = %v, want nil", err)
	}

	queries, err := db.ListQueries(ctx)
	if err != nil {
		t.Fatalf("ListQueries() = %v, want nil", err)
	}
	if len(queries) != 2 {
		t.Fatalf("len(queries) = %d, want 2", len(queries))
	}
	if queries[0].ID != second.ID {
		t.Errorf("queries[0].ID = %s, want the newest query first", queries[0].ID)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemoryStore()
	q := testQuery(t)

	if err := m.SaveQueryState(ctx, q); err != nil {
		t.Fatalf("SaveQueryState() = %v, want nil", err)
	}

	task := model.NewScannerTask(q.ID, "mxprobe")
	task.Status = model.TaskSucceeded
	if err := m.SaveTasks(ctx, q.ID, []*model.ScannerTask{task}); err != nil {
		t.Fatalf("SaveTasks() = %v, want nil", err)
	}

	ent := model.NewEntity()
	ent.Records = append(ent.Records, &model.NormalizedRecord{Source: "mxprobe"})
	if err := m.SaveEntities(ctx, q.ID, &model.EntitySet{Entities: []*model.Entity{ent}}); err != nil {
		t.Fatalf("SaveEntities() = %v, want nil", err)
	}

	res, err := m.LoadResult(ctx, q.ID)
	if err != nil {
		t.Fatalf("LoadResult() = %v, want nil", err)
	}
	if res == nil {
		t.Fatal("LoadResult() = nil, want result")
	}
	if len(res.Entities) != 1 || len(res.Scanners) != 1 {
		t.Errorf("result = %d entities, %d scanners; want 1 and 1", len(res.Entities), len(res.Scanners))
	}

	missing, err := m.LoadResult(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("LoadResult(unknown) = (%+v, %v), want (nil, nil)", missing, err)
	}
}
