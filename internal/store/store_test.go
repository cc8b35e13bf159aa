package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file not created")
	}
}

func TestNew_ReopenExisting(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Put(ctx, "gamification", "profile", []byte(`{"points":10}`))
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	r, err := s.Get(ctx, "gamification", "profile")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(r.Value) != `{"points":10}` {
		t.Errorf("unexpected value %q", r.Value)
	}
}

func TestPutAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "gamification", "badges", []byte(`["first-step"]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	r, err := s.Get(ctx, "gamification", "badges")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.Namespace != "gamification" || r.Key != "badges" {
		t.Errorf("unexpected identity %s/%s", r.Namespace, r.Key)
	}
	if string(r.Value) != `["first-step"]` {
		t.Errorf("expected payload unchanged, got %q", r.Value)
	}
	if r.CreatedAt.IsZero() || r.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestPut_RequiresNamespaceAndKey(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "", "k", []byte("1")); err == nil {
		t.Error("expected error for empty namespace")
	}
	if err := s.Put(ctx, "ns", "", []byte("1")); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestPut_Overwrites(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.Put(ctx, "gamification", "theme", []byte(`"meadow"`))
	first, _ := s.Get(ctx, "gamification", "theme")

	if err := s.Put(ctx, "gamification", "theme", []byte(`"ocean"`)); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}

	got, _ := s.Get(ctx, "gamification", "theme")
	if string(got.Value) != `"ocean"` {
		t.Errorf("expected overwritten value, got %q", got.Value)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("expected creation time to be kept, %v != %v", got.CreatedAt, first.CreatedAt)
	}

	n, _ := s.Count(ctx, "gamification")
	if n != 1 {
		t.Errorf("expected 1 record after overwrite, got %d", n)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.Get(context.Background(), "gamification", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.Put(ctx, "ns", "a", []byte("1"))
	if err := s.Delete(ctx, "ns", "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "ns", "a"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if _, err := s.Get(ctx, "ns", "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected record gone, got %v", err)
	}
}

func TestListAndNamespaces(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.Put(ctx, "gamification", "theme", []byte("1"))
	s.Put(ctx, "gamification", "badges", []byte("2"))
	s.Put(ctx, "archive", "tasks", []byte("3"))

	records, err := s.List(ctx, "gamification")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Key != "badges" || records[1].Key != "theme" {
		t.Errorf("expected key order [badges theme], got [%s %s]", records[0].Key, records[1].Key)
	}

	nss, err := s.Namespaces(ctx)
	if err != nil {
		t.Fatalf("Namespaces: %v", err)
	}
	if len(nss) != 2 || nss[0] != "archive" || nss[1] != "gamification" {
		t.Errorf("unexpected namespaces %v", nss)
	}
}

func TestPut_CancelledContext(t *testing.T) {
	s := testStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Put(ctx, "ns", "k", []byte("1")); err == nil {
		t.Fatal("expected error with cancelled context")
	}
}

func TestMigrationRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	last, err := s.LastRun(ctx, "gamification-v1")
	if err != nil {
		t.Fatalf("LastRun empty: %v", err)
	}
	if last != nil {
		t.Fatalf("expected no run, got %+v", last)
	}

	id, err := s.StartRun(ctx, "gamification-v1")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	last, _ = s.LastRun(ctx, "gamification-v1")
	if last == nil || last.Status != RunRunning {
		t.Fatalf("expected running run, got %+v", last)
	}
	if !last.EndedAt.IsZero() {
		t.Error("expected no end time while running")
	}

	out := RunOutcome{Status: RunPartial, Total: 3, Migrated: 2, Failed: 1}
	if err := s.EndRun(ctx, id, out); err != nil {
		t.Fatalf("EndRun: %v", err)
	}

	last, _ = s.LastRun(ctx, "gamification-v1")
	if last.Status != RunPartial || last.Total != 3 || last.Migrated != 2 || last.Failed != 1 {
		t.Errorf("unexpected run %+v", last)
	}
	if last.EndedAt.IsZero() {
		t.Error("expected end time to be set")
	}

	s.StartRun(ctx, "other")
	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].Name != "other" {
		t.Errorf("expected newest first, got %+v", runs)
	}
}
