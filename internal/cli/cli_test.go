package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/imkarma/streak/internal/board"
	"github.com/imkarma/streak/internal/config"
	"github.com/imkarma/streak/internal/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command against dir and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	// Flag variables survive between executions; reset them to defaults.
	taskPriority, taskFilterState, taskFilterPrio, taskImpeded = "medium", "", "", false
	migrateForce, migrateRemoveSource = false, false
	logLimit = 10

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--dir", dir, "--no-color"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, "streak %s\n%s", strings.Join(args, " "), out)
	return out
}

func initDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".streak")
	mustRun(t, dir, "init")
	return dir
}

var createdID = regexp.MustCompile(`Created task ([0-9a-f]{8})`)

func addTask(t *testing.T, dir, title, priority string) string {
	t.Helper()
	out := mustRun(t, dir, "task", "add", title, "-p", priority)
	m := createdID.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	return m[1]
}

func TestCommandTree(t *testing.T) {
	want := []string{"init", "task", "log", "board", "stats", "theme", "migrate", "records", "ui"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	for _, sub := range []string{"add", "list", "show", "start", "done", "reopen", "status", "priority", "block", "unblock", "delete"} {
		cmd, _, err := rootCmd.Find([]string{"task", sub})
		require.NoError(t, err, sub)
		assert.Equal(t, sub, cmd.Name())
	}

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("dir"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, migrateCmd.Flags().Lookup("force"))
	assert.NotNil(t, migrateCmd.Flags().Lookup("remove-source"))
}

func TestNotInitialized(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "missing"), "board")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "streak init")
}

func TestInit(t *testing.T) {
	dir := initDir(t)

	for _, f := range []string{"config.yaml", "local.json", "streak.db"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, f)
	}

	_, err := run(t, dir, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already initialized")
}

func TestTaskLifecycle(t *testing.T) {
	dir := initDir(t)
	id := addTask(t, dir, "Write release notes", "high")

	out := mustRun(t, dir, "task", "list")
	assert.Contains(t, out, "Write release notes")
	assert.Contains(t, out, "todo")

	out = mustRun(t, dir, "task", "start", id)
	assert.Contains(t, out, "in_progress")

	out = mustRun(t, dir, "task", "done", id)
	assert.Contains(t, out, "+20 points")
	assert.Contains(t, out, "First Step")

	out = mustRun(t, dir, "task", "show", id)
	assert.Contains(t, out, "todo → in_progress → done")
	assert.Contains(t, out, "Ended:")

	// Reopening and finishing again does not pay twice.
	mustRun(t, dir, "task", "reopen", id)
	out = mustRun(t, dir, "task", "status", id, "done")
	assert.NotContains(t, out, "points")

	out = mustRun(t, dir, "stats")
	assert.Contains(t, out, "20 points")
	assert.Contains(t, out, "Badges (1/")
}

func TestTaskStatusValidation(t *testing.T) {
	dir := initDir(t)
	id := addTask(t, dir, "x", "low")

	_, err := run(t, dir, "task", "status", id, "blocked")
	assert.ErrorIs(t, err, board.ErrInvalidStatus)

	_, err = run(t, dir, "task", "priority", id, "critical")
	assert.ErrorIs(t, err, board.ErrInvalidPriority)

	_, err = run(t, dir, "task", "done", "ffffffff")
	assert.ErrorIs(t, err, board.ErrTaskNotFound)
}

func TestTaskBlockUnblock(t *testing.T) {
	dir := initDir(t)
	id := addTask(t, dir, "Deploy", "medium")

	mustRun(t, dir, "task", "block", id, "waiting", "on", "creds")
	out := mustRun(t, dir, "task", "list", "--impeded")
	assert.Contains(t, out, `IMPEDED: "waiting on creds"`)

	out = mustRun(t, dir, "board")
	assert.Contains(t, out, "Impediments")

	out = mustRun(t, dir, "task", "unblock", id)
	assert.Contains(t, out, "Unblocker")

	out = mustRun(t, dir, "task", "list", "--impeded")
	assert.Contains(t, out, "No tasks found")
}

func TestTaskPriorityAndDelete(t *testing.T) {
	dir := initDir(t)
	low := addTask(t, dir, "Low thing", "low")
	addTask(t, dir, "Urgent thing", "urgent")

	out := mustRun(t, dir, "task", "list")
	assert.Less(t, strings.Index(out, "Urgent thing"), strings.Index(out, "Low thing"))

	mustRun(t, dir, "task", "priority", low, "urgent")
	out = mustRun(t, dir, "task", "list", "--priority", "urgent")
	assert.Contains(t, out, "Low thing")

	mustRun(t, dir, "task", "delete", low)
	out = mustRun(t, dir, "task", "list")
	assert.NotContains(t, out, "Low thing")
}

func TestBoard(t *testing.T) {
	dir := initDir(t)

	out := mustRun(t, dir, "board")
	assert.Contains(t, out, "Board is empty")

	id := addTask(t, dir, "Doing it", "medium")
	addTask(t, dir, "Later", "low")
	mustRun(t, dir, "task", "start", id)

	out = mustRun(t, dir, "board")
	assert.Contains(t, out, "TODO (1)")
	assert.Contains(t, out, "IN PROGRESS (1)")
	assert.Contains(t, out, "DONE (0)")
	assert.Contains(t, out, "2 tasks")
}

func TestTheme(t *testing.T) {
	dir := initDir(t)

	out := mustRun(t, dir, "theme")
	assert.Contains(t, out, "meadow")
	assert.Contains(t, out, "locked (100 pts)")

	_, err := run(t, dir, "theme", "ocean")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")

	for i := 0; i < 3; i++ {
		id := addTask(t, dir, "big", "urgent")
		mustRun(t, dir, "task", "done", id)
	}
	out = mustRun(t, dir, "theme")
	assert.Contains(t, out, "▸ ocean")

	out = mustRun(t, dir, "theme", "meadow")
	assert.Contains(t, out, "Theme: meadow")
	out = mustRun(t, dir, "theme", "auto")
	assert.Contains(t, out, "Theme: ocean")
}

func TestMigrate(t *testing.T) {
	dir := initDir(t)
	id := addTask(t, dir, "Earn", "medium")
	mustRun(t, dir, "task", "done", id)

	out := mustRun(t, dir, "migrate")
	assert.Contains(t, out, "gamification:profile")
	assert.Contains(t, out, "gamification/badges")
	assert.Contains(t, out, "completed: 2 of 2 records migrated")

	out = mustRun(t, dir, "migrate")
	assert.Contains(t, out, "already completed")

	out = mustRun(t, dir, "records")
	assert.Contains(t, out, "gamification")
	assert.Contains(t, out, "2 records")

	out = mustRun(t, dir, "records", "gamification")
	assert.Contains(t, out, "profile")
	assert.Contains(t, out, `"points":10`)

	out = mustRun(t, dir, "migrate", "--force", "--remove-source")
	assert.Contains(t, out, "2 source keys removed")

	keys, err := kv.KeysWithPrefix(kv.OpenFile(filepath.Join(dir, "local.json")), "gamification:")
	require.NoError(t, err)
	assert.Empty(t, keys)

	out = mustRun(t, dir, "migrate", "history")
	assert.Equal(t, 2, strings.Count(out, "gamification-v1"))
}

func TestMigrateReportsMalformedRecords(t *testing.T) {
	dir := initDir(t)
	store := kv.OpenFile(filepath.Join(dir, "local.json"))
	require.NoError(t, store.Set("gamification:profile", `{"points":3}`))
	require.NoError(t, store.Set("gamification:broken", `{not json`))

	out := mustRun(t, dir, "migrate")
	assert.Contains(t, out, "✗ gamification:broken")
	assert.Contains(t, out, "malformed record")
	assert.Contains(t, out, "partial: 1 of 2 records migrated, 1 failed")
}

func TestUnsavedMutationFails(t *testing.T) {
	dir := initDir(t)
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	cfg.Storage.QuotaBytes = 30
	require.NoError(t, config.Save(cfgPath, cfg))

	out, err := run(t, dir, "task", "add", "a task that will not fit")
	require.Error(t, err)
	assert.ErrorIs(t, err, kv.ErrQuotaExceeded)
	assert.Contains(t, err.Error(), "not saved to")
	assert.NotContains(t, out, "Created task")

	out = mustRun(t, dir, "task", "list")
	assert.Contains(t, out, "No tasks found")
}

func TestLog(t *testing.T) {
	dir := initDir(t)

	out := mustRun(t, dir, "log")
	assert.Contains(t, out, "No activity")

	addTask(t, dir, "First", "low")
	addTask(t, dir, "Second", "low")
	out = mustRun(t, dir, "log", "-n", "1")
	assert.Contains(t, out, "Second")
	assert.NotContains(t, out, "First")
}

func TestCorruptStateFallsBack(t *testing.T) {
	dir := initDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.json"), []byte(`{"tasks":"not a list"}`), 0644))

	out := mustRun(t, dir, "task", "list")
	assert.Contains(t, out, "No tasks found")
}
