package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/almanac/internal/manager"
	"github.com/mesh-intelligence/almanac/pkg/types"
)

// monday is the fixed "now" of every CLI test.
var monday = time.Date(2026, time.January, 5, 9, 30, 0, 0, time.UTC)

type harness struct {
	t         *testing.T
	configDir string
	dataDir   string
	now       time.Time
	stderr    bytes.Buffer
}

// newHarness points the CLI at fresh directories and the memory backend.
func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("ALMANAC_BACKEND", types.BackendMemory)
	dir := t.TempDir()
	return &harness{
		t:         t,
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
		now:       monday,
	}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	a := &app{now: func() time.Time { return h.now }, stderr: &h.stderr}
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config-dir", h.configDir, "--data-dir", h.dataDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "almanac %s\n%s", strings.Join(args, " "), out)
	return out
}

// add runs an add subcommand and returns the new record's ID.
func (h *harness) add(args ...string) string {
	h.t.Helper()
	id := strings.TrimSpace(h.mustRun(append([]string{"add"}, args...)...))
	require.NotEmpty(h.t, id)
	return id
}

func listJSON[T any](h *harness, kind string) []T {
	h.t.Helper()
	var out []T
	require.NoError(h.t, json.Unmarshal([]byte(h.mustRun("list", kind, "--json")), &out))
	return out
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("version")
	assert.Contains(t, out, "almanac v"+Version)
	assert.Contains(t, out, modulePath)

	_, err := os.Stat(filepath.Join(h.configDir, configFileExt))
	assert.True(t, os.IsNotExist(err), "version must not touch the config directory")
}

func TestDefaultConfigWrittenOnFirstRun(t *testing.T) {
	h := newHarness(t)
	h.mustRun("list", "items")

	data, err := os.ReadFile(filepath.Join(h.configDir, configFileExt))
	require.NoError(t, err)
	var cfg configFile
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	assert.Equal(t, types.SyncImmediate, cfg.SyncStrategy)
	assert.Equal(t, types.PushAll, cfg.PushPolicy)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestInit(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("init", "--sync-strategy", types.SyncOnClose, "--push-policy", types.PushChanged)
	assert.Contains(t, out, "Almanac initialized successfully")
	assert.Contains(t, out, "backend: memory")

	data, err := os.ReadFile(filepath.Join(h.configDir, configFileExt))
	require.NoError(t, err)
	var cfg configFile
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, types.SyncOnClose, cfg.SyncStrategy)
	assert.Equal(t, types.PushChanged, cfg.PushPolicy)

	info, err := os.Stat(h.dataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestInitRejectsUnknownBackend(t *testing.T) {
	h := newHarness(t)
	t.Setenv("ALMANAC_BACKEND", "")
	_, err := h.run("init", "--backend", "floppy")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestInvalidConfigFromEnvironment(t *testing.T) {
	h := newHarness(t)
	t.Setenv("ALMANAC_SYNC_STRATEGY", "sometimes")
	_, err := h.run("list", "items")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSyncStrategyUnknown)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestAddAndList(t *testing.T) {
	h := newHarness(t)
	cat := h.add("category", "Errands", "--color", "green")
	id := h.add("item", "Buy", "milk", "--start", "tomorrow", "--category", cat, "--notes", "2 litres")

	items := listJSON[types.Item](h, "items")
	require.Len(t, items, 1)
	it := items[0]
	assert.Equal(t, id, it.ID)
	assert.Equal(t, "Buy milk", it.Title)
	assert.Equal(t, "2 litres", it.Notes)
	assert.Equal(t, cat, it.CategoryID)
	assert.True(t, it.Start.Equal(time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC)), "start %v", it.Start)
	assert.False(t, it.Recurrence.IsRecurring())
	assert.Equal(t, 0, it.SortOrder)
	assert.True(t, it.LastModified.Equal(monday))

	out := h.mustRun("list", "item")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "2026-01-06 once")
	assert.Contains(t, out, "Total: 1")

	assert.Contains(t, h.mustRun("list", "habits"), "No habits found.")
}

func TestAddItemUnknownCategory(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("add", "item", "Orphan", "--category", "nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAddRejectsBadSchedule(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "until and count together",
			args:    []string{"add", "item", "x", "--every", "daily", "--until", "2026-02-01", "--count", "3"},
			wantErr: types.ErrInvalidPattern,
		},
		{
			name:    "unknown frequency",
			args:    []string{"add", "item", "x", "--every", "hourly"},
			wantErr: types.ErrInvalidPattern,
		},
		{
			name:    "zero interval",
			args:    []string{"add", "habit", "x", "--interval", "0"},
			wantErr: types.ErrInvalidPattern,
		},
		{
			name:    "count without every",
			args:    []string{"add", "item", "x", "--count", "2"},
			wantErr: types.ErrInvalidPattern,
		},
		{
			name:    "routine without steps",
			args:    []string{"add", "routine", "x"},
			wantErr: types.ErrInvalidData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.run(tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, exitUserError, exitCode(err))
		})
	}
}

func TestAddRejectsBadDate(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("add", "item", "x", "--start", "05/01/2026")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestMoveAndDelete(t *testing.T) {
	h := newHarness(t)
	a := h.add("category", "a")
	h.add("category", "b")
	h.add("category", "c")

	assert.Contains(t, h.mustRun("move", "categories", "2", "0"), "Moved categories 2 to 0")
	cats := listJSON[types.Category](h, "categories")
	require.Len(t, cats, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{cats[0].Name, cats[1].Name, cats[2].Name})

	assert.Contains(t, h.mustRun("delete", "category", a), "Deleted categories "+a)
	cats = listJSON[types.Category](h, "categories")
	require.Len(t, cats, 2)
	assert.Equal(t, "c", cats[0].Name)
	assert.Equal(t, 0, cats[0].SortOrder)
	assert.Equal(t, "b", cats[1].Name)
	assert.Equal(t, 1, cats[1].SortOrder)

	_, err := h.run("move", "categories", "5", "0")
	assert.ErrorIs(t, err, types.ErrInvalidPosition)
	_, err = h.run("move", "categories", "one", "0")
	assert.ErrorIs(t, err, types.ErrInvalidPosition)
	_, err = h.run("delete", "categories", a)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUnknownKind(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("list", "widgets")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnknownKind)
	assert.Contains(t, err.Error(), validKindsStr)
}

func TestDone(t *testing.T) {
	h := newHarness(t)
	id := h.add("item", "File taxes")
	assert.Contains(t, h.mustRun("done", id), `Completed "File taxes"`)

	items := listJSON[types.Item](h, "items")
	require.Len(t, items, 1)
	assert.True(t, items[0].Completed)

	_, err := h.run("done", "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCheck(t *testing.T) {
	h := newHarness(t)
	habit := h.add("habit", "Read")

	assert.Contains(t, h.mustRun("check", habit), "Checked in 2026-01-05 (count 1)")
	assert.Contains(t, h.mustRun("check", habit), "Checked in 2026-01-05 (count 2)")
	h.mustRun("check", habit, "--day", "yesterday")

	completions := listJSON[types.HabitCompletion](h, "completions")
	require.Len(t, completions, 2)
	assert.Equal(t, 2, completions[0].Count)
	assert.Equal(t, 1, completions[1].Count)
	assert.True(t, completions[1].Day.Equal(time.Date(2026, time.January, 4, 0, 0, 0, 0, time.UTC)))

	_, err := h.run("check", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestStep(t *testing.T) {
	h := newHarness(t)
	routine := h.add("routine", "Morning", "--step", "Stretch", "--step", "Coffee")

	assert.Contains(t, h.mustRun("step", routine, "1"), "Morning: 1 of 2 steps done")
	assert.Contains(t, h.mustRun("step", routine, "0"), "Morning: 2 of 2 steps done")

	progress := listJSON[types.RoutineProgress](h, "progress")
	require.Len(t, progress, 1)
	assert.Equal(t, []int{0, 1}, progress[0].CompletedSteps)

	_, err := h.run("step", routine, "2")
	assert.ErrorIs(t, err, types.ErrInvalidPosition)
}

func TestNext(t *testing.T) {
	h := newHarness(t)
	rent := h.add("item", "Rent", "--start", "2026-01-31", "--every", "monthly")
	once := h.add("item", "Dentist", "--start", "2026-01-07")

	assert.Equal(t, "Rent: 2026-01-31 Sat\n", h.mustRun("next", "items", rent))
	assert.Equal(t, "Rent: 2026-02-28 Sat\n", h.mustRun("next", "items", rent, "--after", "2026-01-31"))
	assert.Equal(t, "Dentist: 2026-01-07 Wed\n", h.mustRun("next", "item", once))
	assert.Equal(t, "Dentist has no occurrence after 2026-01-07\n", h.mustRun("next", "item", once, "--after", "2026-01-07"))

	var out struct {
		ID   string     `json:"id"`
		Next *time.Time `json:"next"`
	}
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("next", "items", once, "--after", "2026-02-01", "--json")), &out))
	assert.Equal(t, once, out.ID)
	assert.Nil(t, out.Next)

	cat := h.add("category", "Home")
	_, err := h.run("next", "categories", cat)
	assert.ErrorIs(t, err, types.ErrUnknownKind)
}

func TestAgendaGolden(t *testing.T) {
	h := newHarness(t)
	h.add("item", "Dentist", "--start", "2026-01-07")
	h.add("item", "Standup", "--every", "daily", "--count", "3")
	h.add("item", "Trash", "--start", "2026-01-02", "--every", "weekly")
	h.add("habit", "Read")
	h.add("routine", "Morning", "--step", "Stretch", "--step", "Coffee", "--every", "weekly", "--start", "2026-01-06")

	out := h.mustRun("agenda")

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "agenda", []byte(out))
}

func TestAgendaRange(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "Nothing scheduled.\n", h.mustRun("agenda"))

	h.add("item", "Rent", "--start", "2026-01-31", "--every", "monthly", "--count", "3")
	var entries []struct {
		Day  time.Time `json:"day"`
		Kind string    `json:"kind"`
	}
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("agenda", "--from", "2026-01-01", "--to", "2026-12-31", "--json")), &entries))
	require.Len(t, entries, 3)
	var days []string
	for _, e := range entries {
		days = append(days, e.Day.Format(time.DateOnly))
	}
	assert.Equal(t, []string{"2026-01-31", "2026-02-28", "2026-03-31"}, days)

	_, err := h.run("agenda", "--from", "2026-02-01", "--to", "2026-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before")
}

func TestSyncSharesRecordsThroughRemote(t *testing.T) {
	h := newHarness(t)
	t.Setenv("ALMANAC_BACKEND", types.BackendSQLite)
	t.Setenv("ALMANAC_REMOTE_PATH", filepath.Join(t.TempDir(), "shared.db"))

	h.add("item", "Shared")
	h.mustRun("sync")

	other := newHarness(t)
	t.Setenv("ALMANAC_BACKEND", types.BackendSQLite)
	var results map[string]manager.SyncResult
	require.NoError(t, json.Unmarshal([]byte(other.mustRun("sync", "--json")), &results))
	assert.Equal(t, 1, results[types.KindItems].Fetched)
	assert.Equal(t, 1, results[types.KindItems].Merged)
	assert.Equal(t, 0, results[types.KindHabits].Fetched)

	items := listJSON[types.Item](other, "items")
	require.Len(t, items, 1)
	assert.Equal(t, "Shared", items[0].Title)
	assert.NotEmpty(t, items[0].Ref)

	out := other.mustRun("sync")
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, types.KindRoutineProgress)
}

func TestMetricsFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "almanac.prom")
	t.Setenv("ALMANAC_METRICS_FILE", path)

	h.add("item", "Measured")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "almanac_remote_operations_total")
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		verbose   bool
		wantDebug bool
		wantInfo  bool
	}{
		{name: "warn", level: "warn"},
		{name: "info", level: "info", wantInfo: true},
		{name: "unknown level falls back to warn", level: "loud"},
		{name: "verbose overrides level", level: "error", verbose: true, wantDebug: true, wantInfo: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level, tt.verbose)
			logger.Debug("debug line")
			logger.Info("info line")
			logger.Warn("warn line")

			out := buf.String()
			assert.Equal(t, tt.wantDebug, strings.Contains(out, "debug line"))
			assert.Equal(t, tt.wantInfo, strings.Contains(out, "info line"))
			assert.Contains(t, out, "warn line")
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"not found", fmt.Errorf("item: %w", types.ErrNotFound), exitUserError},
		{"invalid pattern", types.ErrInvalidPattern, exitUserError},
		{"remote unavailable", fmt.Errorf("sync items: %w", types.ErrRemoteUnavailable), exitSysError},
		{"transient fetch", types.ErrTransientFetch, exitSysError},
		{"save rejected", errors.Join(errors.New("other"), types.ErrSaveRejected), exitSysError},
		{"system error", sysErr(errors.New("disk full")), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
