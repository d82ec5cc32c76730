package corpus_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab271/dmvoor/pkg/config"
	"github.com/lab271/dmvoor/pkg/corpus"
	"github.com/lab271/dmvoor/pkg/export"
	"github.com/lab271/dmvoor/pkg/generator"
)

func setupTestStore(t *testing.T) corpus.Store {
	t.Helper()

	cfg := &config.CorpusConfig{
		Enabled: true,
		Driver:  "sqlite",
		SQLite:  config.SQLiteConfig{Path: ":memory:"},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := corpus.NewStore(log, cfg)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func testRun(runID, workload string, generatedAt time.Time) *corpus.Run {
	return &corpus.Run{
		RunID:         runID,
		Workload:      workload,
		Seed:          42,
		Days:          7,
		IntervalHours: 1,
		QueryCount:    100,
		Intervals:     168,
		Format:        "text",
		GeneratedAt:   generatedAt,
		IndexedAt:     time.Now().UTC(),
	}
}

func TestStore_RecordRunIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()

	require.NoError(t, s.RecordRun(ctx, testRun("run-idem", "oltp", now)))

	// Record the same run id again; the call must succeed and must not
	// create a duplicate row.
	require.NoError(t, s.RecordRun(ctx, testRun("run-idem", "olap", now)))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1, "recording must not duplicate the row")

	// The original values are preserved (first-write-wins with the
	// current Assign+FirstOrCreate implementation).
	assert.Equal(t, "oltp", runs[0].Workload)
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-old", "run-mid", "run-new"} {
		run := testRun(id, "mixed", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, s.RecordRun(ctx, run))
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-new", runs[0].RunID)
	assert.Equal(t, "run-old", runs[2].RunID)

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "run-new", limited[0].RunID)
	assert.Equal(t, "run-mid", limited[1].RunID)
}

func TestStore_GetRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, testRun("run-get", "oltp", time.Now().UTC())))

	run, err := s.GetRun(ctx, "run-get")
	require.NoError(t, err)
	assert.Equal(t, "oltp", run.Workload)
	assert.Equal(t, int64(42), run.Seed)
	assert.Equal(t, 168, run.Intervals)

	_, err = s.GetRun(ctx, "run-missing")
	assert.ErrorIs(t, err, corpus.ErrRunNotFound)
}

func TestStore_DeleteRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, testRun("run-del", "oltp", time.Now().UTC())))
	require.NoError(t, s.DeleteRun(ctx, "run-del"))

	_, err := s.GetRun(ctx, "run-del")
	assert.ErrorIs(t, err, corpus.ErrRunNotFound)

	// Deleting an id that is not indexed reports not found.
	assert.ErrorIs(t, s.DeleteRun(ctx, "run-del"), corpus.ErrRunNotFound)
}

func TestStore_ListWorkloads(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	seeds := []struct {
		id       string
		workload string
	}{
		{"run-w1", "oltp"},
		{"run-w2", "olap"},
		{"run-w3", "oltp"},
	}
	for _, seed := range seeds {
		require.NoError(t, s.RecordRun(ctx, testRun(seed.id, seed.workload, time.Now().UTC())))
	}

	workloads, err := s.ListWorkloads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"olap", "oltp"}, workloads)
}

func TestStore_UnsupportedDriver(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := corpus.NewStore(log, &config.CorpusConfig{Enabled: true, Driver: "mysql"})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported corpus driver")
}

func TestRunFromSummary(t *testing.T) {
	summary := &export.Summary{
		RunID:         "run-map",
		GeneratedAt:   time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC),
		Workload:      "mixed",
		Seed:          1234,
		WindowStart:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:     time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
		IntervalHours: 1,
		QueryCount:    50,
		Format:        "csv",
		ConfigDigest:  "abc123",
		Counts: generator.Counts{
			Intervals:    168,
			QueryTexts:   50,
			Queries:      50,
			Plans:        60,
			RuntimeStats: 900,
			WaitStats:    400,
			ErrorLog:     30,
		},
		OutputBytes: 4096,
	}

	run, err := corpus.RunFromSummary(summary, "/data/out/run-map")
	require.NoError(t, err)

	assert.Equal(t, "run-map", run.RunID)
	assert.Equal(t, "mixed", run.Workload)
	assert.Equal(t, int64(1234), run.Seed)
	assert.Equal(t, 7, run.Days)
	assert.Equal(t, 1, run.IntervalHours)
	assert.Equal(t, 50, run.QueryCount)
	assert.Equal(t, 168, run.Intervals)
	assert.Equal(t, 50, run.QueryTexts)
	assert.Equal(t, 60, run.Plans)
	assert.Equal(t, 900, run.RuntimeStats)
	assert.Equal(t, 400, run.WaitStats)
	assert.Equal(t, 30, run.ErrorLog)
	assert.Equal(t, "/data/out/run-map", run.OutputDir)
	assert.Equal(t, "csv", run.Format)
	assert.Equal(t, "abc123", run.ConfigDigest)
	assert.Equal(t, int64(4096), run.SizeBytes)
	assert.False(t, run.IndexedAt.IsZero())
}

func TestRunFromSummary_MissingRunID(t *testing.T) {
	_, err := corpus.RunFromSummary(&export.Summary{Workload: "oltp"}, "/out")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run_id")
}

func writeTestSummary(t *testing.T, dir, runID, workload string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0o755))

	summary := &export.Summary{
		RunID:         runID,
		GeneratedAt:   time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC),
		Workload:      workload,
		Seed:          7,
		WindowStart:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:     time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
		IntervalHours: 1,
		QueryCount:    10,
		Format:        "text",
		Counts:        generator.Counts{Intervals: 48, RuntimeStats: 96},
		OutputBytes:   1024,
	}

	require.NoError(t, export.WriteSummary(dir, summary, nil))
}

func TestStore_Rescan(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	root := t.TempDir()

	runA := filepath.Join(root, "runA")
	writeTestSummary(t, runA, "run-a", "oltp")

	// A summary below an already matched directory is not descended into.
	writeTestSummary(t, filepath.Join(runA, "inner"), "run-ignored", "oltp")

	runB := filepath.Join(root, "nested", "deeper", "runB")
	writeTestSummary(t, runB, "run-b", "olap")

	// A directory with an unreadable summary is counted as failed.
	broken := filepath.Join(root, "broken")
	require.NoError(t, os.MkdirAll(broken, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(broken, export.SummaryFilename), []byte("{not json"), 0o644))

	result, err := s.Rescan(ctx, []string{root})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Candidates)
	assert.Equal(t, 2, result.Indexed)
	assert.Equal(t, 1, result.Failed)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	run, err := s.GetRun(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, runA, run.OutputDir)
	assert.Equal(t, "oltp", run.Workload)
	assert.Equal(t, 2, run.Days)
	assert.Equal(t, 48, run.Intervals)
	assert.Equal(t, 96, run.RuntimeStats)

	// Rescanning the same roots is idempotent.
	again, err := s.Rescan(ctx, []string{root})
	require.NoError(t, err)
	assert.Equal(t, 2, again.Indexed)

	runs, err = s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	// A deleted index entry comes back on the next scan while its files
	// are still on disk.
	require.NoError(t, s.DeleteRun(ctx, "run-b"))

	_, err = s.Rescan(ctx, []string{root})
	require.NoError(t, err)

	restored, err := s.GetRun(ctx, "run-b")
	require.NoError(t, err)
	assert.Equal(t, runB, restored.OutputDir)
}

func TestStore_RescanMissingRoot(t *testing.T) {
	s := setupTestStore(t)

	result, err := s.Rescan(context.Background(), []string{
		filepath.Join(t.TempDir(), "does-not-exist"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Candidates)
	assert.Equal(t, 0, result.Indexed)
	assert.Equal(t, 0, result.Failed)
}

func TestStore_RescanHandEditedSummary(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "hand-edited")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	// Numbers quoted as strings still ingest through the weakly typed
	// decoder.
	raw := `{
		"run_id": "run-weird",
		"generated_at": "2024-03-05T08:30:00Z",
		"workload": "mixed",
		"seed": "42",
		"window_start": "2024-03-01T00:00:00Z",
		"window_end": "2024-03-03T00:00:00Z",
		"interval_hours": "1",
		"query_count": 10,
		"format": "text",
		"counts": {"intervals": 48, "runtime_stats": "96"}
	}`
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, export.SummaryFilename), []byte(raw), 0o644))

	result, err := s.Rescan(ctx, []string{dir})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)

	run, err := s.GetRun(ctx, "run-weird")
	require.NoError(t, err)
	assert.Equal(t, int64(42), run.Seed)
	assert.Equal(t, 1, run.IntervalHours)
	assert.Equal(t, 2, run.Days)
	assert.Equal(t, 48, run.Intervals)
	assert.Equal(t, 96, run.RuntimeStats)
	assert.WithinDuration(t,
		time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC), run.GeneratedAt, time.Second)
}
