package analyze

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab271/dmvoor/pkg/config"
	"github.com/lab271/dmvoor/pkg/export"
	"github.com/lab271/dmvoor/pkg/generator"
)

// runtimeRow builds a runtime stats row with the given metric fields and
// zeros everywhere else.
func runtimeRow(planID, executions, duration, cpu, logical, physical, rowcount string) Row {
	row := make(Row, 40)
	for i := range row {
		row[i] = "0"
	}

	row[colPlanID] = planID
	row[colCountExecutions] = executions
	row[colAvgDuration] = duration
	row[colAvgCPUTime] = cpu
	row[colAvgLogicalReads] = logical
	row[colAvgPhysicalReads] = physical
	row[colAvgRowcount] = rowcount

	return row
}

func waitRow(planID, category string) Row {
	row := make(Row, 10)
	for i := range row {
		row[i] = "0"
	}

	row[0] = planID
	row[colWaitCategory] = category

	return row
}

func TestAnalyzeRuntimeStats(t *testing.T) {
	rows := []Row{
		runtimeRow("1", "20", "1000", "800", "100", "5", "10"),
		runtimeRow("1", "20", "2000", "1600", "200", "10", "20"),
		runtimeRow("2", "20", "3000", "2400", "300", "15", "30"),
		runtimeRow("2", "20", "4000", "3200", "400", "20", "40"),
	}

	profile := AnalyzeRuntimeStats(rows)

	assert.InDelta(t, 2500, profile.DurationMean, 1e-9)
	assert.InDelta(t, 2500, profile.DurationMedian, 1e-9)
	assert.InDelta(t, math.Sqrt(1.25e6), profile.DurationStddev, 1e-6)
	assert.InDelta(t, 3850, profile.DurationP95, 1e-9)
	assert.InDelta(t, 3970, profile.DurationP99, 1e-9)

	assert.InDelta(t, 2000, profile.CPUMean, 1e-9)
	assert.InDelta(t, 0.8, profile.CPUToDurationRatio, 1e-9)

	assert.InDelta(t, 250, profile.LogicalReadsMean, 1e-9)
	assert.InDelta(t, 12.5, profile.PhysicalReadsMean, 1e-9)
	assert.InDelta(t, 0.05, profile.PhysicalReadRatio, 1e-9)

	assert.InDelta(t, 25, profile.RowcountMean, 1e-9)
	assert.InDelta(t, 20, profile.ExecutionsPerInterval, 1e-9)

	// Duration and logical reads are perfectly linear here.
	assert.InDelta(t, 1.0, profile.DurationReadsCorrelation, 1e-9)
}

func TestAnalyzeRuntimeStats_Empty(t *testing.T) {
	assert.Equal(t, DefaultProfile(), AnalyzeRuntimeStats(nil))
}

func TestAnalyzeRuntimeStats_AnchorsWhenNothingPositive(t *testing.T) {
	rows := []Row{runtimeRow("1", "0", "0", "0", "0", "0", "0")}

	profile := AnalyzeRuntimeStats(rows)

	assert.InDelta(t, 1000, profile.DurationMean, 1e-9)
	assert.InDelta(t, 800, profile.CPUMean, 1e-9)
	assert.InDelta(t, 100, profile.LogicalReadsMean, 1e-9)
	assert.InDelta(t, 10, profile.PhysicalReadsMean, 1e-9)
	assert.InDelta(t, 10, profile.RowcountMean, 1e-9)
	assert.InDelta(t, 1, profile.ExecutionsPerInterval, 1e-9)
	assert.InDelta(t, 0.7, profile.DurationReadsCorrelation, 1e-9)
}

func TestAnalyzeRuntimeStats_DecimalComma(t *testing.T) {
	rows := []Row{runtimeRow("1", "5", "1500,5", "1200,25", "100", "5", "10")}

	profile := AnalyzeRuntimeStats(rows)

	assert.InDelta(t, 1500.5, profile.DurationMean, 1e-9)
	assert.InDelta(t, 1200.25, profile.CPUMean, 1e-9)
}

func TestAnalyzeWaitStats(t *testing.T) {
	rows := []Row{
		waitRow("1", "Buffer IO"),
		waitRow("1", "Buffer IO"),
		waitRow("2", "CPU"),
		waitRow("2", "Unknown"),
	}

	distribution := AnalyzeWaitStats(rows)

	require.Len(t, distribution, 2)
	assert.InDelta(t, 2.0/3.0, distribution["Buffer IO"], 1e-9)
	assert.InDelta(t, 1.0/3.0, distribution["CPU"], 1e-9)
}

func TestAnalyzeWaitStats_Empty(t *testing.T) {
	distribution := AnalyzeWaitStats(nil)

	assert.Len(t, distribution, 6)
	assert.InDelta(t, 0.3, distribution["Buffer IO"], 1e-9)
	assert.InDelta(t, 0.1, distribution["Idle"], 1e-9)
}

func TestAnalyzeWaitStats_OnlyUnknownCategories(t *testing.T) {
	distribution := AnalyzeWaitStats([]Row{waitRow("1", "Unknown"), waitRow("2", "")})

	assert.Len(t, distribution, 3)
	assert.InDelta(t, 0.3, distribution["Buffer IO"], 1e-9)
}

func TestClassifyPlans(t *testing.T) {
	rows := []Row{
		runtimeRow("1", "20", "500", "400", "50", "2", "5"),
		runtimeRow("1", "30", "600", "480", "60", "3", "6"),
		runtimeRow("2", "2", "200000", "160000", "5000", "250", "1000"),
		runtimeRow("3", "5", "5000", "4000", "500", "25", "50"),
		runtimeRow("4", "5", "900", "720", "90", "4", "9"),
	}

	classification := ClassifyPlans(rows)

	assert.InDelta(t, 0.25, classification.OLTPProportion, 1e-9)
	assert.InDelta(t, 0.25, classification.OLAPProportion, 1e-9)
	assert.InDelta(t, 0.5, classification.MixedProportion, 1e-9)
}

func TestClassifyPlans_Empty(t *testing.T) {
	classification := ClassifyPlans(nil)

	assert.InDelta(t, 0.7, classification.OLTPProportion, 1e-9)
	assert.InDelta(t, 0.2, classification.OLAPProportion, 1e-9)
	assert.InDelta(t, 0.1, classification.MixedProportion, 1e-9)
}

func TestAnalyze_EmptyDataset(t *testing.T) {
	report := Analyze(&RawData{})

	assert.Equal(t, DefaultProfile(), report.Profile)
	assert.InDelta(t, 0.4, report.Profile.WaitCategoryDistribution["Buffer IO"], 1e-9)
	assert.InDelta(t, 0.7, report.Classification.OLTPProportion, 1e-9)
}

func TestProfileOverrides(t *testing.T) {
	profiles := profileOverrides(DefaultProfile())

	assert.InDelta(t, 5, profiles.OLTP.AvgDurationMs, 1e-9)
	assert.InDelta(t, 20, profiles.OLAP.AvgDurationMs, 1e-9)
	assert.InDelta(t, 30, profiles.Problematic.AvgDurationMs, 1e-9)

	assert.InDelta(t, 4, profiles.OLTP.AvgCPUMs, 1e-9)

	assert.InDelta(t, 10, profiles.OLTP.ExecutionFrequency, 1e-9)
	assert.InDelta(t, 1, profiles.OLAP.ExecutionFrequency, 1e-9)
	assert.InDelta(t, 1, profiles.Problematic.ExecutionFrequency, 1e-9)

	assert.Greater(t, profiles.Problematic.AvgLogicalReads, profiles.OLTP.AvgLogicalReads)
}

func TestWriteReport(t *testing.T) {
	report := Analyze(&RawData{})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer

		require.NoError(t, WriteReport(&buf, report, ReportYAML))
		assert.Contains(t, buf.String(), "profile:")
		assert.Contains(t, buf.String(), "duration_mean:")
		assert.Contains(t, buf.String(), "oltp:")
	})

	t.Run("default is yaml", func(t *testing.T) {
		var buf bytes.Buffer

		require.NoError(t, WriteReport(&buf, report, ""))
		assert.Contains(t, buf.String(), "duration_mean:")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer

		require.NoError(t, WriteReport(&buf, report, ReportJSON))

		var decoded Report
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.InDelta(t, report.Profile.DurationMean, decoded.Profile.DurationMean, 1e-9)
	})

	t.Run("unknown format", func(t *testing.T) {
		err := WriteReport(&bytes.Buffer{}, report, "parquet")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown report format")
	})
}

func TestSafeFloat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback float64
		want     float64
	}{
		{name: "plain", input: "123.5", fallback: 0, want: 123.5},
		{name: "decimal comma", input: "123,5", fallback: 0, want: 123.5},
		{name: "integer", input: "42", fallback: 0, want: 42},
		{name: "whitespace", input: " 7 ", fallback: 0, want: 7},
		{name: "empty", input: "", fallback: 3, want: 3},
		{name: "garbage", input: "abc", fallback: 5, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, safeFloat(tt.input, tt.fallback), 1e-9)
		})
	}
}

// The analyzer must read the generator's own exports back cleanly, so a
// captured profile can seed the next run.
func TestAnalyze_GeneratedExports(t *testing.T) {
	log := testLogger()

	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.Generator.OutputDir = t.TempDir()
	cfg.Generator.StartDate = "2024-01-01"
	cfg.Generator.EndDate = "2024-01-03"
	cfg.Generator.Workload = "mixed"

	gen, err := generator.New(log, &cfg.Generator)
	require.NoError(t, err)

	_, err = gen.Run()
	require.NoError(t, err)

	_, err = export.New(log, cfg, nil).Export(gen.Dataset())
	require.NoError(t, err)

	data, err := NewParser(log, ParserOptions{MaxRows: -1}).Parse(cfg.Generator.OutputDir)
	require.NoError(t, err)

	counts := gen.Dataset().Counts()
	assert.Equal(t, counts.Intervals, len(data.Intervals))
	assert.Equal(t, counts.QueryTexts, len(data.QueryTexts))
	assert.Equal(t, counts.Queries, len(data.Queries))
	assert.Equal(t, counts.Plans, len(data.Plans))
	assert.Equal(t, counts.RuntimeStats, len(data.RuntimeStats))
	assert.Equal(t, counts.WaitStats, len(data.WaitStats))
	assert.Zero(t, data.Stats.RowsSkipped)

	report := Analyze(data)

	assert.Positive(t, report.Profile.DurationMean)
	assert.Positive(t, report.Profile.ExecutionsPerInterval)
	assert.NotEmpty(t, report.Profile.WaitCategoryDistribution)
	assert.Positive(t, report.Profiles.OLTP.AvgDurationMs)

	total := report.Classification.OLTPProportion +
		report.Classification.OLAPProportion +
		report.Classification.MixedProportion
	assert.InDelta(t, 1.0, total, 1e-9)
}
