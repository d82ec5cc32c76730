package corpus

import (
	"fmt"
	"math"
	"time"

	"github.com/lab271/dmvoor/pkg/export"
)

// Run is one indexed generation run in the corpus database.
type Run struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	RunID     string    `gorm:"not null;uniqueIndex" json:"run_id"`
	CreatedAt time.Time `json:"created_at"`

	Workload      string `gorm:"index" json:"workload"`
	Seed          int64  `json:"seed"`
	Days          int    `json:"days"`
	IntervalHours int    `json:"interval_hours"`
	QueryCount    int    `json:"query_count"`

	// Denormalized dataset row counts.
	Intervals    int `json:"intervals"`
	QueryTexts   int `json:"query_texts"`
	Queries      int `json:"queries"`
	Plans        int `json:"plans"`
	RuntimeStats int `json:"runtime_stats"`
	WaitStats    int `json:"wait_stats"`
	ErrorLog     int `json:"error_log"`

	OutputDir    string `json:"output_dir"`
	Format       string `json:"format"`
	ConfigDigest string `gorm:"index" json:"config_digest"`
	SizeBytes    int64  `json:"size_bytes"`

	GeneratedAt time.Time `json:"generated_at"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// RunFromSummary builds the index record for a generation summary found in
// outputDir.
func RunFromSummary(summary *export.Summary, outputDir string) (*Run, error) {
	if summary.RunID == "" {
		return nil, fmt.Errorf("summary has no run_id")
	}

	days := int(math.Round(summary.WindowEnd.Sub(summary.WindowStart).Hours() / 24))

	return &Run{
		RunID:         summary.RunID,
		Workload:      summary.Workload,
		Seed:          summary.Seed,
		Days:          days,
		IntervalHours: summary.IntervalHours,
		QueryCount:    summary.QueryCount,
		Intervals:     summary.Counts.Intervals,
		QueryTexts:    summary.Counts.QueryTexts,
		Queries:       summary.Counts.Queries,
		Plans:         summary.Counts.Plans,
		RuntimeStats:  summary.Counts.RuntimeStats,
		WaitStats:     summary.Counts.WaitStats,
		ErrorLog:      summary.Counts.ErrorLog,
		OutputDir:     outputDir,
		Format:        summary.Format,
		ConfigDigest:  summary.ConfigDigest,
		SizeBytes:     summary.OutputBytes,
		GeneratedAt:   summary.GeneratedAt,
		IndexedAt:     time.Now().UTC(),
	}, nil
}
