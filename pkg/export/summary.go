package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"

	"github.com/lab271/dmvoor/pkg/config"
	"github.com/lab271/dmvoor/pkg/fsutil"
	"github.com/lab271/dmvoor/pkg/generator"
	"github.com/lab271/dmvoor/pkg/sysinfo"
)

// SummaryFilename is written at the root of every output directory.
const SummaryFilename = "generation_summary.json"

// Summary captures one generation run. It is what the corpus index
// ingests when it scans output directories.
type Summary struct {
	RunID           string            `json:"run_id" mapstructure:"run_id"`
	GeneratedAt     time.Time         `json:"generated_at" mapstructure:"generated_at"`
	DurationSeconds float64           `json:"duration_seconds" mapstructure:"duration_seconds"`
	Workload        string            `json:"workload" mapstructure:"workload"`
	Seed            int64             `json:"seed" mapstructure:"seed"`
	WindowStart     time.Time         `json:"window_start" mapstructure:"window_start"`
	WindowEnd       time.Time         `json:"window_end" mapstructure:"window_end"`
	IntervalHours   int               `json:"interval_hours" mapstructure:"interval_hours"`
	QueryCount      int               `json:"query_count" mapstructure:"query_count"`
	Format          string            `json:"format" mapstructure:"format"`
	Delimiter       string            `json:"delimiter" mapstructure:"delimiter"`
	ConfigDigest    string            `json:"config_digest" mapstructure:"config_digest"`
	Counts          generator.Counts  `json:"counts" mapstructure:"counts"`
	TotalExecutions int               `json:"total_executions" mapstructure:"total_executions"`
	AvgDurationMs   float64           `json:"avg_duration_ms" mapstructure:"avg_duration_ms"`
	OutputBytes     int64             `json:"output_bytes" mapstructure:"output_bytes"`
	OutputSize      string            `json:"output_size" mapstructure:"output_size"`
	Files           []File            `json:"files" mapstructure:"files"`
	Host            *sysinfo.Snapshot `json:"host,omitempty" mapstructure:"host"`
}

// NewSummary assembles the summary record for a completed run.
func NewSummary(
	gen generator.Generator,
	cfg *config.Config,
	result *Result,
	elapsed time.Duration,
	host *sysinfo.Snapshot,
) (*Summary, error) {
	ds := gen.Dataset()
	start, end := gen.Window()

	size, err := fsutil.DirSize(result.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("sizing output directory: %w", err)
	}

	digest, err := cfg.Digest()
	if err != nil {
		return nil, fmt.Errorf("digesting config: %w", err)
	}

	return &Summary{
		RunID:           uuid.New().String(),
		GeneratedAt:     time.Now().UTC(),
		DurationSeconds: elapsed.Seconds(),
		Workload:        gen.Scenario().ID,
		Seed:            cfg.Generator.Seed,
		WindowStart:     start,
		WindowEnd:       end,
		IntervalHours:   cfg.Generator.IntervalHours,
		QueryCount:      cfg.Generator.NumUniqueQueries,
		Format:          cfg.Export.Format,
		Delimiter:       cfg.Generator.Delimiter,
		ConfigDigest:    digest,
		Counts:          ds.Counts(),
		TotalExecutions: ds.TotalExecutions(),
		AvgDurationMs:   ds.AvgDurationMs(),
		OutputBytes:     size,
		OutputSize:      units.HumanSize(float64(size)),
		Files:           result.Files,
		Host:            host,
	}, nil
}

// WriteSummary writes the summary JSON at the output directory root.
func WriteSummary(outputDir string, s *Summary, owner *fsutil.OwnerConfig) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	path := filepath.Join(outputDir, SummaryFilename)
	if err := fsutil.WriteFile(path, append(data, '\n'), 0o644, owner); err != nil {
		return fmt.Errorf("writing %s: %w", SummaryFilename, err)
	}

	return nil
}

// ReadSummary loads a summary JSON from an output directory.
func ReadSummary(outputDir string) (*Summary, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, SummaryFilename))
	if err != nil {
		return nil, err
	}

	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", SummaryFilename, err)
	}

	return &s, nil
}
