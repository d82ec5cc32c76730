package analyze

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/lab271/dmvoor/pkg/workload"
)

// Report formats for WriteReport.
const (
	ReportYAML = "yaml"
	ReportJSON = "json"
)

// RowCounts is the number of rows parsed per entity.
type RowCounts struct {
	Intervals    int `yaml:"intervals" json:"intervals"`
	QueryTexts   int `yaml:"query_texts" json:"query_texts"`
	Queries      int `yaml:"queries" json:"queries"`
	Plans        int `yaml:"plans" json:"plans"`
	RuntimeStats int `yaml:"runtime_stats" json:"runtime_stats"`
	WaitStats    int `yaml:"wait_stats" json:"wait_stats"`
}

// Report is the analysis document. Profiles is shaped exactly like the
// generator's class-profile overrides, so the section can be pasted into a
// generator config to reproduce the measured workload.
type Report struct {
	Profile        StatisticalProfile `yaml:"profile" json:"profile"`
	Classification Classification     `yaml:"classification" json:"classification"`
	Profiles       workload.Profiles  `yaml:"profiles" json:"profiles"`
	Counts         RowCounts          `yaml:"counts" json:"counts"`
	Parse          ParseStats         `yaml:"parse" json:"parse"`
}

// WriteReport renders the report to w as YAML or JSON.
func WriteReport(w io.Writer, report *Report, format string) error {
	switch format {
	case ReportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
	case "", ReportYAML:
		data, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}

		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	default:
		return fmt.Errorf("unknown report format %q (want yaml or json)", format)
	}

	return nil
}

// profileOverrides shapes the aggregate measurements into the three class
// profiles the generator accepts. The median characterizes OLTP, the p95
// OLAP and the p99 the problematic tail; reads, rows and spreads scale with
// each class's distance from the overall mean, and execution frequencies
// keep the ratios of the built-in defaults.
func profileOverrides(p StatisticalProfile) workload.Profiles {
	frequency := p.ExecutionsPerInterval
	if frequency <= 0 {
		frequency = 1
	}

	return workload.Profiles{
		OLTP:        classProfile(p, p.DurationMedian, frequency),
		OLAP:        classProfile(p, p.DurationP95, math.Max(1, frequency/100)),
		Problematic: classProfile(p, p.DurationP99, math.Max(1, frequency/250)),
	}
}

func classProfile(p StatisticalProfile, durationUs, frequency float64) workload.Profile {
	scale := 1.0
	if p.DurationMean > 0 {
		scale = durationUs / p.DurationMean
	}

	return workload.Profile{
		AvgDurationMs:      durationUs / 1000,
		DurationStddev:     p.DurationStddev / 1000 * scale,
		AvgCPUMs:           durationUs * p.CPUToDurationRatio / 1000,
		CPUStddev:          p.CPUStddev / 1000 * scale,
		AvgLogicalReads:    p.LogicalReadsMean * scale,
		ReadsStddev:        p.LogicalReadsStddev * scale,
		AvgRows:            p.RowcountMean * scale,
		RowsStddev:         p.RowcountStddev * scale,
		ExecutionFrequency: frequency,
	}
}
