package generator

import "github.com/lab271/dmvoor/pkg/dmv"

// Dataset holds one complete generated Query Store snapshot plus the
// instance error log covering the same window.
type Dataset struct {
	Intervals    []dmv.Interval
	QueryTexts   []dmv.QueryText
	Queries      []dmv.Query
	Plans        []dmv.Plan
	RuntimeStats []dmv.RuntimeStats
	WaitStats    []dmv.WaitStats
	ErrorLog     []dmv.ErrorLogEntry
}

// Counts reports the row count per generated entity.
type Counts struct {
	Intervals    int `json:"intervals" mapstructure:"intervals"`
	QueryTexts   int `json:"query_texts" mapstructure:"query_texts"`
	Queries      int `json:"queries" mapstructure:"queries"`
	Plans        int `json:"plans" mapstructure:"plans"`
	RuntimeStats int `json:"runtime_stats" mapstructure:"runtime_stats"`
	WaitStats    int `json:"wait_stats" mapstructure:"wait_stats"`
	ErrorLog     int `json:"error_log" mapstructure:"error_log"`
}

// Counts returns the per-entity row counts.
func (d *Dataset) Counts() Counts {
	return Counts{
		Intervals:    len(d.Intervals),
		QueryTexts:   len(d.QueryTexts),
		Queries:      len(d.Queries),
		Plans:        len(d.Plans),
		RuntimeStats: len(d.RuntimeStats),
		WaitStats:    len(d.WaitStats),
		ErrorLog:     len(d.ErrorLog),
	}
}

// TotalExecutions sums the execution counts across all runtime stats rows.
func (d *Dataset) TotalExecutions() int {
	total := 0
	for _, stats := range d.RuntimeStats {
		total += stats.CountExecutions
	}

	return total
}

// AvgDurationMs returns the mean of the per-row average durations in
// milliseconds, or zero for an empty dataset.
func (d *Dataset) AvgDurationMs() float64 {
	if len(d.RuntimeStats) == 0 {
		return 0
	}

	sum := 0.0
	for _, stats := range d.RuntimeStats {
		sum += stats.Duration.Avg
	}

	return sum / float64(len(d.RuntimeStats)) / 1000
}
