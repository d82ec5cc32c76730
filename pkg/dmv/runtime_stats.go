package dmv

import (
	"strconv"
	"time"
)

// RuntimeStatsColumns is the export column order for
// sys.query_store_runtime_stats.
var RuntimeStatsColumns = []string{
	"runtime_stats_id",
	"plan_id",
	"runtime_stats_interval_id",
	"execution_type_id",
	"execution_type",
	"first_execution_time",
	"last_execution_time",
	"count_executions",
	"avg_duration",
	"last_duration",
	"min_duration",
	"max_duration",
	"avg_cpu_time",
	"last_cpu_time",
	"min_cpu_time",
	"max_cpu_time",
	"avg_logical_io_reads",
	"last_logical_io_reads",
	"min_logical_io_reads",
	"max_logical_io_reads",
	"avg_logical_io_writes",
	"last_logical_io_writes",
	"min_logical_io_writes",
	"max_logical_io_writes",
	"avg_physical_io_reads",
	"last_physical_io_reads",
	"min_physical_io_reads",
	"max_physical_io_reads",
	"avg_clr_time",
	"last_clr_time",
	"min_clr_time",
	"max_clr_time",
	"avg_query_max_used_memory",
	"last_query_max_used_memory",
	"min_query_max_used_memory",
	"max_query_max_used_memory",
	"avg_rowcount",
	"last_rowcount",
	"min_rowcount",
	"max_rowcount",
}

// MetricSummary holds the aggregate columns the runtime stats view exposes
// per metric.
type MetricSummary struct {
	Avg  float64
	Last float64
	Min  float64
	Max  float64
}

func (m MetricSummary) values() []string {
	return []string{
		FormatFloat(m.Avg),
		FormatFloat(m.Last),
		FormatFloat(m.Min),
		FormatFloat(m.Max),
	}
}

// RuntimeStats aggregates executions of one plan within one interval.
type RuntimeStats struct {
	RuntimeStatsID     int
	PlanID             int
	IntervalID         int
	ExecutionType      ExecutionType
	FirstExecutionTime time.Time
	LastExecutionTime  time.Time
	CountExecutions    int
	Duration           MetricSummary
	CPUTime            MetricSummary
	LogicalIOReads     MetricSummary
	LogicalIOWrites    MetricSummary
	PhysicalIOReads    MetricSummary
	CLRTime            MetricSummary
	MaxUsedMemory      MetricSummary
	RowCount           MetricSummary
}

// Ensure interface compliance.
var _ Row = (*RuntimeStats)(nil)

// Columns returns the export column names in order.
func (s *RuntimeStats) Columns() []string { return RuntimeStatsColumns }

// Values returns the formatted field values in column order.
func (s *RuntimeStats) Values() []string {
	values := make([]string, 0, len(RuntimeStatsColumns))
	values = append(values,
		strconv.Itoa(s.RuntimeStatsID),
		strconv.Itoa(s.PlanID),
		strconv.Itoa(s.IntervalID),
		strconv.Itoa(int(s.ExecutionType)),
		s.ExecutionType.String(),
		FormatTime(s.FirstExecutionTime),
		FormatTime(s.LastExecutionTime),
		strconv.Itoa(s.CountExecutions),
	)

	for _, m := range []MetricSummary{
		s.Duration,
		s.CPUTime,
		s.LogicalIOReads,
		s.LogicalIOWrites,
		s.PhysicalIOReads,
		s.CLRTime,
		s.MaxUsedMemory,
		s.RowCount,
	} {
		values = append(values, m.values()...)
	}

	return values
}
