package dmv

import "strconv"

// WaitStatsColumns is the export column order for
// sys.query_store_wait_stats.
var WaitStatsColumns = []string{
	"plan_id",
	"runtime_stats_interval_id",
	"wait_category_id",
	"wait_category",
	"total_query_wait_time_ms",
	"avg_query_wait_time_ms",
	"last_query_wait_time_ms",
	"min_query_wait_time_ms",
	"max_query_wait_time_ms",
	"stdev_query_wait_time_ms",
}

// WaitStats aggregates waits of one category for one plan within one
// interval.
type WaitStats struct {
	PlanID      int
	IntervalID  int
	Category    WaitCategory
	TotalWaitMs float64
	AvgWaitMs   float64
	LastWaitMs  float64
	MinWaitMs   float64
	MaxWaitMs   float64
	StdevWaitMs float64
}

// Ensure interface compliance.
var _ Row = (*WaitStats)(nil)

// Columns returns the export column names in order.
func (w *WaitStats) Columns() []string { return WaitStatsColumns }

// Values returns the formatted field values in column order.
func (w *WaitStats) Values() []string {
	return []string{
		strconv.Itoa(w.PlanID),
		strconv.Itoa(w.IntervalID),
		strconv.Itoa(int(w.Category)),
		w.Category.String(),
		FormatFloat(w.TotalWaitMs),
		FormatFloat(w.AvgWaitMs),
		FormatFloat(w.LastWaitMs),
		FormatFloat(w.MinWaitMs),
		FormatFloat(w.MaxWaitMs),
		FormatFloat(w.StdevWaitMs),
	}
}
