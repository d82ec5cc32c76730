package dmv

import (
	"strconv"
	"time"
)

// IntervalColumns is the export column order for
// sys.query_store_runtime_stats_interval.
var IntervalColumns = []string{
	"runtime_stats_interval_id",
	"start_time",
	"end_time",
	"comment",
}

// Interval is one runtime stats aggregation window.
type Interval struct {
	IntervalID int
	StartTime  time.Time
	EndTime    time.Time
	Comment    *string
}

// Ensure interface compliance.
var _ Row = (*Interval)(nil)

// Columns returns the export column names in order.
func (i *Interval) Columns() []string { return IntervalColumns }

// Values returns the formatted field values in column order.
func (i *Interval) Values() []string {
	return []string{
		strconv.Itoa(i.IntervalID),
		FormatTime(i.StartTime),
		FormatTime(i.EndTime),
		formatNullableString(i.Comment),
	}
}

// Contains reports whether t falls inside the half-open window [start, end).
func (i *Interval) Contains(t time.Time) bool {
	return !t.Before(i.StartTime) && t.Before(i.EndTime)
}
