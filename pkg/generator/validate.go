package generator

import (
	"fmt"
	"math"

	"github.com/lab271/dmvoor/pkg/dmv"
)

// Validate checks the invariants of a generated dataset: interval
// continuity, referential integrity across entities, and consistency of
// every statistical aggregate.
func Validate(d *Dataset) error {
	intervalsByID, err := validateIntervals(d.Intervals)
	if err != nil {
		return err
	}

	textIDs := make(map[int]struct{}, len(d.QueryTexts))

	for _, text := range d.QueryTexts {
		if _, ok := textIDs[text.QueryTextID]; ok {
			return fmt.Errorf("query text %d: duplicate id", text.QueryTextID)
		}

		textIDs[text.QueryTextID] = struct{}{}
	}

	queryIDs := make(map[int]struct{}, len(d.Queries))

	for _, query := range d.Queries {
		if _, ok := queryIDs[query.QueryID]; ok {
			return fmt.Errorf("query %d: duplicate id", query.QueryID)
		}

		if _, ok := textIDs[query.QueryTextID]; !ok {
			return fmt.Errorf("query %d: references missing query text %d", query.QueryID, query.QueryTextID)
		}

		queryIDs[query.QueryID] = struct{}{}
	}

	planIDs := make(map[int]struct{}, len(d.Plans))

	for _, plan := range d.Plans {
		if _, ok := planIDs[plan.PlanID]; ok {
			return fmt.Errorf("plan %d: duplicate id", plan.PlanID)
		}

		if _, ok := queryIDs[plan.QueryID]; !ok {
			return fmt.Errorf("plan %d: references missing query %d", plan.PlanID, plan.QueryID)
		}

		planIDs[plan.PlanID] = struct{}{}
	}

	statsPairs, err := validateRuntimeStats(d.RuntimeStats, planIDs, intervalsByID)
	if err != nil {
		return err
	}

	return validateWaitStats(d.WaitStats, statsPairs)
}

func validateIntervals(intervals []dmv.Interval) (map[int]dmv.Interval, error) {
	byID := make(map[int]dmv.Interval, len(intervals))

	for i, interval := range intervals {
		if !interval.StartTime.Before(interval.EndTime) {
			return nil, fmt.Errorf("interval %d: start %s is not before end %s",
				interval.IntervalID, interval.StartTime, interval.EndTime)
		}

		if i > 0 && !interval.StartTime.Equal(intervals[i-1].EndTime) {
			return nil, fmt.Errorf("interval %d: start %s does not continue previous end %s",
				interval.IntervalID, interval.StartTime, intervals[i-1].EndTime)
		}

		if _, ok := byID[interval.IntervalID]; ok {
			return nil, fmt.Errorf("interval %d: duplicate id", interval.IntervalID)
		}

		byID[interval.IntervalID] = interval
	}

	return byID, nil
}

func validateRuntimeStats(
	rows []dmv.RuntimeStats,
	planIDs map[int]struct{},
	intervalsByID map[int]dmv.Interval,
) (map[[2]int]struct{}, error) {
	pairs := make(map[[2]int]struct{}, len(rows))
	statsIDs := make(map[int]struct{}, len(rows))

	for _, stats := range rows {
		if _, ok := statsIDs[stats.RuntimeStatsID]; ok {
			return nil, fmt.Errorf("runtime stats %d: duplicate id", stats.RuntimeStatsID)
		}

		statsIDs[stats.RuntimeStatsID] = struct{}{}

		if _, ok := planIDs[stats.PlanID]; !ok {
			return nil, fmt.Errorf("runtime stats %d: references missing plan %d", stats.RuntimeStatsID, stats.PlanID)
		}

		interval, ok := intervalsByID[stats.IntervalID]
		if !ok {
			return nil, fmt.Errorf("runtime stats %d: references missing interval %d", stats.RuntimeStatsID, stats.IntervalID)
		}

		if stats.CountExecutions < 1 {
			return nil, fmt.Errorf("runtime stats %d: execution count %d is below one", stats.RuntimeStatsID, stats.CountExecutions)
		}

		if stats.FirstExecutionTime.Before(interval.StartTime) {
			return nil, fmt.Errorf("runtime stats %d: first execution %s precedes interval start %s",
				stats.RuntimeStatsID, stats.FirstExecutionTime, interval.StartTime)
		}

		if stats.LastExecutionTime.After(interval.EndTime) {
			return nil, fmt.Errorf("runtime stats %d: last execution %s exceeds interval end %s",
				stats.RuntimeStatsID, stats.LastExecutionTime, interval.EndTime)
		}

		if stats.FirstExecutionTime.After(stats.LastExecutionTime) {
			return nil, fmt.Errorf("runtime stats %d: first execution %s is after last execution %s",
				stats.RuntimeStatsID, stats.FirstExecutionTime, stats.LastExecutionTime)
		}

		metrics := []struct {
			name    string
			summary dmv.MetricSummary
		}{
			{"duration", stats.Duration},
			{"cpu_time", stats.CPUTime},
			{"logical_io_reads", stats.LogicalIOReads},
			{"logical_io_writes", stats.LogicalIOWrites},
			{"physical_io_reads", stats.PhysicalIOReads},
			{"clr_time", stats.CLRTime},
			{"query_max_used_memory", stats.MaxUsedMemory},
			{"rowcount", stats.RowCount},
		}

		for _, metric := range metrics {
			if err := checkSummary(stats.RuntimeStatsID, metric.name, metric.summary); err != nil {
				return nil, err
			}
		}

		if !lte(stats.CPUTime.Avg, stats.Duration.Avg) {
			return nil, fmt.Errorf("runtime stats %d: avg cpu time %v exceeds avg duration %v",
				stats.RuntimeStatsID, stats.CPUTime.Avg, stats.Duration.Avg)
		}

		pairs[[2]int{stats.PlanID, stats.IntervalID}] = struct{}{}
	}

	return pairs, nil
}

func validateWaitStats(rows []dmv.WaitStats, statsPairs map[[2]int]struct{}) error {
	seen := make(map[[3]int]struct{}, len(rows))

	for _, wait := range rows {
		if _, ok := statsPairs[[2]int{wait.PlanID, wait.IntervalID}]; !ok {
			return fmt.Errorf("wait stats for plan %d interval %d: no matching runtime stats row",
				wait.PlanID, wait.IntervalID)
		}

		key := [3]int{wait.PlanID, wait.IntervalID, int(wait.Category)}
		if _, ok := seen[key]; ok {
			return fmt.Errorf("wait stats for plan %d interval %d: duplicate category %s",
				wait.PlanID, wait.IntervalID, wait.Category)
		}

		seen[key] = struct{}{}

		if wait.MinWaitMs < 0 || wait.AvgWaitMs < 0 || wait.MaxWaitMs < 0 || wait.LastWaitMs < 0 || wait.StdevWaitMs < 0 {
			return fmt.Errorf("wait stats for plan %d interval %d: negative %s wait time",
				wait.PlanID, wait.IntervalID, wait.Category)
		}

		if !lte(wait.MinWaitMs, wait.AvgWaitMs) || !lte(wait.AvgWaitMs, wait.MaxWaitMs) {
			return fmt.Errorf("wait stats for plan %d interval %d: %s avg %v outside min %v max %v",
				wait.PlanID, wait.IntervalID, wait.Category, wait.AvgWaitMs, wait.MinWaitMs, wait.MaxWaitMs)
		}

		if !lte(wait.MinWaitMs, wait.LastWaitMs) || !lte(wait.LastWaitMs, wait.MaxWaitMs) {
			return fmt.Errorf("wait stats for plan %d interval %d: %s last %v outside min %v max %v",
				wait.PlanID, wait.IntervalID, wait.Category, wait.LastWaitMs, wait.MinWaitMs, wait.MaxWaitMs)
		}

		if !lte(wait.MaxWaitMs, wait.TotalWaitMs) {
			return fmt.Errorf("wait stats for plan %d interval %d: %s max %v exceeds total %v",
				wait.PlanID, wait.IntervalID, wait.Category, wait.MaxWaitMs, wait.TotalWaitMs)
		}
	}

	return nil
}

func checkSummary(statsID int, metric string, m dmv.MetricSummary) error {
	if m.Min < 0 || m.Avg < 0 || m.Max < 0 || m.Last < 0 {
		return fmt.Errorf("runtime stats %d: %s has negative values", statsID, metric)
	}

	if !lte(m.Min, m.Avg) || !lte(m.Avg, m.Max) {
		return fmt.Errorf("runtime stats %d: %s avg %v outside min %v max %v", statsID, metric, m.Avg, m.Min, m.Max)
	}

	if !lte(m.Min, m.Last) || !lte(m.Last, m.Max) {
		return fmt.Errorf("runtime stats %d: %s last %v outside min %v max %v", statsID, metric, m.Last, m.Min, m.Max)
	}

	return nil
}

// lte compares aggregates with a relative tolerance so float error in a
// computed mean does not trip the order checks.
func lte(a, b float64) bool {
	return a <= b+1e-9*math.Max(1, math.Abs(b))
}
