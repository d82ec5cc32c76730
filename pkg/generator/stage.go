package generator

// Stage tracks how far the generation pipeline has advanced. Each stage
// consumes the output of the one before it, so they only run in order.
type Stage int

const (
	StageNone Stage = iota
	StageIntervals
	StageQueryTexts
	StageQueries
	StagePlans
	StageRuntimeStats
	StageWaitStats
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageIntervals:
		return "intervals"
	case StageQueryTexts:
		return "query_texts"
	case StageQueries:
		return "queries"
	case StagePlans:
		return "plans"
	case StageRuntimeStats:
		return "runtime_stats"
	case StageWaitStats:
		return "wait_stats"
	default:
		return "none"
	}
}

// idAllocator hands out sequential IDs per entity type, starting at 1.
type idAllocator struct {
	interval     int
	queryText    int
	query        int
	plan         int
	runtimeStats int
}

func (a *idAllocator) nextIntervalID() int {
	a.interval++

	return a.interval
}

func (a *idAllocator) nextQueryTextID() int {
	a.queryText++

	return a.queryText
}

func (a *idAllocator) nextQueryID() int {
	a.query++

	return a.query
}

func (a *idAllocator) nextPlanID() int {
	a.plan++

	return a.plan
}

func (a *idAllocator) nextRuntimeStatsID() int {
	a.runtimeStats++

	return a.runtimeStats
}
