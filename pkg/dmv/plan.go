package dmv

import (
	"strconv"
	"time"
)

// PlanColumns is the export column order for sys.query_store_plan.
var PlanColumns = []string{
	"plan_id",
	"query_id",
	"plan_group_id",
	"engine_version",
	"compatibility_level",
	"query_plan_hash",
	"query_plan",
	"is_online_index_plan",
	"is_trivial_plan",
	"is_parallel_plan",
	"is_forced_plan",
	"is_natively_compiled",
	"force_failure_count",
	"last_force_failure_reason",
	"last_force_failure_reason_desc",
	"count_compiles",
	"initial_compile_start_time",
	"last_compile_start_time",
	"last_execution_time",
	"avg_compile_duration",
	"last_compile_duration",
}

// Plan is one execution plan compiled for a query.
type Plan struct {
	PlanID                     int
	QueryID                    int
	PlanGroupID                int
	EngineVersion              string
	CompatibilityLevel         int
	QueryPlanHash              string
	QueryPlan                  *string
	IsOnlineIndexPlan          bool
	IsTrivialPlan              bool
	IsParallelPlan             bool
	IsForcedPlan               bool
	IsNativelyCompiled         bool
	ForceFailureCount          int
	LastForceFailureReason     int
	LastForceFailureReasonDesc string
	CountCompiles              int
	InitialCompileStartTime    time.Time
	LastCompileStartTime       time.Time
	LastExecutionTime          time.Time
	AvgCompileDuration         float64
	LastCompileDuration        int
}

// Ensure interface compliance.
var _ Row = (*Plan)(nil)

// Columns returns the export column names in order.
func (p *Plan) Columns() []string { return PlanColumns }

// Values returns the formatted field values in column order.
func (p *Plan) Values() []string {
	return []string{
		strconv.Itoa(p.PlanID),
		strconv.Itoa(p.QueryID),
		strconv.Itoa(p.PlanGroupID),
		p.EngineVersion,
		strconv.Itoa(p.CompatibilityLevel),
		p.QueryPlanHash,
		formatNullableString(p.QueryPlan),
		FormatBit(p.IsOnlineIndexPlan),
		FormatBit(p.IsTrivialPlan),
		FormatBit(p.IsParallelPlan),
		FormatBit(p.IsForcedPlan),
		FormatBit(p.IsNativelyCompiled),
		strconv.Itoa(p.ForceFailureCount),
		strconv.Itoa(p.LastForceFailureReason),
		p.LastForceFailureReasonDesc,
		strconv.Itoa(p.CountCompiles),
		FormatTime(p.InitialCompileStartTime),
		FormatTime(p.LastCompileStartTime),
		FormatTime(p.LastExecutionTime),
		FormatFloat(p.AvgCompileDuration),
		strconv.Itoa(p.LastCompileDuration),
	}
}
