package generator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lab271/dmvoor/pkg/config"
	"github.com/lab271/dmvoor/pkg/dmv"
	"github.com/lab271/dmvoor/pkg/sampler"
	"github.com/lab271/dmvoor/pkg/workload"
)

// baseCacheHitRatio is the buffer cache hit ratio of an unpressured
// instance. I/O pressure erodes it.
const baseCacheHitRatio = 0.95

// Generator produces a deterministic synthetic Query Store dataset. The
// stage methods feed each other and must run in declaration order, which
// Run does. GenerateErrorLog draws from its own stream and can run at any
// point.
type Generator interface {
	// GenerateIntervals lays out the runtime stats collection windows.
	GenerateIntervals() []dmv.Interval
	// GenerateQueryTexts synthesizes the unique statement texts.
	GenerateQueryTexts() []dmv.QueryText
	// GenerateQueries compiles one or two query variants per text.
	GenerateQueries() []dmv.Query
	// GeneratePlans compiles execution plans for every query.
	GeneratePlans() []dmv.Plan
	// GenerateRuntimeStats aggregates executions per plan and interval.
	GenerateRuntimeStats() []dmv.RuntimeStats
	// GenerateWaitStats derives wait aggregates from the runtime stats.
	GenerateWaitStats() []dmv.WaitStats
	// GenerateErrorLog builds the instance error log for the window.
	GenerateErrorLog() []dmv.ErrorLogEntry
	// Run executes every stage in order and validates the result.
	Run() (*Dataset, error)
	// Dataset returns whatever has been generated so far.
	Dataset() *Dataset
	// Scenario returns the resolved workload, overrides applied.
	Scenario() workload.Scenario
	// Relationships returns the entity relationship index.
	Relationships() *Relationships
	// Window returns the generation time range.
	Window() (time.Time, time.Time)
}

type generator struct {
	log        logrus.FieldLogger
	cfg        *config.GeneratorConfig
	scenario   workload.Scenario
	profiles   workload.Profiles
	seed       int64
	start      time.Time
	end        time.Time
	sampler    *sampler.Sampler
	correlator *sampler.Correlator
	sql        *sqlSynthesizer
	ids        idAllocator
	rels       *Relationships
	stage      Stage
	data       Dataset
}

// Ensure interface compliance.
var _ Generator = (*generator)(nil)

// New creates a generator for the configured window and workload.
func New(log logrus.FieldLogger, cfg *config.GeneratorConfig) (Generator, error) {
	scenario, err := workload.ByName(cfg.Workload)
	if err != nil {
		return nil, fmt.Errorf("resolving workload: %w", err)
	}

	applyOverrides(&scenario, cfg)

	start, end, err := cfg.Window()
	if err != nil {
		return nil, fmt.Errorf("resolving time window: %w", err)
	}

	profiles := workload.DefaultProfiles()
	if cfg.Profiles != nil {
		profiles = *cfg.Profiles
	}

	smp := sampler.New(rand.New(rand.NewSource(cfg.Seed)))

	return &generator{
		log:        log.WithField("component", "generator"),
		cfg:        cfg,
		scenario:   scenario,
		profiles:   profiles,
		seed:       cfg.Seed,
		start:      start,
		end:        end,
		sampler:    smp,
		correlator: sampler.NewCorrelator(smp),
		sql:        newSQLSynthesizer(smp),
		rels:       NewRelationships(),
	}, nil
}

// applyOverrides folds explicit config settings into the scenario. A
// pressure value replaces the scenario factor when set; the class
// proportions replace the mix only when all three are given.
func applyOverrides(scenario *workload.Scenario, cfg *config.GeneratorConfig) {
	if cfg.CPUPressure > 0 {
		scenario.CPUPressure = cfg.CPUPressure
	}

	if cfg.IOPressure > 0 {
		scenario.IOPressure = cfg.IOPressure
	}

	if cfg.MemoryPressure > 0 {
		scenario.MemoryPressure = cfg.MemoryPressure
	}

	if cfg.OLTPProportion > 0 && cfg.OLAPProportion > 0 && cfg.ProblematicProportion > 0 {
		scenario.Mix = []workload.Share{
			{Class: workload.ClassOLTP, Weight: cfg.OLTPProportion},
			{Class: workload.ClassOLAP, Weight: cfg.OLAPProportion},
			{Class: workload.ClassProblematic, Weight: cfg.ProblematicProportion},
		}
	}
}

// advance moves the pipeline to the next stage. Calling a stage out of
// order is a programming error, not a data error.
func (g *generator) advance(next Stage) {
	if g.stage != next-1 {
		panic(fmt.Sprintf("generator: stage %s requires completed stage %s, but current stage is %s",
			next, next-1, g.stage))
	}

	g.stage = next
}

func (g *generator) Run() (*Dataset, error) {
	g.log.WithFields(logrus.Fields{
		"workload":        g.scenario.ID,
		"cpu_pressure":    g.scenario.CPUPressure,
		"io_pressure":     g.scenario.IOPressure,
		"memory_pressure": g.scenario.MemoryPressure,
	}).Info("Generating synthetic Query Store dataset")

	g.GenerateIntervals()
	g.GenerateQueryTexts()
	g.GenerateQueries()
	g.GeneratePlans()
	g.GenerateRuntimeStats()
	g.GenerateWaitStats()
	g.GenerateErrorLog()

	if err := Validate(&g.data); err != nil {
		return nil, fmt.Errorf("validating dataset: %w", err)
	}

	return &g.data, nil
}

func (g *generator) GenerateIntervals() []dmv.Interval {
	g.advance(StageIntervals)

	for current := g.start; current.Before(g.end); {
		intervalEnd := current.Add(time.Duration(g.cfg.IntervalHours) * time.Hour)
		if intervalEnd.After(g.end) {
			intervalEnd = g.end
		}

		g.data.Intervals = append(g.data.Intervals, dmv.Interval{
			IntervalID: g.ids.nextIntervalID(),
			StartTime:  current,
			EndTime:    intervalEnd,
		})

		current = intervalEnd
	}

	g.log.WithField("count", len(g.data.Intervals)).Info("Generated runtime stats intervals")

	return g.data.Intervals
}

func (g *generator) GenerateQueryTexts() []dmv.QueryText {
	g.advance(StageQueryTexts)

	for i := 0; i < g.cfg.NumUniqueQueries; i++ {
		id := g.ids.nextQueryTextID()

		g.data.QueryTexts = append(g.data.QueryTexts, dmv.QueryText{
			QueryTextID: id,
			SQLText:     g.sql.ForClass(g.pickClass()),
		})
		g.rels.AddQueryText(id)
	}

	g.log.WithField("count", len(g.data.QueryTexts)).Info("Generated query texts")

	return g.data.QueryTexts
}

func (g *generator) GenerateQueries() []dmv.Query {
	g.advance(StageQueries)

	for _, text := range g.data.QueryTexts {
		variants := g.sampler.IntBetween(1, 2)

		for i := 0; i < variants; i++ {
			id := g.ids.nextQueryID()

			var batchHandle *string
			if g.sampler.Chance(0.5) {
				handle := dmv.FormatHash(g.sampler.Bytes(32))
				batchHandle = &handle
			}

			queryHash := dmv.FormatHash(g.sampler.Bytes(16))

			paramType := dmv.ParameterizationNone
			if !g.sampler.Chance(0.7) {
				paramType = dmv.ParameterizationUser
			}

			g.data.Queries = append(g.data.Queries, dmv.Query{
				QueryID:              id,
				QueryTextID:          text.QueryTextID,
				ContextSettingsID:    1,
				BatchSQLHandle:       batchHandle,
				QueryHash:            queryHash,
				ParameterizationType: paramType,
			})
			g.rels.AddQuery(id, text.QueryTextID)
		}
	}

	g.log.WithField("count", len(g.data.Queries)).Info("Generated query variants")

	return g.data.Queries
}

func (g *generator) GeneratePlans() []dmv.Plan {
	g.advance(StagePlans)

	windowSeconds := g.end.Sub(g.start).Seconds()

	for _, query := range g.data.Queries {
		plans := g.sampler.IntBetween(g.cfg.PlansPerQueryMin, g.cfg.PlansPerQueryMax)

		for i := 0; i < plans; i++ {
			id := g.ids.nextPlanID()
			isParallel := g.sampler.Chance(0.3)
			isTrivial := g.sampler.Chance(0.1)
			compiled := g.start.Add(durationSeconds(g.sampler.Uniform(0, windowSeconds)))

			g.data.Plans = append(g.data.Plans, dmv.Plan{
				PlanID:                     id,
				QueryID:                    query.QueryID,
				EngineVersion:              dmv.EngineVersion,
				CompatibilityLevel:         dmv.CompatibilityLevel,
				QueryPlanHash:              dmv.FormatHash(g.sampler.Bytes(16)),
				IsTrivialPlan:              isTrivial,
				IsParallelPlan:             isParallel,
				LastForceFailureReasonDesc: "NONE",
				CountCompiles:              g.sampler.IntBetween(1, 9),
				InitialCompileStartTime:    compiled,
				LastCompileStartTime:       compiled.Add(durationHours(g.sampler.Uniform(0, 24))),
				LastExecutionTime:          compiled.Add(durationHours(g.sampler.Uniform(1, 48))),
				AvgCompileDuration:         g.sampler.Uniform(100, 10000),
				LastCompileDuration:        int(g.sampler.Uniform(100, 10000)),
			})
			g.rels.AddPlan(id, query.QueryID)
		}
	}

	g.log.WithField("count", len(g.data.Plans)).Info("Generated execution plans")

	return g.data.Plans
}

func (g *generator) GenerateRuntimeStats() []dmv.RuntimeStats {
	g.advance(StageRuntimeStats)

	textByID := make(map[int]string, len(g.data.QueryTexts))
	for _, text := range g.data.QueryTexts {
		textByID[text.QueryTextID] = text.SQLText
	}

	textIDByQuery := make(map[int]int, len(g.data.Queries))
	for _, query := range g.data.Queries {
		textIDByQuery[query.QueryID] = query.QueryTextID
	}

	for _, plan := range g.data.Plans {
		profile := g.profiles.For(InferClass(textByID[textIDByQuery[plan.QueryID]]))

		// Popular plans execute in every interval, the rest in a subset.
		executionProbability := g.sampler.Uniform(0.3, 1.0)

		for _, interval := range g.data.Intervals {
			if !g.sampler.Chance(executionProbability) {
				continue
			}

			g.data.RuntimeStats = append(g.data.RuntimeStats, g.runtimeStatsRow(plan.PlanID, interval, profile))
			g.rels.AddPlanInterval(plan.PlanID, interval.IntervalID)
		}
	}

	g.log.WithField("count", len(g.data.RuntimeStats)).Info("Generated runtime statistics")

	return g.data.RuntimeStats
}

// runtimeStatsRow aggregates one plan's executions within one interval.
// Correlated metrics are derived from unpressured durations, then the
// scenario pressure factors are applied.
func (g *generator) runtimeStatsRow(planID int, interval dmv.Interval, profile workload.Profile) dmv.RuntimeStats {
	executions := g.sampler.Poisson(profile.ExecutionFrequency)
	if executions < 1 {
		executions = 1
	}

	durations := g.durationSamples(profile, executions)
	cpu := g.correlator.CPUFromDurations(durations)
	logical := g.correlator.LogicalReadsFromDurations(durations)
	physical := g.correlator.PhysicalReadsFromLogical(logical, baseCacheHitRatio/g.scenario.IOPressure)

	for i := range durations {
		durations[i] *= g.scenario.CPUPressure * g.scenario.IOPressure

		cpu[i] *= g.scenario.CPUPressure
		if cpu[i] > durations[i] {
			cpu[i] = durations[i]
		}
	}

	rows := g.sampler.LogNormal(profile.AvgRows, profile.RowsStddev, executions)
	for i, v := range rows {
		rows[i] = math.Trunc(math.Max(1, v))
	}

	memory := make([]float64, executions)
	for i := range memory {
		memory[i] = math.Max(1, math.Trunc(logical[i]*g.scenario.MemoryPressure*g.sampler.Uniform(0.1, 0.3)))
	}

	first, last := g.executionTimes(interval, executions)

	return dmv.RuntimeStats{
		RuntimeStatsID:     g.ids.nextRuntimeStatsID(),
		PlanID:             planID,
		IntervalID:         interval.IntervalID,
		ExecutionType:      dmv.ExecutionTypeRegular,
		FirstExecutionTime: first,
		LastExecutionTime:  last,
		CountExecutions:    executions,
		Duration:           metricSummary(durations),
		CPUTime:            metricSummary(cpu),
		LogicalIOReads:     metricSummary(logical),
		PhysicalIOReads:    metricSummary(physical),
		MaxUsedMemory:      metricSummary(memory),
		RowCount:           metricSummary(rows),
	}
}

func (g *generator) GenerateWaitStats() []dmv.WaitStats {
	g.advance(StageWaitStats)

	for _, stats := range g.data.RuntimeStats {
		categories := g.sampler.IntBetween(1, 4)

		for _, idx := range g.sampler.PickIndices(len(dmv.WaitCategories), categories) {
			g.data.WaitStats = append(g.data.WaitStats, g.waitStatsRow(stats, dmv.WaitCategories[idx]))
		}
	}

	g.log.WithField("count", len(g.data.WaitStats)).Info("Generated wait statistics")

	return g.data.WaitStats
}

// waitStatsRow builds the wait aggregate for one category of one runtime
// stats row. Waits take 5-40% of the query duration, scaled further by
// the pressure factor matching the category.
func (g *generator) waitStatsRow(stats dmv.RuntimeStats, category dmv.WaitCategory) dmv.WaitStats {
	avgWaitMs := stats.Duration.Avg * g.sampler.Uniform(0.05, 0.4) / 1000

	switch {
	case category.IsIO():
		avgWaitMs *= g.scenario.IOPressure
	case category.IsMemory():
		avgWaitMs *= g.scenario.MemoryPressure
	}

	samples := g.sampler.LogNormal(avgWaitMs, avgWaitMs*0.3, stats.CountExecutions)
	for i, v := range samples {
		samples[i] = math.Max(1, v)
	}

	summary := sampler.Summarize(samples)

	return dmv.WaitStats{
		PlanID:      stats.PlanID,
		IntervalID:  stats.IntervalID,
		Category:    category,
		TotalWaitMs: summary.Total,
		AvgWaitMs:   summary.Avg,
		LastWaitMs:  summary.Last,
		MinWaitMs:   summary.Min,
		MaxWaitMs:   summary.Max,
		StdevWaitMs: summary.Stdev,
	}
}

func (g *generator) GenerateErrorLog() []dmv.ErrorLogEntry {
	synth := newErrorLogSynthesizer(sampler.New(rand.New(rand.NewSource(g.seed))), g.start, g.end)

	g.data.ErrorLog = synth.generate()

	g.log.WithField("count", len(g.data.ErrorLog)).Info("Generated error log entries")

	return g.data.ErrorLog
}

func (g *generator) Dataset() *Dataset {
	return &g.data
}

func (g *generator) Scenario() workload.Scenario {
	return g.scenario
}

func (g *generator) Relationships() *Relationships {
	return g.rels
}

func (g *generator) Window() (time.Time, time.Time) {
	return g.start, g.end
}

// pickClass draws a query class from the scenario mix.
func (g *generator) pickClass() workload.Class {
	weights := make([]float64, len(g.scenario.Mix))
	for i, share := range g.scenario.Mix {
		weights[i] = share.Weight
	}

	return g.scenario.Mix[g.sampler.WeightedIndex(weights)].Class
}

// durationSamples draws per-execution durations in microseconds, floored
// at one.
func (g *generator) durationSamples(profile workload.Profile, executions int) []float64 {
	durations := g.sampler.LogNormal(profile.AvgDurationMs*1000, profile.DurationStddev*1000, executions)
	for i, v := range durations {
		durations[i] = math.Max(1, v)
	}

	return durations
}

// executionTimes places the first and last execution inside the interval.
// A single execution lands anywhere; repeated executions start in the
// first fifth of the window and finish in the last.
func (g *generator) executionTimes(interval dmv.Interval, executions int) (time.Time, time.Time) {
	windowSeconds := interval.EndTime.Sub(interval.StartTime).Seconds()

	if executions == 1 {
		at := interval.StartTime.Add(durationSeconds(g.sampler.Uniform(0, windowSeconds)))

		return at, at
	}

	first := interval.StartTime.Add(durationSeconds(g.sampler.Uniform(0, windowSeconds*0.2)))
	last := interval.StartTime.Add(durationSeconds(g.sampler.Uniform(windowSeconds*0.8, windowSeconds)))

	return first, last
}

func metricSummary(values []float64) dmv.MetricSummary {
	summary := sampler.Summarize(values)

	return dmv.MetricSummary{
		Avg:  summary.Avg,
		Last: summary.Last,
		Min:  summary.Min,
		Max:  summary.Max,
	}
}

func durationSeconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func durationHours(v float64) time.Duration {
	return time.Duration(v * float64(time.Hour))
}
