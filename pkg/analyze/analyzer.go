package analyze

import (
	"math"
)

// Column positions in the headerless runtime stats and wait stats exports,
// matching the column order of the sys.query_store_* views.
const (
	colPlanID           = 1
	colWaitCategory     = 3
	colCountExecutions  = 7
	colAvgDuration      = 8
	colAvgCPUTime       = 12
	colAvgLogicalReads  = 16
	colAvgPhysicalReads = 24
	colAvgRowcount      = 36
)

// StatisticalProfile captures the shape of a measured workload. Durations
// and CPU times are in microseconds, reads in pages.
type StatisticalProfile struct {
	DurationMean   float64 `yaml:"duration_mean" json:"duration_mean"`
	DurationStddev float64 `yaml:"duration_stddev" json:"duration_stddev"`
	DurationMedian float64 `yaml:"duration_median" json:"duration_median"`
	DurationP95    float64 `yaml:"duration_p95" json:"duration_p95"`
	DurationP99    float64 `yaml:"duration_p99" json:"duration_p99"`

	CPUMean            float64 `yaml:"cpu_mean" json:"cpu_mean"`
	CPUStddev          float64 `yaml:"cpu_stddev" json:"cpu_stddev"`
	CPUToDurationRatio float64 `yaml:"cpu_to_duration_ratio" json:"cpu_to_duration_ratio"`

	LogicalReadsMean   float64 `yaml:"logical_reads_mean" json:"logical_reads_mean"`
	LogicalReadsStddev float64 `yaml:"logical_reads_stddev" json:"logical_reads_stddev"`
	PhysicalReadsMean  float64 `yaml:"physical_reads_mean" json:"physical_reads_mean"`
	PhysicalReadRatio  float64 `yaml:"physical_read_ratio" json:"physical_read_ratio"`

	RowcountMean   float64 `yaml:"rowcount_mean" json:"rowcount_mean"`
	RowcountStddev float64 `yaml:"rowcount_stddev" json:"rowcount_stddev"`

	ExecutionsPerInterval float64 `yaml:"executions_per_interval" json:"executions_per_interval"`

	WaitCategoryDistribution map[string]float64 `yaml:"wait_category_distribution" json:"wait_category_distribution"`

	DurationReadsCorrelation float64 `yaml:"duration_reads_correlation" json:"duration_reads_correlation"`
}

// Classification is the share of plans falling into each behavior class.
type Classification struct {
	OLTPProportion  float64 `yaml:"oltp_proportion" json:"oltp_proportion"`
	OLAPProportion  float64 `yaml:"olap_proportion" json:"olap_proportion"`
	MixedProportion float64 `yaml:"mixed_proportion" json:"mixed_proportion"`
}

// DefaultProfile is the profile used when no runtime stats are available.
func DefaultProfile() StatisticalProfile {
	return StatisticalProfile{
		DurationMean:          10000,
		DurationStddev:        5000,
		DurationMedian:        5000,
		DurationP95:           20000,
		DurationP99:           30000,
		CPUMean:               8000,
		CPUStddev:             4000,
		CPUToDurationRatio:    0.8,
		LogicalReadsMean:      1000,
		LogicalReadsStddev:    500,
		PhysicalReadsMean:     50,
		PhysicalReadRatio:     0.05,
		RowcountMean:          100,
		RowcountStddev:        50,
		ExecutionsPerInterval: 10,
		WaitCategoryDistribution: map[string]float64{
			"Buffer IO":   0.4,
			"Network IO":  0.3,
			"Parallelism": 0.3,
		},
		DurationReadsCorrelation: 0.7,
	}
}

// Analyze computes the full report for one parsed export directory.
func Analyze(data *RawData) *Report {
	profile := AnalyzeRuntimeStats(data.RuntimeStats)
	if len(data.RuntimeStats) > 0 || len(data.WaitStats) > 0 {
		profile.WaitCategoryDistribution = AnalyzeWaitStats(data.WaitStats)
	}

	return &Report{
		Profile:        profile,
		Classification: ClassifyPlans(data.RuntimeStats),
		Profiles:       profileOverrides(profile),
		Counts:         data.Counts(),
		Parse:          data.Stats,
	}
}

// AnalyzeRuntimeStats derives the statistical profile from runtime stats
// rows. Only positive metric values are collected; metrics with no usable
// values fall back to fixed anchors.
func AnalyzeRuntimeStats(rows []Row) StatisticalProfile {
	if len(rows) == 0 {
		return DefaultProfile()
	}

	var durations, cpuTimes, logicalReads, physicalReads, rowcounts, executions []float64

	for _, row := range rows {
		collectPositive(&durations, row.Field(colAvgDuration))
		collectPositive(&cpuTimes, row.Field(colAvgCPUTime))
		collectPositive(&logicalReads, row.Field(colAvgLogicalReads))
		collectPositive(&physicalReads, row.Field(colAvgPhysicalReads))
		collectPositive(&rowcounts, row.Field(colAvgRowcount))
		collectPositive(&executions, row.Field(colCountExecutions))
	}

	// The correlation needs paired series, so compute it before the
	// empty-set anchors are substituted.
	correlation := pearson(durations, logicalReads)
	if math.IsNaN(correlation) {
		correlation = 0.7
	}

	durations = orAnchor(durations, 1000)
	cpuTimes = orAnchor(cpuTimes, 800)
	logicalReads = orAnchor(logicalReads, 100)
	physicalReads = orAnchor(physicalReads, 10)
	rowcounts = orAnchor(rowcounts, 10)
	executions = orAnchor(executions, 1)

	cpuRatio := 0.8
	if m := mean(durations); m > 0 {
		cpuRatio = mean(cpuTimes) / m
	}

	readRatio := 0.05
	if m := mean(logicalReads); m > 0 {
		readRatio = mean(physicalReads) / m
	}

	return StatisticalProfile{
		DurationMean:             mean(durations),
		DurationStddev:           stddev(durations),
		DurationMedian:           median(durations),
		DurationP95:              percentile(durations, 95),
		DurationP99:              percentile(durations, 99),
		CPUMean:                  mean(cpuTimes),
		CPUStddev:                stddev(cpuTimes),
		CPUToDurationRatio:       cpuRatio,
		LogicalReadsMean:         mean(logicalReads),
		LogicalReadsStddev:       stddev(logicalReads),
		PhysicalReadsMean:        mean(physicalReads),
		PhysicalReadRatio:        readRatio,
		RowcountMean:             mean(rowcounts),
		RowcountStddev:           stddev(rowcounts),
		ExecutionsPerInterval:    mean(executions),
		WaitCategoryDistribution: map[string]float64{},
		DurationReadsCorrelation: correlation,
	}
}

func collectPositive(dest *[]float64, field string) {
	if v := safeFloat(field, 0); v > 0 {
		*dest = append(*dest, v)
	}
}

func orAnchor(values []float64, anchor float64) []float64 {
	if len(values) == 0 {
		return []float64{anchor}
	}

	return values
}

// AnalyzeWaitStats turns wait stats rows into a category distribution.
// Without usable rows a fixed distribution is returned.
func AnalyzeWaitStats(rows []Row) map[string]float64 {
	if len(rows) == 0 {
		return map[string]float64{
			"Buffer IO":   0.3,
			"Network IO":  0.2,
			"Parallelism": 0.2,
			"Memory":      0.1,
			"Preemptive":  0.1,
			"Idle":        0.1,
		}
	}

	counts := map[string]int{}
	total := 0

	for _, row := range rows {
		category := row.Field(colWaitCategory)
		if category == "" || category == "Unknown" {
			continue
		}

		counts[category]++
		total++
	}

	if total == 0 {
		return map[string]float64{
			"Buffer IO":   0.3,
			"Network IO":  0.2,
			"Parallelism": 0.2,
		}
	}

	distribution := make(map[string]float64, len(counts))
	for category, count := range counts {
		distribution[category] = float64(count) / float64(total)
	}

	return distribution
}

// ClassifyPlans groups runtime stats by plan and classifies each plan as
// OLTP (fast and frequent), OLAP (slow and rare) or mixed.
func ClassifyPlans(rows []Row) Classification {
	type planStats struct {
		durations  []float64
		executions []float64
	}

	plans := map[string]*planStats{}

	for _, row := range rows {
		planID := row.Field(colPlanID)
		if planID == "" {
			planID = "0"
		}

		stats, ok := plans[planID]
		if !ok {
			stats = &planStats{}
			plans[planID] = stats
		}

		stats.durations = append(stats.durations, safeFloat(row.Field(colAvgDuration), 0))
		stats.executions = append(stats.executions, safeFloat(row.Field(colCountExecutions), 1))
	}

	if len(plans) == 0 {
		return Classification{OLTPProportion: 0.7, OLAPProportion: 0.2, MixedProportion: 0.1}
	}

	var oltp, olap, mixed int

	for _, stats := range plans {
		avgDuration := mean(stats.durations)
		avgExecutions := mean(stats.executions)

		switch {
		case avgDuration < 1000 && avgExecutions > 10:
			oltp++
		case avgDuration > 100000 && avgExecutions < 10:
			olap++
		default:
			mixed++
		}
	}

	total := float64(oltp + olap + mixed)

	return Classification{
		OLTPProportion:  float64(oltp) / total,
		OLAPProportion:  float64(olap) / total,
		MixedProportion: float64(mixed) / total,
	}
}
