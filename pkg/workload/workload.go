package workload

// Class identifies one of the built-in query populations.
type Class int

const (
	ClassOLTP Class = iota
	ClassOLAP
	ClassProblematic
)

// String returns the display name of the class.
func (c Class) String() string {
	switch c {
	case ClassOLAP:
		return "OLAP"
	case ClassProblematic:
		return "Problematic"
	default:
		return "OLTP"
	}
}

// MarshalYAML renders the class by name rather than its numeric value.
func (c Class) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// Profile holds the statistical parameters for one query class. Durations
// and CPU are in milliseconds, reads in pages, frequency in executions per
// interval.
type Profile struct {
	AvgDurationMs      float64 `yaml:"avg_duration_ms" json:"avg_duration_ms" mapstructure:"avg_duration_ms"`
	DurationStddev     float64 `yaml:"duration_stddev" json:"duration_stddev" mapstructure:"duration_stddev"`
	AvgCPUMs           float64 `yaml:"avg_cpu_ms" json:"avg_cpu_ms" mapstructure:"avg_cpu_ms"`
	CPUStddev          float64 `yaml:"cpu_stddev" json:"cpu_stddev" mapstructure:"cpu_stddev"`
	AvgLogicalReads    float64 `yaml:"avg_logical_reads" json:"avg_logical_reads" mapstructure:"avg_logical_reads"`
	ReadsStddev        float64 `yaml:"reads_stddev" json:"reads_stddev" mapstructure:"reads_stddev"`
	AvgRows            float64 `yaml:"avg_rows" json:"avg_rows" mapstructure:"avg_rows"`
	RowsStddev         float64 `yaml:"rows_stddev" json:"rows_stddev" mapstructure:"rows_stddev"`
	ExecutionFrequency float64 `yaml:"execution_frequency" json:"execution_frequency" mapstructure:"execution_frequency"`
}

// Profiles maps each query class to the profile used when generating it.
type Profiles struct {
	OLTP        Profile `yaml:"oltp" json:"oltp" mapstructure:"oltp"`
	OLAP        Profile `yaml:"olap" json:"olap" mapstructure:"olap"`
	Problematic Profile `yaml:"problematic" json:"problematic" mapstructure:"problematic"`
}

// DefaultProfiles returns the built-in per-class parameters. OLTP is short
// point lookups at high frequency, OLAP is reporting scans, Problematic is
// the pathological tail.
func DefaultProfiles() Profiles {
	return Profiles{
		OLTP: Profile{
			AvgDurationMs:      50,
			DurationStddev:     20,
			AvgCPUMs:           30,
			CPUStddev:          15,
			AvgLogicalReads:    100,
			ReadsStddev:        50,
			AvgRows:            10,
			RowsStddev:         5,
			ExecutionFrequency: 500,
		},
		OLAP: Profile{
			AvgDurationMs:      5000,
			DurationStddev:     2000,
			AvgCPUMs:           4000,
			CPUStddev:          1500,
			AvgLogicalReads:    100000,
			ReadsStddev:        50000,
			AvgRows:            10000,
			RowsStddev:         5000,
			ExecutionFrequency: 5,
		},
		Problematic: Profile{
			AvgDurationMs:      15000,
			DurationStddev:     5000,
			AvgCPUMs:           10000,
			CPUStddev:          3000,
			AvgLogicalReads:    500000,
			ReadsStddev:        200000,
			AvgRows:            50000,
			RowsStddev:         20000,
			ExecutionFrequency: 2,
		},
	}
}

// For returns the profile for a class.
func (p Profiles) For(c Class) Profile {
	switch c {
	case ClassOLAP:
		return p.OLAP
	case ClassProblematic:
		return p.Problematic
	default:
		return p.OLTP
	}
}
