package config

import (
	"crypto/sha256"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lab271/dmvoor/pkg/workload"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultDays is the default length of the generation window in days.
	DefaultDays = 7

	// DefaultIntervalHours is the default runtime stats interval length.
	DefaultIntervalHours = 1

	// DefaultNumUniqueQueries is the default number of unique query texts.
	DefaultNumUniqueQueries = 100

	// DefaultPlansPerQueryMin is the default lower bound of plans per query.
	DefaultPlansPerQueryMin = 1

	// DefaultPlansPerQueryMax is the default upper bound of plans per query.
	DefaultPlansPerQueryMax = 3

	// DefaultWorkload is the default workload scenario id.
	DefaultWorkload = "mixed"

	// DefaultSeed is the default random seed.
	DefaultSeed = 42

	// DefaultOutputDir is the default directory for generated files.
	DefaultOutputDir = "./synthetic_output"

	// DefaultDelimiter is the default field delimiter for text exports.
	DefaultDelimiter = ";"

	// DefaultErrorLogFilename is the default error log file name.
	DefaultErrorLogFilename = "sqlserver_log.txt"

	// DefaultListen is the default API server listen address.
	DefaultListen = ":8080"

	// envPrefix namespaces the environment variables viper merges in.
	envPrefix = "DMVOOR"
)

// Export format names.
const (
	FormatText = "text"
	FormatCSV  = "csv"
	FormatBoth = "both"
)

// Config is the root configuration for dmvoor.
type Config struct {
	Global    GlobalConfig    `yaml:"global" mapstructure:"global"`
	Generator GeneratorConfig `yaml:"generator" mapstructure:"generator"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Corpus    *CorpusConfig   `yaml:"corpus,omitempty" mapstructure:"corpus"`
	Upload    *UploadConfig   `yaml:"upload,omitempty" mapstructure:"upload"`
	Server    *ServerConfig   `yaml:"server,omitempty" mapstructure:"server"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// GeneratorConfig controls the shape of the synthetic dataset. The
// pressure and proportion fields default to zero, meaning the scenario's
// own values apply; setting them replaces the scenario values.
type GeneratorConfig struct {
	StartDate             string             `yaml:"start_date,omitempty" mapstructure:"start_date"`
	EndDate               string             `yaml:"end_date,omitempty" mapstructure:"end_date"`
	Days                  int                `yaml:"days" mapstructure:"days"`
	IntervalHours         int                `yaml:"interval_hours" mapstructure:"interval_hours"`
	NumUniqueQueries      int                `yaml:"num_unique_queries" mapstructure:"num_unique_queries"`
	PlansPerQueryMin      int                `yaml:"plans_per_query_min" mapstructure:"plans_per_query_min"`
	PlansPerQueryMax      int                `yaml:"plans_per_query_max" mapstructure:"plans_per_query_max"`
	Workload              string             `yaml:"workload" mapstructure:"workload"`
	CPUPressure           float64            `yaml:"cpu_pressure,omitempty" mapstructure:"cpu_pressure"`
	IOPressure            float64            `yaml:"io_pressure,omitempty" mapstructure:"io_pressure"`
	MemoryPressure        float64            `yaml:"memory_pressure,omitempty" mapstructure:"memory_pressure"`
	OLTPProportion        float64            `yaml:"oltp_proportion,omitempty" mapstructure:"oltp_proportion"`
	OLAPProportion        float64            `yaml:"olap_proportion,omitempty" mapstructure:"olap_proportion"`
	ProblematicProportion float64            `yaml:"problematic_proportion,omitempty" mapstructure:"problematic_proportion"`
	Seed                  int64              `yaml:"seed" mapstructure:"seed"`
	OutputDir             string             `yaml:"output_dir" mapstructure:"output_dir"`
	OutputOwner           string             `yaml:"output_owner,omitempty" mapstructure:"output_owner"`
	Delimiter             string             `yaml:"delimiter" mapstructure:"delimiter"`
	Profiles              *workload.Profiles `yaml:"profiles,omitempty" mapstructure:"profiles"`
}

// ExportConfig controls which file formats are written.
type ExportConfig struct {
	Format           string `yaml:"format" mapstructure:"format"`
	ErrorLog         bool   `yaml:"errorlog" mapstructure:"errorlog"`
	ErrorLogFilename string `yaml:"errorlog_filename,omitempty" mapstructure:"errorlog_filename"`
	Summary          bool   `yaml:"summary" mapstructure:"summary"`
}

// Load reads the optional YAML config file, merges DMVOOR_* environment
// variables over it, applies defaults, and validates the result. An empty
// path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every known key so environment overrides are
// picked up even without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("global.log_level", DefaultLogLevel)
	v.SetDefault("generator.start_date", "")
	v.SetDefault("generator.end_date", "")
	v.SetDefault("generator.days", DefaultDays)
	v.SetDefault("generator.interval_hours", DefaultIntervalHours)
	v.SetDefault("generator.num_unique_queries", DefaultNumUniqueQueries)
	v.SetDefault("generator.plans_per_query_min", DefaultPlansPerQueryMin)
	v.SetDefault("generator.plans_per_query_max", DefaultPlansPerQueryMax)
	v.SetDefault("generator.workload", DefaultWorkload)
	v.SetDefault("generator.cpu_pressure", 0.0)
	v.SetDefault("generator.io_pressure", 0.0)
	v.SetDefault("generator.memory_pressure", 0.0)
	v.SetDefault("generator.oltp_proportion", 0.0)
	v.SetDefault("generator.olap_proportion", 0.0)
	v.SetDefault("generator.problematic_proportion", 0.0)
	v.SetDefault("generator.seed", DefaultSeed)
	v.SetDefault("generator.output_dir", DefaultOutputDir)
	v.SetDefault("generator.output_owner", "")
	v.SetDefault("generator.delimiter", DefaultDelimiter)
	v.SetDefault("export.format", FormatText)
	v.SetDefault("export.errorlog", true)
	v.SetDefault("export.errorlog_filename", DefaultErrorLogFilename)
	v.SetDefault("export.summary", true)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Generator.validate(); err != nil {
		return err
	}

	switch c.Export.Format {
	case FormatText, FormatCSV, FormatBoth:
	default:
		return fmt.Errorf("export: unknown format %q (want text, csv, or both)", c.Export.Format)
	}

	if c.Corpus != nil && c.Corpus.Enabled {
		if err := c.Corpus.validate(); err != nil {
			return err
		}
	}

	if c.Upload != nil && c.Upload.Enabled && c.Upload.Bucket == "" {
		return fmt.Errorf("upload: bucket is required")
	}

	if c.Server != nil {
		if err := c.Server.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (g *GeneratorConfig) validate() error {
	if g.IntervalHours < 1 {
		return fmt.Errorf("generator: interval_hours must be at least 1, got %d", g.IntervalHours)
	}

	if g.NumUniqueQueries < 1 {
		return fmt.Errorf("generator: num_unique_queries must be at least 1, got %d", g.NumUniqueQueries)
	}

	if g.PlansPerQueryMin < 1 || g.PlansPerQueryMax < g.PlansPerQueryMin {
		return fmt.Errorf("generator: plans per query range %d..%d is invalid", g.PlansPerQueryMin, g.PlansPerQueryMax)
	}

	if g.StartDate == "" && g.EndDate == "" && g.Days < 1 {
		return fmt.Errorf("generator: days must be at least 1, got %d", g.Days)
	}

	if g.Delimiter == "" {
		return fmt.Errorf("generator: delimiter must not be empty")
	}

	if g.OutputDir == "" {
		return fmt.Errorf("generator: output_dir must not be empty")
	}

	if _, err := workload.ByName(g.Workload); err != nil {
		return fmt.Errorf("generator: %w", err)
	}

	for name, value := range map[string]float64{
		"cpu_pressure":    g.CPUPressure,
		"io_pressure":     g.IOPressure,
		"memory_pressure": g.MemoryPressure,
	} {
		if value < 0 {
			return fmt.Errorf("generator: %s must be positive when set, got %v", name, value)
		}
	}

	if err := g.validateProportions(); err != nil {
		return err
	}

	if _, _, err := g.Window(); err != nil {
		return fmt.Errorf("generator: %w", err)
	}

	return nil
}

// validateProportions checks the class proportion overrides. They are
// all-or-nothing: either none is set and the scenario mix applies, or all
// three are set and must sum to one.
func (g *GeneratorConfig) validateProportions() error {
	set := 0

	for name, value := range map[string]float64{
		"oltp_proportion":        g.OLTPProportion,
		"olap_proportion":        g.OLAPProportion,
		"problematic_proportion": g.ProblematicProportion,
	} {
		if value < 0 {
			return fmt.Errorf("generator: %s must be non-negative, got %v", name, value)
		}

		if value > 0 {
			set++
		}
	}

	if set == 0 {
		return nil
	}

	if set != 3 {
		return fmt.Errorf("generator: class proportions must be set together (oltp, olap, problematic)")
	}

	sum := g.OLTPProportion + g.OLAPProportion + g.ProblematicProportion
	if math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("generator: class proportions sum to %v, want 1.0", sum)
	}

	return nil
}

// Window resolves the generation time range. Explicit dates win; without
// them the window ends now (UTC, truncated to the hour) and reaches back
// Days days.
func (g *GeneratorConfig) Window() (time.Time, time.Time, error) {
	if g.StartDate != "" || g.EndDate != "" {
		if g.StartDate == "" || g.EndDate == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("start_date and end_date must be set together")
		}

		start, err := parseDate(g.StartDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing start_date: %w", err)
		}

		end, err := parseDate(g.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing end_date: %w", err)
		}

		if !start.Before(end) {
			return time.Time{}, time.Time{}, fmt.Errorf("start_date %q is not before end_date %q", g.StartDate, g.EndDate)
		}

		return start, end, nil
	}

	end := time.Now().UTC().Truncate(time.Hour)

	return end.AddDate(0, 0, -g.Days), end, nil
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q (want RFC3339, YYYY-MM-DD HH:MM:SS, or YYYY-MM-DD)", value)
}

// Digest returns the sha256 of the canonical YAML rendering of the config,
// so runs produced by the same settings index identically.
func (c *Config) Digest() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}
