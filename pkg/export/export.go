package export

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/lab271/dmvoor/pkg/config"
	"github.com/lab271/dmvoor/pkg/dmv"
	"github.com/lab271/dmvoor/pkg/fsutil"
	"github.com/lab271/dmvoor/pkg/generator"
)

// Exporter writes generated datasets to the output directory in the
// configured formats.
type Exporter interface {
	// Export writes the dataset and returns the written files.
	Export(ds *generator.Dataset) (*Result, error)
}

// Result describes a completed export.
type Result struct {
	OutputDir string
	Files     []File
}

// File is one written export file. Path is relative to the output
// directory.
type File struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

func (r *Result) add(path string, rows int) {
	r.Files = append(r.Files, File{Path: path, Rows: rows})
}

type exporter struct {
	log   logrus.FieldLogger
	gen   *config.GeneratorConfig
	exp   *config.ExportConfig
	owner *fsutil.OwnerConfig
}

// Ensure interface compliance.
var _ Exporter = (*exporter)(nil)

// New creates an exporter for the configured output directory, formats,
// and file ownership.
func New(log logrus.FieldLogger, cfg *config.Config, owner *fsutil.OwnerConfig) Exporter {
	return &exporter{
		log:   log.WithField("component", "export"),
		gen:   &cfg.Generator,
		exp:   &cfg.Export,
		owner: owner,
	}
}

func (e *exporter) Export(ds *generator.Dataset) (*Result, error) {
	if err := fsutil.MkdirAll(e.gen.OutputDir, 0o755, e.owner); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	result := &Result{OutputDir: e.gen.OutputDir}
	entities := datasetEntities(ds)

	switch e.exp.Format {
	case config.FormatText:
		if err := e.exportText(entities, "", result); err != nil {
			return nil, err
		}
	case config.FormatCSV:
		if err := e.exportCSV(entities, "", result); err != nil {
			return nil, err
		}
	case config.FormatBoth:
		if err := e.exportText(entities, "text", result); err != nil {
			return nil, err
		}

		if err := e.exportCSV(entities, "csv", result); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown export format %q", e.exp.Format)
	}

	// The error log lives at the output root in every mode, like on a
	// real instance where it sits outside the Query Store.
	if e.exp.ErrorLog {
		if err := e.exportErrorLog(ds.ErrorLog, result); err != nil {
			return nil, err
		}
	}

	e.log.WithFields(logrus.Fields{
		"dir":   e.gen.OutputDir,
		"files": len(result.Files),
	}).Info("Export complete")

	return result, nil
}

// subdirFor resolves and creates the directory a format writes into. An
// empty subdir means the output root.
func (e *exporter) subdirFor(subdir string) (string, error) {
	if subdir == "" {
		return e.gen.OutputDir, nil
	}

	dir := filepath.Join(e.gen.OutputDir, subdir)
	if err := fsutil.MkdirAll(dir, 0o755, e.owner); err != nil {
		return "", fmt.Errorf("creating %s directory: %w", subdir, err)
	}

	return dir, nil
}

// entityRows pairs one DMV's export base name with its rows and column
// headers, in the order files are written.
type entityRows struct {
	base    string
	columns []string
	rows    []dmv.Row
}

func datasetEntities(ds *generator.Dataset) []entityRows {
	intervals := make([]dmv.Row, len(ds.Intervals))
	for i := range ds.Intervals {
		intervals[i] = &ds.Intervals[i]
	}

	texts := make([]dmv.Row, len(ds.QueryTexts))
	for i := range ds.QueryTexts {
		texts[i] = &ds.QueryTexts[i]
	}

	queries := make([]dmv.Row, len(ds.Queries))
	for i := range ds.Queries {
		queries[i] = &ds.Queries[i]
	}

	plans := make([]dmv.Row, len(ds.Plans))
	for i := range ds.Plans {
		plans[i] = &ds.Plans[i]
	}

	runtimeStats := make([]dmv.Row, len(ds.RuntimeStats))
	for i := range ds.RuntimeStats {
		runtimeStats[i] = &ds.RuntimeStats[i]
	}

	waitStats := make([]dmv.Row, len(ds.WaitStats))
	for i := range ds.WaitStats {
		waitStats[i] = &ds.WaitStats[i]
	}

	return []entityRows{
		{base: "sys.query_store_runtime_stats_interval", columns: (&dmv.Interval{}).Columns(), rows: intervals},
		{base: "sys.query_store_query_text", columns: (&dmv.QueryText{}).Columns(), rows: texts},
		{base: "sys.query_store_query", columns: (&dmv.Query{}).Columns(), rows: queries},
		{base: "sys.query_store_plan", columns: (&dmv.Plan{}).Columns(), rows: plans},
		{base: "sys.query_store_runtime_stats", columns: (&dmv.RuntimeStats{}).Columns(), rows: runtimeStats},
		{base: "sys.query_store_wait_stats", columns: (&dmv.WaitStats{}).Columns(), rows: waitStats},
	}
}
