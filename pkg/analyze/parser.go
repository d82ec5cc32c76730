package analyze

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultMaxRows caps how many rows the parser reads per export file.
const DefaultMaxRows = 1000

// Row is one delimited line of an export file, addressed positionally. The
// files carry no header, so columns are only known by index.
type Row []string

// Field returns the value at position i, or the empty string when the row is
// shorter than that.
func (r Row) Field(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}

	return r[i]
}

// ParseStats counts what the parser accepted and dropped.
type ParseStats struct {
	FilesParsed int `yaml:"files_parsed" json:"files_parsed"`
	RowsParsed  int `yaml:"rows_parsed" json:"rows_parsed"`
	RowsSkipped int `yaml:"rows_skipped" json:"rows_skipped"`
}

// RawData holds the positional rows parsed from one Query Store export
// directory.
type RawData struct {
	Intervals    []Row
	QueryTexts   []Row
	Queries      []Row
	Plans        []Row
	RuntimeStats []Row
	WaitStats    []Row
	Stats        ParseStats
}

// Counts reports how many rows were parsed per entity.
func (d *RawData) Counts() RowCounts {
	return RowCounts{
		Intervals:    len(d.Intervals),
		QueryTexts:   len(d.QueryTexts),
		Queries:      len(d.Queries),
		Plans:        len(d.Plans),
		RuntimeStats: len(d.RuntimeStats),
		WaitStats:    len(d.WaitStats),
	}
}

// ParserOptions tune how exports are read.
type ParserOptions struct {
	// Delimiter forces a field delimiter. Empty means detect per file.
	Delimiter string
	// MaxRows caps rows read per file. Zero means DefaultMaxRows, negative
	// means unlimited.
	MaxRows int
}

// Parser reads the sys.query_store_* text exports from a directory.
type Parser struct {
	log       logrus.FieldLogger
	delimiter string
	maxRows   int
}

// NewParser creates a parser for Query Store text exports.
func NewParser(log logrus.FieldLogger, opts ParserOptions) *Parser {
	maxRows := opts.MaxRows
	if maxRows == 0 {
		maxRows = DefaultMaxRows
	}

	return &Parser{
		log:       log.WithField("component", "analyze"),
		delimiter: opts.Delimiter,
		maxRows:   maxRows,
	}
}

// exportFiles maps export file names to the RawData field they feed.
var exportFiles = []struct {
	name string
	dest func(*RawData) *[]Row
}{
	{"sys.query_store_runtime_stats_interval.txt", func(d *RawData) *[]Row { return &d.Intervals }},
	{"sys.query_store_query_text.txt", func(d *RawData) *[]Row { return &d.QueryTexts }},
	{"sys.query_store_query.txt", func(d *RawData) *[]Row { return &d.Queries }},
	{"sys.query_store_plan.txt", func(d *RawData) *[]Row { return &d.Plans }},
	{"sys.query_store_runtime_stats.txt", func(d *RawData) *[]Row { return &d.RuntimeStats }},
	{"sys.query_store_wait_stats.txt", func(d *RawData) *[]Row { return &d.WaitStats }},
}

// Parse reads every export file found under dir. Missing files are skipped
// with a warning; finding none at all is an error.
func (p *Parser) Parse(dir string) (*RawData, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}

	data := &RawData{}
	found := false

	for _, file := range exportFiles {
		rows, skipped, err := p.parseFile(filepath.Join(dir, file.name))
		if os.IsNotExist(err) {
			p.log.WithField("file", file.name).Warn("Export file not found, skipping")

			continue
		}

		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file.name, err)
		}

		*file.dest(data) = rows
		data.Stats.FilesParsed++
		data.Stats.RowsParsed += len(rows)
		data.Stats.RowsSkipped += skipped
		found = true

		p.log.WithFields(logrus.Fields{
			"file":    file.name,
			"rows":    len(rows),
			"skipped": skipped,
		}).Debug("Parsed export file")
	}

	if !found {
		return nil, fmt.Errorf("no query store export files found in %s", dir)
	}

	return data, nil
}

// parseFile reads one headerless export. The first line fixes the column
// count; lines with a different field count are dropped and counted.
func (p *Parser) parseFile(path string) ([]Row, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// Buffer the first lines so the delimiter can be detected before any
	// row is split, then stream the rest.
	var prelude []string

	for len(prelude) < 5 && scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if len(prelude) == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		prelude = append(prelude, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}

	delimiter := p.delimiter
	if delimiter == "" {
		delimiter = detectDelimiter(prelude)
	}

	var rows []Row

	columns := 0
	skipped := 0

	consume := func(line string) bool {
		if line == "" {
			return true
		}

		fields := splitLine(line, delimiter)
		if columns == 0 {
			columns = len(fields)
		}

		if len(fields) != columns {
			skipped++

			return true
		}

		rows = append(rows, Row(fields))

		return p.maxRows <= 0 || len(rows) < p.maxRows
	}

	for _, line := range prelude {
		if !consume(line) {
			return rows, skipped, nil
		}
	}

	for scanner.Scan() {
		if !consume(strings.TrimSuffix(scanner.Text(), "\r")) {
			return rows, skipped, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}

	return rows, skipped, nil
}

// delimiterCandidates are tried in order, so ties resolve to the semicolon
// SQL Server exports use.
var delimiterCandidates = []string{";", ",", "\t", "|"}

// detectDelimiter scores each candidate over the first five lines by how
// consistently it splits them into multi-field rows. Raw occurrence counts
// would misfire on query texts, where SQL carries far more commas than the
// single delimiter per line.
func detectDelimiter(lines []string) string {
	sample := make([]string, 0, 5)

	for _, line := range lines {
		if line != "" {
			sample = append(sample, line)
		}

		if len(sample) == 5 {
			break
		}
	}

	best := delimiterCandidates[0]
	bestScore := 0

	for _, candidate := range delimiterCandidates {
		score := 0
		columns := 0

		for _, line := range sample {
			fields := len(splitLine(line, candidate))
			if fields < 2 {
				continue
			}

			if columns == 0 {
				columns = fields
			}

			if fields == columns {
				score++
			}
		}

		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	return best
}

// splitLine splits on the delimiter, treating a backslash-prefixed delimiter
// as a literal character inside the field. That undoes the escaping the text
// exporters apply.
func splitLine(line, delimiter string) []string {
	parts := strings.Split(line, delimiter)
	fields := make([]string, 0, len(parts))

	for i := 0; i < len(parts); i++ {
		field := parts[i]
		for strings.HasSuffix(field, `\`) && i+1 < len(parts) {
			field = field[:len(field)-1] + delimiter + parts[i+1]
			i++
		}

		fields = append(fields, field)
	}

	return fields
}
