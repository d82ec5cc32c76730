package analyze

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func writeExport(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestParser_Parse(t *testing.T) {
	dir := t.TempDir()

	writeExport(t, dir, "sys.query_store_runtime_stats_interval.txt",
		"\ufeff1;2024-01-01 10:00:00.0000000 +00:00;2024-01-01 11:00:00.0000000 +00:00;NULL\n"+
			"2;2024-01-01 11:00:00.0000000 +00:00;2024-01-01 12:00:00.0000000 +00:00;NULL\n")
	writeExport(t, dir, "sys.query_store_query_text.txt",
		"\ufeff1;SELECT * FROM Orders\n"+
			"2;SELECT Name\\; Value FROM Settings\n")

	data, err := NewParser(testLogger(), ParserOptions{}).Parse(dir)
	require.NoError(t, err)

	require.Len(t, data.Intervals, 2)
	assert.Equal(t, "1", data.Intervals[0].Field(0), "BOM must be stripped from the first row")
	assert.Equal(t, "NULL", data.Intervals[0].Field(3))

	require.Len(t, data.QueryTexts, 2)
	assert.Equal(t, "SELECT Name; Value FROM Settings", data.QueryTexts[1].Field(1),
		"escaped delimiters must be unescaped")

	assert.Empty(t, data.RuntimeStats)
	assert.Equal(t, 2, data.Stats.FilesParsed)
	assert.Equal(t, 4, data.Stats.RowsParsed)
	assert.Zero(t, data.Stats.RowsSkipped)
}

func TestParser_NoFiles(t *testing.T) {
	_, err := NewParser(testLogger(), ParserOptions{}).Parse(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no query store export files")
}

func TestParser_MissingDirectory(t *testing.T) {
	_, err := NewParser(testLogger(), ParserOptions{}).Parse(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading input directory")
}

func TestParser_SkipsMismatchedRows(t *testing.T) {
	dir := t.TempDir()

	writeExport(t, dir, "sys.query_store_query.txt",
		"1;2;3\n"+
			"4;5\n"+
			"6;7;8\n")

	data, err := NewParser(testLogger(), ParserOptions{}).Parse(dir)
	require.NoError(t, err)

	assert.Len(t, data.Queries, 2)
	assert.Equal(t, 1, data.Stats.RowsSkipped)
}

func TestParser_MaxRows(t *testing.T) {
	dir := t.TempDir()

	writeExport(t, dir, "sys.query_store_plan.txt", "1;a\n2;b\n3;c\n4;d\n")

	data, err := NewParser(testLogger(), ParserOptions{MaxRows: 2}).Parse(dir)
	require.NoError(t, err)
	assert.Len(t, data.Plans, 2)

	data, err = NewParser(testLogger(), ParserOptions{MaxRows: -1}).Parse(dir)
	require.NoError(t, err)
	assert.Len(t, data.Plans, 4)
}

func TestParser_ExplicitDelimiter(t *testing.T) {
	dir := t.TempDir()

	// Comma-delimited rows would auto-detect as ",", so force "|".
	writeExport(t, dir, "sys.query_store_query.txt", "1|a,b\n2|c,d\n")

	data, err := NewParser(testLogger(), ParserOptions{Delimiter: "|"}).Parse(dir)
	require.NoError(t, err)

	require.Len(t, data.Queries, 2)
	assert.Equal(t, "a,b", data.Queries[0].Field(1))
}

func TestParser_CRLFLines(t *testing.T) {
	dir := t.TempDir()

	writeExport(t, dir, "sys.query_store_query.txt", "1;a\r\n2;b\r\n")

	data, err := NewParser(testLogger(), ParserOptions{}).Parse(dir)
	require.NoError(t, err)

	require.Len(t, data.Queries, 2)
	assert.Equal(t, "a", data.Queries[0].Field(1))
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{name: "semicolons", lines: []string{"a;b;c", "d;e;f"}, want: ";"},
		{name: "commas", lines: []string{"a,b,c", "d,e,f"}, want: ","},
		{name: "tabs", lines: []string{"a\tb", "c\td"}, want: "\t"},
		{name: "pipes", lines: []string{"a|b|c"}, want: "|"},
		{name: "tie falls to semicolon", lines: []string{"a;b,c"}, want: ";"},
		{name: "no delimiters", lines: []string{"abc"}, want: ";"},
		{name: "empty", lines: nil, want: ";"},
		{name: "only first five lines sampled", lines: []string{"a;b", "a;b", "a;b", "a;b", "a;b", "a,b,c,d,e,f,g"}, want: ";"},
		{name: "sql commas outnumber the delimiter", lines: []string{
			"1;SELECT OrderID, CustomerID, Total FROM Orders",
			"2;INSERT INTO AuditLog (EventType, UserID, CreatedDate) VALUES (@p0, @p1, @p2)",
			"3;SELECT * FROM Customers",
		}, want: ";"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectDelimiter(tt.lines))
		})
	}
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{name: "plain", line: "a;b;c", want: []string{"a", "b", "c"}},
		{name: "escaped delimiter", line: `a\;b;c`, want: []string{"a;b", "c"}},
		{name: "trailing empty field", line: "a;b;", want: []string{"a", "b", ""}},
		{name: "consecutive escapes", line: `a\;\;b;c`, want: []string{"a;;b", "c"}},
		{name: "escape at end", line: `a;b\`, want: []string{"a", `b\`}},
		{name: "single field", line: "abc", want: []string{"abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitLine(tt.line, ";"))
		})
	}
}

func TestRowField(t *testing.T) {
	row := Row{"a", "b"}

	assert.Equal(t, "a", row.Field(0))
	assert.Equal(t, "b", row.Field(1))
	assert.Empty(t, row.Field(2))
	assert.Empty(t, row.Field(-1))
}
