package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lab271/dmvoor/pkg/dmv"
	"github.com/lab271/dmvoor/pkg/fsutil"
)

// utf8BOM prefixes delimited text exports the way SQL Server's own
// export tooling does.
const utf8BOM = "\ufeff"

func (e *exporter) exportText(entities []entityRows, subdir string, result *Result) error {
	dir, err := e.subdirFor(subdir)
	if err != nil {
		return err
	}

	for _, entity := range entities {
		name := entity.base + ".txt"

		if err := e.writeTextFile(filepath.Join(dir, name), entity.rows); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}

		result.add(filepath.Join(subdir, name), len(entity.rows))
		e.log.WithFields(logrus.Fields{
			"file": name,
			"rows": len(entity.rows),
		}).Debug("Wrote text export")
	}

	return nil
}

// writeTextFile writes one DMV in the delimited layout: UTF-8 BOM, no
// header row, one record per line.
func (e *exporter) writeTextFile(path string, rows []dmv.Row) error {
	var buf bytes.Buffer

	buf.WriteString(utf8BOM)

	for _, row := range rows {
		buf.WriteString(e.delimitedLine(row.Values()))
		buf.WriteByte('\n')
	}

	return fsutil.WriteFile(path, buf.Bytes(), 0o644, e.owner)
}

// delimitedLine joins one record, escaping delimiter occurrences inside
// values with a backslash so lines stay splittable.
func (e *exporter) delimitedLine(values []string) string {
	delimiter := e.gen.Delimiter

	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = strings.ReplaceAll(v, delimiter, `\`+delimiter)
	}

	return strings.Join(escaped, delimiter)
}
