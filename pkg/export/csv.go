package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/lab271/dmvoor/pkg/dmv"
	"github.com/lab271/dmvoor/pkg/fsutil"
)

func (e *exporter) exportCSV(entities []entityRows, subdir string, result *Result) error {
	dir, err := e.subdirFor(subdir)
	if err != nil {
		return err
	}

	for _, entity := range entities {
		name := entity.base + ".csv"

		if err := e.writeCSVFile(filepath.Join(dir, name), entity.columns, entity.rows); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}

		result.add(filepath.Join(subdir, name), len(entity.rows))
		e.log.WithFields(logrus.Fields{
			"file": name,
			"rows": len(entity.rows),
		}).Debug("Wrote csv export")
	}

	return nil
}

// writeCSVFile writes one DMV as comma-separated rows under a header
// line, CRLF-terminated like SQL Server's CSV exports.
func (e *exporter) writeCSVFile(path string, columns []string, rows []dmv.Row) error {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	if err := w.Write(columns); err != nil {
		return err
	}

	for _, row := range rows {
		if err := w.Write(row.Values()); err != nil {
			return err
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return err
	}

	return fsutil.WriteFile(path, buf.Bytes(), 0o644, e.owner)
}
