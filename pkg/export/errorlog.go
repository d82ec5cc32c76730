package export

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/lab271/dmvoor/pkg/config"
	"github.com/lab271/dmvoor/pkg/dmv"
	"github.com/lab271/dmvoor/pkg/fsutil"
)

// exportErrorLog writes the instance error log as UTF-16 LE with BOM and
// CRLF line endings, the encoding Management Studio saves logs in. Rows
// are comma-joined without quoting; messages carry the "<c/>" comma
// placeholder instead.
func (e *exporter) exportErrorLog(entries []dmv.ErrorLogEntry, result *Result) error {
	name := e.exp.ErrorLogFilename
	if name == "" {
		name = config.DefaultErrorLogFilename
	}

	sorted := make([]dmv.ErrorLogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	var sb strings.Builder

	sb.WriteString(strings.Join(dmv.ErrorLogColumns, ","))
	sb.WriteString("\r\n")

	for i := range sorted {
		sb.WriteString(strings.Join(sorted[i].Values(), ","))
		sb.WriteString("\r\n")
	}

	path := filepath.Join(e.gen.OutputDir, name)
	if err := fsutil.WriteFile(path, utf16LEBytes(sb.String()), 0o644, e.owner); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}

	result.add(name, len(sorted))
	e.log.WithField("rows", len(sorted)).Debug("Wrote error log export")

	return nil
}

// utf16LEBytes encodes text as UTF-16 little-endian prefixed with a BOM.
func utf16LEBytes(text string) []byte {
	codes := utf16.Encode([]rune(text))

	buf := make([]byte, 2+2*len(codes))
	buf[0], buf[1] = 0xFF, 0xFE

	for i, code := range codes {
		binary.LittleEndian.PutUint16(buf[2+2*i:], code)
	}

	return buf
}
