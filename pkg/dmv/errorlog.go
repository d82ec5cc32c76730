package dmv

import "time"

// ErrorLogColumns is the column order of an exported SQL Server error log.
var ErrorLogColumns = []string{
	"Date",
	"Source",
	"Severity",
	"Message",
	"Log ID",
	"Process ID",
	"Mail Item ID",
	"Account ID",
	"Last Modified",
	"Last Modified By",
}

// ErrorLogEntry is a single line of the instance error log. Messages carry
// the engine's "<c/>" comma placeholder, so rows never need quoting.
type ErrorLogEntry struct {
	Date     time.Time
	Source   string
	Severity string
	Message  string
}

// Ensure interface compliance.
var _ Row = (*ErrorLogEntry)(nil)

// Columns returns the export column names in order.
func (e *ErrorLogEntry) Columns() []string { return ErrorLogColumns }

// Values returns the formatted field values in column order. The trailing
// mail and audit columns are always blank, matching real exports.
func (e *ErrorLogEntry) Values() []string {
	return []string{
		e.Date.Format("01/02/2006 15:04:05"),
		e.Source,
		e.Severity,
		e.Message,
		"", "", "", "", "", "",
	}
}
