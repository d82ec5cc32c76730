package dmv

// EngineVersion is the SQL Server build the synthetic corpus claims to
// originate from.
const EngineVersion = "15.0.4445.1"

// CompatibilityLevel is the database compatibility level reported on every
// plan.
const CompatibilityLevel = 150

// Row is implemented by every Query Store entity that can be written as a
// delimited export row.
type Row interface {
	// Columns returns the export column names in order.
	Columns() []string
	// Values returns the formatted field values in column order.
	Values() []string
}
