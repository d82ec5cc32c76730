package dmv

import "strconv"

// QueryColumns is the export column order for sys.query_store_query.
var QueryColumns = []string{
	"query_id",
	"query_text_id",
	"context_settings_id",
	"object_id",
	"batch_sql_handle",
	"query_hash",
	"is_internal_query",
	"query_parameterization_type",
	"query_parameterization_type_desc",
}

// Query is one compiled variant of a query text.
type Query struct {
	QueryID              int
	QueryTextID          int
	ContextSettingsID    int
	ObjectID             int
	BatchSQLHandle       *string
	QueryHash            string
	IsInternalQuery      bool
	ParameterizationType ParameterizationType
}

// Ensure interface compliance.
var _ Row = (*Query)(nil)

// Columns returns the export column names in order.
func (q *Query) Columns() []string { return QueryColumns }

// Values returns the formatted field values in column order.
func (q *Query) Values() []string {
	return []string{
		strconv.Itoa(q.QueryID),
		strconv.Itoa(q.QueryTextID),
		strconv.Itoa(q.ContextSettingsID),
		strconv.Itoa(q.ObjectID),
		formatNullableString(q.BatchSQLHandle),
		q.QueryHash,
		FormatBit(q.IsInternalQuery),
		strconv.Itoa(int(q.ParameterizationType)),
		q.ParameterizationType.String(),
	}
}
