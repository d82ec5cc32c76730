package dmv

import "strconv"

// QueryTextColumns is the export column order for sys.query_store_query_text.
var QueryTextColumns = []string{
	"query_text_id",
	"query_sql_text",
}

// QueryText is a unique SQL statement text.
type QueryText struct {
	QueryTextID int
	SQLText     string
}

// Ensure interface compliance.
var _ Row = (*QueryText)(nil)

// Columns returns the export column names in order.
func (q *QueryText) Columns() []string { return QueryTextColumns }

// Values returns the formatted field values in column order.
func (q *QueryText) Values() []string {
	return []string{
		strconv.Itoa(q.QueryTextID),
		q.SQLText,
	}
}
