package generator

import (
	"fmt"
	"strings"

	"github.com/lab271/dmvoor/pkg/sampler"
	"github.com/lab271/dmvoor/pkg/workload"
)

// identifierWords seed synthetic table and column names.
var identifierWords = []string{
	"account", "alert", "archive", "asset", "audit", "balance", "batch",
	"booking", "budget", "campaign", "carrier", "catalog", "channel",
	"claim", "contract", "customer", "device", "discount", "document",
	"employee", "event", "expense", "forecast", "incident", "inventory",
	"invoice", "journal", "lead", "ledger", "license", "manifest",
	"member", "message", "metric", "milestone", "order", "parcel",
	"partner", "payment", "permission", "product", "project", "quote",
	"reading", "refund", "region", "report", "reservation", "resource",
	"revenue", "route", "schedule", "segment", "sensor", "session",
	"shipment", "subscription", "supplier", "tariff", "task", "template",
	"tenant", "ticket", "transaction", "vendor", "voucher", "warehouse",
	"workflow", "zone",
}

// bulkInsertColumns are the column definitions bulk load statements draw
// from, in fixed order.
var bulkInsertColumns = []string{
	"[Server] nvarchar(128) collate SQL_Latin1_General_CP1_CI_AS",
	"[DatabaseName] nvarchar(128) collate SQL_Latin1_General_CP1_CI_AS",
	"[ObjectName] nvarchar(256) collate SQL_Latin1_General_CP1_CI_AS",
	"[Status] varchar(50) collate SQL_Latin1_General_CP1_CI_AS",
	"[CreatedDate] datetime",
	"[ModifiedDate] datetime",
	"[RecordCount] bigint",
	"[SizeMB] decimal(18,2)",
}

// storedProcColumns are the column names parameterized inserts draw from,
// in fixed order.
var storedProcColumns = []string{
	"Server", "DatabaseName", "ObjectName", "Status",
	"CreatedDate", "ModifiedBy", "Category", "Priority",
}

// sqlSynthesizer builds statement texts shaped like each query class.
type sqlSynthesizer struct {
	sampler *sampler.Sampler
}

func newSQLSynthesizer(s *sampler.Sampler) *sqlSynthesizer {
	return &sqlSynthesizer{sampler: s}
}

// ForClass returns a statement text drawn from the class's family mix.
func (s *sqlSynthesizer) ForClass(c workload.Class) string {
	switch c {
	case workload.ClassOLAP:
		builders := []func() string{
			s.olapAggregate,
			s.cte,
			s.dynamicPivot,
			s.windowFunction,
			s.tempTable,
		}

		return builders[s.sampler.WeightedIndex([]float64{0.3, 0.25, 0.15, 0.15, 0.15})]()
	case workload.ClassProblematic:
		return s.problematic()
	default:
		builders := []func() string{
			s.oltpCRUD,
			s.storedProc,
			s.insertBulk,
			s.selectInto,
			s.deleteDateRange,
		}

		return builders[s.sampler.WeightedIndex([]float64{0.4, 0.2, 0.15, 0.15, 0.1})]()
	}
}

func (s *sqlSynthesizer) word() string {
	return identifierWords[s.sampler.IntBetween(0, len(identifierWords)-1)]
}

func (s *sqlSynthesizer) table() string {
	return titled(s.word()) + "s"
}

func titled(w string) string {
	if w == "" {
		return w
	}

	return strings.ToUpper(w[:1]) + w[1:]
}

func (s *sqlSynthesizer) pick(options []string) string {
	return options[s.sampler.IntBetween(0, len(options)-1)]
}

func (s *sqlSynthesizer) oltpCRUD() string {
	table := s.table()
	id := s.sampler.IntBetween(1, 999999)

	switch s.sampler.WeightedIndex([]float64{0.6, 0.2, 0.15, 0.05}) {
	case 1:
		return fmt.Sprintf("INSERT INTO %s (Name, Value, CreatedDate) VALUES (@p0, @p1, GETDATE())", table)
	case 2:
		return fmt.Sprintf("UPDATE %s SET Status = @p0, ModifiedDate = GETDATE() WHERE Id = %d", table, id)
	case 3:
		return fmt.Sprintf("DELETE FROM %s WHERE Id = %d", table, id)
	default:
		return fmt.Sprintf("SELECT * FROM %s WHERE Id = %d", table, id)
	}
}

func (s *sqlSynthesizer) olapAggregate() string {
	return fmt.Sprintf(
		"SELECT t1.%s_id, COUNT(*) as total_count, SUM(t2.amount) as total_amount, "+
			"AVG(t2.value) as avg_value FROM %s t1 INNER JOIN %s t2 ON t1.id = t2.%s_id "+
			"LEFT JOIN %s t3 ON t2.id = t3.%s_id WHERE t1.date >= DATEADD(month, -6, GETDATE()) "+
			"GROUP BY t1.%s_id ORDER BY total_amount DESC",
		s.word(), s.table(), s.table(), s.word(), s.table(), s.word(), s.word(),
	)
}

func (s *sqlSynthesizer) problematic() string {
	table := s.table()

	switch s.sampler.IntBetween(0, 3) {
	case 0:
		return fmt.Sprintf("SELECT * FROM %s WHERE Name LIKE '%%%s%%'", table, s.word())
	case 1:
		return fmt.Sprintf("SELECT * FROM %s WHERE YEAR(CreatedDate) = %d", table, s.sampler.IntBetween(2020, 2024))
	case 2:
		return fmt.Sprintf("SELECT * FROM %s ORDER BY CreatedDate DESC", table)
	default:
		return fmt.Sprintf("SELECT * FROM %s t1 CROSS JOIN %s t2 WHERE t1.value > t2.value", table, s.table())
	}
}

func (s *sqlSynthesizer) storedProc() string {
	table := s.table()
	numParams := s.sampler.IntBetween(2, 7)

	params := make([]string, 0, numParams)
	values := make([]string, 0, numParams)
	columns := make([]string, 0, numParams)

	for i := 0; i < numParams; i++ {
		name := fmt.Sprintf("@Param%06d", i+4)
		params = append(params, name+" varchar(100)")
		values = append(values, name)
		columns = append(columns, "["+storedProcColumns[i]+"]")
	}

	return fmt.Sprintf("(%s)INSERT [dbo].[%s](%s) VALUES(%s)",
		strings.Join(params, ", "), table,
		strings.Join(columns, ", "), strings.Join(values, ", "))
}

func (s *sqlSynthesizer) insertBulk() string {
	table := titled(s.word()) + "Data"
	numCols := s.sampler.IntBetween(4, len(bulkInsertColumns))

	return fmt.Sprintf("insert bulk [dbo].[%s](%s)with(TABLOCK,CHECK_CONSTRAINTS)",
		table, strings.Join(bulkInsertColumns[:numCols], ","))
}

func (s *sqlSynthesizer) selectInto() string {
	columns := s.pick([]string{
		"query_server, usage, query_disk",
		"Server, DatabaseName, Status",
		"ObjectName, CreatedDate, SizeMB",
	})
	condition := s.pick([]string{
		"WHERE usage = 'Data'",
		"WHERE Status = 'Active'",
		"WHERE CreatedDate > DATEADD(day, -30, GETDATE())",
	})

	return fmt.Sprintf("SELECT %s INTO #%s FROM @%ss %s", columns, s.word(), s.word(), condition)
}

func (s *sqlSynthesizer) deleteDateRange() string {
	schema := s.pick([]string{"dbo", "DBA_Repository", "staging"})
	table := titled(s.word()) + s.pick([]string{"History", "Log", "Archive", "Temp"})
	dateField := s.pick([]string{"Datum", "CreatedDate", "LogDate", "Timestamp"})

	intervals := []struct {
		unit string
		n    int
	}{
		{"yy", -1}, {"m", -6}, {"m", -3}, {"d", -90},
	}
	iv := intervals[s.sampler.IntBetween(0, len(intervals)-1)]

	return fmt.Sprintf("DELETE FROM %s.%s WHERE %s < DATEADD(%s, %d, GETDATE())",
		schema, table, dateField, iv.unit, iv.n)
}

func (s *sqlSynthesizer) cte() string {
	cteName := "cte_" + s.word() + "s"
	field1 := s.word()
	field2 := s.word()

	return fmt.Sprintf(
		"WITH %s AS ( SELECT %s, %s FROM %s UNION SELECT %s, %s FROM %s ) "+
			"SELECT srv.%s, COUNT(*) as total FROM %s srv GROUP BY srv.%s ORDER BY total DESC",
		cteName, field1, field2, s.table(), field1, field2, s.table(),
		field1, cteName, field1,
	)
}

func (s *sqlSynthesizer) dynamicPivot() string {
	varName := "@" + s.word()

	return fmt.Sprintf(
		"(%s nvarchar(max))SELECT %s = %s + N'<td>'+ isnull(cast([%s] as nvarchar(max)), '&nbsp;') + '</td>'+ FROM %s",
		varName, varName, varName, s.word(), s.table(),
	)
}

func (s *sqlSynthesizer) windowFunction() string {
	partitionField := s.word() + "_id"
	orderField := s.pick([]string{"CreatedDate", "ModifiedDate", "Timestamp"})

	return fmt.Sprintf(
		"SELECT %s, ROW_NUMBER() OVER (PARTITION BY %s ORDER BY %s DESC) as row_num, "+
			"LAG(%s) OVER (PARTITION BY %s ORDER BY %s) as prev_date FROM %s "+
			"WHERE %s >= DATEADD(month, -3, GETDATE())",
		partitionField, partitionField, orderField,
		orderField, partitionField, orderField, s.table(), orderField,
	)
}

func (s *sqlSynthesizer) tempTable() string {
	tempVar := "@" + titled(s.word())

	return fmt.Sprintf(
		"(@TempTableID int)INSERT %s SELECT name FROM tempdb.sys.columns AS c WHERE c.object_id = @TempTableID",
		tempVar,
	)
}

// InferClass classifies a statement text by its shape: joined aggregation
// reads as OLAP, scan-forcing patterns read as problematic, everything
// else as OLTP. The same heuristics drive runtime stats generation and
// keep the analyzer's view consistent with the generator's.
func InferClass(sql string) workload.Class {
	lower := strings.ToLower(sql)

	if strings.Contains(lower, "join") &&
		(strings.Contains(lower, "group by") ||
			strings.Contains(lower, "sum(") ||
			strings.Contains(lower, "avg(")) {
		return workload.ClassOLAP
	}

	if strings.Contains(lower, "cross join") ||
		strings.Contains(lower, "like '%") ||
		strings.Contains(lower, "year(") {
		return workload.ClassProblematic
	}

	return workload.ClassOLTP
}
