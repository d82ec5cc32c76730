package generator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lab271/dmvoor/pkg/dmv"
	"github.com/lab271/dmvoor/pkg/sampler"
)

// Message templates lifted from real SQL Server error logs. The `<c/>`
// marker stands in for commas so the exported rows stay parseable.
var (
	policyViolationMessages = []string{
		"Policy 'COMPANY SQL - Windows Authentication' has been violated.",
		"Policy 'COMPANY SQL - SQL login moet policy checked zijn' has been violated.",
		"Policy 'COMPANY SQL - Password Policy' has been violated.",
		"Policy 'COMPANY SQL - Password Expiration' has been violated.",
	}

	errorMessages = []string{
		"Error: 34052<c/> Severity: 16<c/> State: 1.",
		"Error: 18456<c/> Severity: 14<c/> State: 8.",
		"Error: 1205<c/> Severity: 13<c/> State: 51.",
		"Error: 825<c/> Severity: 10<c/> State: 2.",
		"Error: 17806<c/> Severity: 20<c/> State: 2.",
	}

	certificateMessage = "Certificaatscript Module dbatools geinstalleerd Module SqlServer geinstalleerd " +
		"Nieuwste certificaat 57D1CA509DBDB45D6CF80485440 4A2801F7F6919<c/> " +
		"Huidige certificaat 57D1CA509DBDB45D6CF804854404A2801F7F6919 Gelijk<c/> " +
		"certificaat niet instellen verloopt: 10/06/2026 08:00:52"

	informationalMessages = []string{
		"SQL Server is starting at normal priority base (=7). This is an informational message only. No user action is required.",
		"Database backed up. Database: {db_name}, creation date(time): {date}, pages dumped: {pages}, first LSN: {lsn1}, last LSN: {lsn2}.",
		"Recovery is complete. This is an informational message only. No user action is required.",
		"Clearing tempdb database.",
		"The Service Broker endpoint is in disabled or stopped state.",
	}

	warningMessages = []string{
		"The SQL Server cannot obtain a LOCK resource at this time. Rerun your statement when there are fewer active users.",
		"Autogrow of file '{file}' in database '{db}' was cancelled by user or timed out after {ms} milliseconds.",
		"SQL Server has encountered {count} occurrence(s) of I/O requests taking longer than 15 seconds to complete.",
	}
)

// errorLogSynthesizer produces instance log entries over a time window.
// It runs on its own sampler so the entries do not depend on how far the
// telemetry pipeline has advanced.
type errorLogSynthesizer struct {
	sampler *sampler.Sampler
	start   time.Time
	end     time.Time
}

func newErrorLogSynthesizer(s *sampler.Sampler, start, end time.Time) *errorLogSynthesizer {
	return &errorLogSynthesizer{
		sampler: s,
		start:   start,
		end:     end,
	}
}

// generate builds the full entry set for the window, newest first.
func (g *errorLogSynthesizer) generate() []dmv.ErrorLogEntry {
	entries := []dmv.ErrorLogEntry{g.startupEntry()}

	entries = append(entries, g.policyCheckEntries()...)
	entries = append(entries, g.certificateCheckEntries()...)
	entries = append(entries, g.informationalEntries()...)
	entries = append(entries, g.errorEntries()...)
	entries = append(entries, g.warningEntries()...)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})

	return entries
}

// startupEntry reports the instance process ID shortly after the window
// opens, the way SQL Server logs it on boot.
func (g *errorLogSynthesizer) startupEntry() dmv.ErrorLogEntry {
	pid := g.sampler.IntBetween(10000, 99999)
	stamp := g.start.Format("1-2-2006 15:04:05")

	return dmv.ErrorLogEntry{
		Date:     g.start.Add(23 * time.Second),
		Source:   "spid32s",
		Severity: "Unknown",
		Message: fmt.Sprintf(
			"This instance of SQL Server has been using a process ID of %d since %s (local) %s (UTC). "+
				"This is an informational message only; no user action is required.",
			pid, stamp, stamp,
		),
	}
}

// policyCheckEntries emits a violation plus its error 34052 companion
// every 30 minutes, cycling through the policy set.
func (g *errorLogSynthesizer) policyCheckEntries() []dmv.ErrorLogEntry {
	var entries []dmv.ErrorLogEntry

	policyIndex := 0

	for current := g.start; current.Before(g.end); current = current.Add(30 * time.Minute) {
		message := policyViolationMessages[policyIndex%len(policyViolationMessages)]
		policyIndex++

		source := fmt.Sprintf("spid%d", g.sampler.IntBetween(50, 130))

		entries = append(entries,
			dmv.ErrorLogEntry{Date: current, Source: source, Severity: "Unknown", Message: message},
			dmv.ErrorLogEntry{Date: current, Source: source, Severity: "Unknown", Message: errorMessages[0]},
		)
	}

	return entries
}

// certificateCheckEntries emits the hourly certificate job output,
// offset half an hour from the policy checks.
func (g *errorLogSynthesizer) certificateCheckEntries() []dmv.ErrorLogEntry {
	var entries []dmv.ErrorLogEntry

	for current := g.start.Add(30*time.Minute + 37*time.Second); current.Before(g.end); current = current.Add(time.Hour) {
		entries = append(entries, dmv.ErrorLogEntry{
			Date:     current,
			Source:   fmt.Sprintf("spid%d", g.sampler.IntBetween(50, 130)),
			Severity: "Unknown",
			Message:  certificateMessage,
		})
	}

	return entries
}

// informationalEntries scatters roughly one routine message per day.
func (g *errorLogSynthesizer) informationalEntries() []dmv.ErrorLogEntry {
	count := int(g.end.Sub(g.start).Hours() / 24)
	entries := make([]dmv.ErrorLogEntry, 0, count)

	for i := 0; i < count; i++ {
		template := informationalMessages[g.sampler.IntBetween(0, len(informationalMessages)-1)]

		entries = append(entries, dmv.ErrorLogEntry{
			Date:     g.randomTimestamp(),
			Source:   fmt.Sprintf("spid%d", g.sampler.IntBetween(50, 130)),
			Severity: "Unknown",
			Message:  g.fill(template),
		})
	}

	return entries
}

// errorEntries scatters two to five error messages per day, skipping the
// policy error already covered by the half-hourly checks.
func (g *errorLogSynthesizer) errorEntries() []dmv.ErrorLogEntry {
	days := g.end.Sub(g.start).Hours() / 24
	count := int(days * g.sampler.Uniform(2, 5))
	entries := make([]dmv.ErrorLogEntry, 0, count)

	for i := 0; i < count; i++ {
		message := errorMessages[g.sampler.IntBetween(1, len(errorMessages)-1)]

		entries = append(entries, dmv.ErrorLogEntry{
			Date:     g.randomTimestamp(),
			Source:   fmt.Sprintf("spid%d", g.sampler.IntBetween(50, 200)),
			Severity: "Unknown",
			Message:  message,
		})
	}

	return entries
}

// warningEntries scatters one to three warnings per day.
func (g *errorLogSynthesizer) warningEntries() []dmv.ErrorLogEntry {
	days := g.end.Sub(g.start).Hours() / 24
	count := int(days * g.sampler.Uniform(1, 3))
	entries := make([]dmv.ErrorLogEntry, 0, count)

	for i := 0; i < count; i++ {
		template := warningMessages[g.sampler.IntBetween(0, len(warningMessages)-1)]

		entries = append(entries, dmv.ErrorLogEntry{
			Date:     g.randomTimestamp(),
			Source:   fmt.Sprintf("spid%d", g.sampler.IntBetween(50, 200)),
			Severity: "Unknown",
			Message:  g.fill(template),
		})
	}

	return entries
}

func (g *errorLogSynthesizer) randomTimestamp() time.Time {
	offset := g.sampler.IntBetween(0, int(g.end.Sub(g.start).Seconds()))

	return g.start.Add(time.Duration(offset) * time.Second)
}

// fill substitutes every placeholder a template may carry. Values are
// drawn in a fixed order so equal seeds yield equal logs.
func (g *errorLogSynthesizer) fill(template string) string {
	lsn := func() string {
		return fmt.Sprintf("%d:%d:%d",
			g.sampler.IntBetween(1000, 9999),
			g.sampler.IntBetween(100, 999),
			g.sampler.IntBetween(1, 99))
	}

	replacer := strings.NewReplacer(
		"{db_name}", g.pick("master", "tempdb", "msdb", "AdventureWorks", "Production"),
		"{date}", g.start.Format("2006-01-02 15:04:05"),
		"{date_utc}", g.start.Format("2006-01-02 15:04:05"),
		"{pages}", fmt.Sprintf("%d", g.sampler.IntBetween(1000, 100000)),
		"{lsn1}", lsn(),
		"{lsn2}", lsn(),
		"{file}", g.pick("tempdb", "AdventureWorks_log", "Production_data"),
		"{db}", g.pick("tempdb", "AdventureWorks", "Production"),
		"{ms}", fmt.Sprintf("%d", g.sampler.IntBetween(30000, 120000)),
		"{count}", fmt.Sprintf("%d", g.sampler.IntBetween(1, 10)),
	)

	return replacer.Replace(template)
}

func (g *errorLogSynthesizer) pick(options ...string) string {
	return options[g.sampler.IntBetween(0, len(options)-1)]
}
