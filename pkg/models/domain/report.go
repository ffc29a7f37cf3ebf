package domain

// ReportValues is the final name -> value map handed to the template
// renderer. Values hold scalars for single placeholders or []Row for
// repeating sections; a missing value is nil, never an error.
//
// Degraded is set whenever a query failed or a variable fell back to its
// configured default, so downstream consumers can tell "zero because there
// is no data" apart from "zero because something went wrong".
type ReportValues struct {
	Values        map[string]any
	Degraded      bool
	FailedQueries []string
	Warnings      []string
}

func NewReportValues() ReportValues {
	return ReportValues{Values: map[string]any{}}
}

// MarkQueryFailed records a failed query and flips the degraded flag.
func (rv *ReportValues) MarkQueryFailed(name string) {
	rv.Degraded = true
	rv.FailedQueries = append(rv.FailedQueries, name)
}

// Warn records a per-variable recovery and flips the degraded flag.
func (rv *ReportValues) Warn(msg string) {
	rv.Degraded = true
	rv.Warnings = append(rv.Warnings, msg)
}
