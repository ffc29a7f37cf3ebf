package domain

// Row maps a column header to the cell value extracted for it. A cell that
// was missing or truncated in the source text is stored as nil.
type Row map[string]any

// Relation is a structured table recovered from the column-aligned text
// output of the external SQL client. Immutable once produced.
type Relation struct {
	Headers  []string
	Rows     []Row
	RowCount int
}

// ColumnSpan is a half-open [Start, End) character range inside a separator
// line marking one column's horizontal extent.
type ColumnSpan struct {
	Start int
	End   int
}

// EmptyRelation is what the extractor degrades to when the input contains no
// recognizable table.
func EmptyRelation() Relation {
	return Relation{Headers: []string{}, Rows: []Row{}}
}
