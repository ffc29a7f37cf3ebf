package extract

import (
	"strings"

	"github.com/estate-tools/reportpipe/pkg/models/domain"
)

// minSeparatorWidth guards against short punctuation ("--", "==") being
// mistaken for a column separator line.
const minSeparatorWidth = 3

var noiseFragments = []string{
	"rows affected",
	"records selected",
	"statement executed",
}

// Relations recovers structured tables from the column-aligned text produced
// by the external SQL client. It never fails: input without any recognizable
// table yields exactly one empty relation.
//
// The scan is a two-state machine. In the seeking state the last non-noise
// line is remembered as a header candidate; the first separator line opens a
// relation whose column spans come from the separator's =/- runs. While
// inside a relation, noise lines are skipped and every other non-blank line
// is sliced into a row. A further separator closes the open relation and
// opens the next one, so a blob may carry several result sets.
func Relations(raw string) []domain.Relation {
	var out []domain.Relation

	var cur *builder
	prevContent := ""

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case isSeparator(trimmed):
			spans := columnSpans(line)
			if cur != nil && len(cur.rows) > 0 {
				// The line right before this separator is the next
				// table's header, not a row of the finished one.
				if n := len(cur.rawRows); n > 0 && cur.rawRows[n-1] == prevContent {
					cur.pop()
				}
				out = append(out, cur.build())
				cur = nil
			}
			if cur == nil {
				cur = newBuilder(prevContent, spans)
			} else {
				// Separator stacked on separator: keep the header,
				// trust the latest span layout.
				cur = newBuilder(cur.headerLine, spans)
			}
		case trimmed == "":
			// Blank lines neither end a relation nor become headers.
		case isNoise(trimmed):
			// Prompt echoes and row-count footers.
		case cur != nil:
			cur.add(line)
			prevContent = line
		default:
			prevContent = line
		}
	}

	if cur != nil {
		out = append(out, cur.build())
	}
	if len(out) == 0 {
		out = append(out, domain.EmptyRelation())
	}
	return out
}

// isSeparator reports whether a trimmed line consists solely of =/- runs and
// the whitespace between them, and is long enough to be a real separator.
func isSeparator(trimmed string) bool {
	if len(trimmed) <= minSeparatorWidth {
		return false
	}
	seen := false
	for _, r := range trimmed {
		switch r {
		case '=', '-':
			seen = true
		case ' ', '\t':
		default:
			return false
		}
	}
	return seen
}

func isNoise(trimmed string) bool {
	if strings.HasPrefix(trimmed, "SQL>") {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, frag := range noiseFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// columnSpans locates the maximal contiguous =/- runs of a separator line.
// Offsets are relative to the untrimmed line so they line up with the header
// and data lines around it.
func columnSpans(line string) []domain.ColumnSpan {
	var spans []domain.ColumnSpan
	start := -1
	for i, r := range line {
		if r == '=' || r == '-' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			spans = append(spans, domain.ColumnSpan{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, domain.ColumnSpan{Start: start, End: len(line)})
	}
	return spans
}

// slice cuts one span out of a line, clamped to the line's length. The
// second return value is false when the span lies entirely past the end.
func slice(line string, span domain.ColumnSpan) (string, bool) {
	if span.Start >= len(line) {
		return "", false
	}
	end := span.End
	if end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[span.Start:end]), true
}

type builder struct {
	headerLine string
	headers    []string
	spans      []domain.ColumnSpan
	rows       []domain.Row
	rawRows    []string
}

func newBuilder(headerLine string, spans []domain.ColumnSpan) *builder {
	headers := make([]string, len(spans))
	for i := range spans {
		headers[i], _ = slice(headerLine, cellSpan(spans, i, headerLine))
	}
	return &builder{headerLine: headerLine, headers: headers, spans: spans}
}

// cellSpan widens the last span to the end of the line: values in the final
// column may overflow the width of the separator run beneath them.
func cellSpan(spans []domain.ColumnSpan, i int, line string) domain.ColumnSpan {
	span := spans[i]
	if i == len(spans)-1 && len(line) > span.End {
		span.End = len(line)
	}
	return span
}

func (b *builder) add(line string) {
	row := make(domain.Row, len(b.headers))
	for i := range b.spans {
		v, ok := slice(line, cellSpan(b.spans, i, line))
		if !ok {
			row[b.headers[i]] = nil
			continue
		}
		row[b.headers[i]] = v
	}
	b.rows = append(b.rows, row)
	b.rawRows = append(b.rawRows, line)
}

func (b *builder) pop() {
	b.rows = b.rows[:len(b.rows)-1]
	b.rawRows = b.rawRows[:len(b.rawRows)-1]
}

func (b *builder) build() domain.Relation {
	rows := b.rows
	if rows == nil {
		rows = []domain.Row{}
	}
	return domain.Relation{Headers: b.headers, Rows: rows, RowCount: len(rows)}
}
