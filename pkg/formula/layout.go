package formula

import "strings"

const defaultDateLayout = "2006-01-02"

// datePatterns maps spreadsheet-style date tokens to Go reference layout
// fragments. Longer tokens first so "MMMM" never decays into two "MM"s.
var datePatterns = [][2]string{
	{"dddd", "Monday"},
	{"MMMM", "January"},
	{"yyyy", "2006"},
	{"MMM", "Jan"},
	{"ddd", "Mon"},
	{"dd", "02"},
	{"MM", "01"},
	{"yy", "06"},
	{"HH", "15"},
	{"mm", "04"},
	{"ss", "05"},
}

// goLayout converts a spreadsheet-style date pattern ("dd MMMM yyyy") to a
// Go time layout. Patterns already in Go reference form pass through.
func goLayout(pattern string) string {
	if pattern == "" {
		return defaultDateLayout
	}
	if strings.Contains(pattern, "2006") {
		return pattern
	}
	out := pattern
	for _, p := range datePatterns {
		out = strings.ReplaceAll(out, p[0], p[1])
	}
	return out
}
