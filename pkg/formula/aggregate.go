package formula

import (
	"strconv"
	"strings"

	"github.com/estate-tools/reportpipe/pkg/models/domain"
)

// aggregate folds the numeric values of one field over a relation's rows.
// Cells that do not parse as numbers are skipped, matching the permissive
// report semantics.
func aggregate(kind, field string, rows []domain.Row) float64 {
	var values []float64
	for _, row := range rows {
		v, ok := row[field]
		if !ok || v == nil {
			continue
		}
		if n, ok := cellNumber(v); ok {
			values = append(values, n)
		}
	}

	switch strings.ToLower(kind) {
	case "count":
		return float64(len(values))
	case "sum", "":
		return sum(values)
	case "avg", "average":
		if len(values) == 0 {
			return 0
		}
		return sum(values) / float64(len(values))
	case "max":
		return fold(values, func(a, b float64) bool { return b > a })
	case "min":
		return fold(values, func(a, b float64) bool { return b < a })
	default:
		return 0
	}
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func fold(values []float64, better func(a, b float64) bool) float64 {
	if len(values) == 0 {
		return 0
	}
	best := values[0]
	for _, v := range values[1:] {
		if better(best, v) {
			best = v
		}
	}
	return best
}

func cellNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
