package expr

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Scope holds the variable and parameter values visible to one evaluation.
type Scope map[string]any

const dateLayout = "2006-01-02"

// now is swapped out in tests.
var now = time.Now

// Evaluate runs a formula against scope. It is deliberately forgiving:
// malformed input, division by zero and type-mismatched comparisons all
// resolve to a neutral sentinel (0 or "") instead of an error, because a
// report with a blank cell beats a report that never renders.
func Evaluate(expression string, scope Scope) any {
	root, ok := parse(expression)
	if !ok {
		return float64(0)
	}
	return normalize(eval(root, scope))
}

// EvaluateCondition runs a formula and reports its truthiness: non-zero
// numbers, non-empty strings and true are truthy.
func EvaluateCondition(expression string, scope Scope) bool {
	root, ok := parse(expression)
	if !ok {
		return false
	}
	return truthy(eval(root, scope))
}

func parseNumber(text string) (node, bool) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, false
	}
	return numberLit(f), true
}

func eval(n node, scope Scope) any {
	switch t := n.(type) {
	case numberLit:
		return float64(t)
	case stringLit:
		return string(t)
	case varRef:
		return lookup(scope, string(t))
	case unary:
		return -toNumber(eval(t.operand, scope))
	case binary:
		return evalBinary(t, scope)
	case call:
		return evalCall(t, scope)
	default:
		return float64(0)
	}
}

func evalBinary(b binary, scope Scope) any {
	switch b.op {
	case "&":
		return toString(eval(b.left, scope)) + toString(eval(b.right, scope))
	case "+":
		return toNumber(eval(b.left, scope)) + toNumber(eval(b.right, scope))
	case "-":
		return toNumber(eval(b.left, scope)) - toNumber(eval(b.right, scope))
	case "*":
		return toNumber(eval(b.left, scope)) * toNumber(eval(b.right, scope))
	case "/":
		den := toNumber(eval(b.right, scope))
		if den == 0 {
			return float64(0)
		}
		return toNumber(eval(b.left, scope)) / den
	case "^":
		return math.Pow(toNumber(eval(b.left, scope)), toNumber(eval(b.right, scope)))
	default:
		return compare(b.op, eval(b.left, scope), eval(b.right, scope))
	}
}

func evalCall(c call, scope Scope) any {
	switch strings.ToUpper(c.name) {
	case "IF":
		if len(c.args) != 3 {
			return float64(0)
		}
		// Only the selected branch is evaluated.
		if truthy(eval(c.args[0], scope)) {
			return eval(c.args[1], scope)
		}
		return eval(c.args[2], scope)
	case "ISBLANK":
		if len(c.args) != 1 {
			return false
		}
		return isBlank(eval(c.args[0], scope))
	case "MONTH":
		if len(c.args) != 1 {
			return float64(0)
		}
		if d, ok := toDate(eval(c.args[0], scope)); ok {
			return float64(d.Month())
		}
		return float64(0)
	case "YEAR":
		if len(c.args) != 1 {
			return float64(0)
		}
		if d, ok := toDate(eval(c.args[0], scope)); ok {
			return float64(d.Year())
		}
		return float64(0)
	case "TODAY":
		return now()
	default:
		return float64(0)
	}
}

func lookup(scope Scope, name string) any {
	if v, ok := scope[name]; ok {
		return v
	}
	// Dotted names drill into a row map from the scope.
	if head, rest, found := strings.Cut(name, "."); found {
		if m, ok := scope[head].(map[string]any); ok {
			if v, ok := m[rest]; ok {
				return v
			}
		}
	}
	return nil
}

func compare(op string, left, right any) any {
	ln, lok := numeric(left)
	rn, rok := numeric(right)
	if lok && rok {
		switch op {
		case "=", "==":
			return ln == rn
		case "!=", "<>":
			return ln != rn
		case "<":
			return ln < rn
		case "<=":
			return ln <= rn
		case ">":
			return ln > rn
		case ">=":
			return ln >= rn
		}
	}
	ls, rs := toString(left), toString(right)
	switch op {
	case "=", "==":
		return ls == rs
	case "!=", "<>":
		return ls != rs
	default:
		// Ordering mixed types is undefined; resolve quietly.
		return false
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return strings.TrimSpace(t) != ""
	case nil:
		return false
	default:
		return toString(v) != ""
	}
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// toNumber coerces v for arithmetic. Missing values count as zero.
func toNumber(v any) float64 {
	n, _ := numeric(v)
	return n
}

func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case nil:
		return 0, true
	default:
		return 0, false
	}
}

// toString coerces v for concatenation. Missing values count as "".
func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(dateLayout)
	case nil:
		return ""
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func toDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{dateLayout, "2006-01-02 15:04:05", "02.01.2006", "02/01/2006"} {
			if d, err := time.Parse(layout, s); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// normalize keeps renderer-facing values to scalars: a bare TODAY() comes
// back as its formatted date string.
func normalize(v any) any {
	if d, ok := v.(time.Time); ok {
		return d.Format(dateLayout)
	}
	return v
}
