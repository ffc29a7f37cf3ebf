package expr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_Arithmetic(t *testing.T) {
	cases := []struct {
		name string
		expr string
		want float64
	}{
		{"addition", "1 + 2", 3},
		{"precedence", "2 + 3 * 4", 14},
		{"parens", "(2 + 3) * 4", 20},
		{"division", "10 / 4", 2.5},
		{"power", "2 ^ 10", 1024},
		{"power right assoc", "2 ^ 3 ^ 2", 512},
		{"unary minus", "-3 + 5", 2},
		{"division by zero", "5 / 0", 0},
		{"division by blank var", "5 / {nothing}", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.expr, Scope{}))
		})
	}
}

func TestEvaluate_Variables(t *testing.T) {
	scope := Scope{"x": 5, "rate": "2.5", "label": "Estate"}

	assert.Equal(t, float64(10), Evaluate("{x}*2", scope))
	assert.Equal(t, float64(12.5), Evaluate("{x} * {rate}", scope))
	assert.Equal(t, "Estate Report", Evaluate(`{label} & " Report"`, scope))

	// Missing names degrade to zero in arithmetic and "" in strings.
	assert.Equal(t, float64(5), Evaluate("{x} + {missing}", scope))
	assert.Equal(t, "Estate", Evaluate("{label} & {missing}", scope))
}

func TestEvaluate_DottedLookup(t *testing.T) {
	scope := Scope{"summary": map[string]any{"total_records": 7}}
	assert.Equal(t, float64(14), Evaluate("{summary.total_records} * 2", scope))
}

func TestEvaluate_Concat(t *testing.T) {
	assert.Equal(t, "Report 3", Evaluate(`"Report " & 1 + 2`, Scope{}))
	assert.Equal(t, "ab", Evaluate(`"a" & "b"`, Scope{}))
}

func TestEvaluate_If(t *testing.T) {
	t.Run("isblank selects first branch on empty", func(t *testing.T) {
		got := Evaluate(`IF(ISBLANK(start_date),"A","B")`, Scope{"start_date": ""})
		assert.Equal(t, "A", got)
	})

	t.Run("isblank selects second branch on value", func(t *testing.T) {
		got := Evaluate(`IF(ISBLANK(start_date),"A","B")`, Scope{"start_date": "2024-09-01"})
		assert.Equal(t, "B", got)
	})

	t.Run("missing name is blank", func(t *testing.T) {
		got := Evaluate(`IF(ISBLANK(start_date),"A","B")`, Scope{})
		assert.Equal(t, "A", got)
	})

	t.Run("only the selected branch evaluates", func(t *testing.T) {
		// The rejected branch divides by zero; the sentinel must not leak
		// into the selected one.
		got := Evaluate(`IF(1 < 2, 42, 1/0)`, Scope{})
		assert.Equal(t, float64(42), got)
	})

	t.Run("comparison condition", func(t *testing.T) {
		scope := Scope{"total": 15}
		assert.Equal(t, "high", Evaluate(`IF({total} >= 10, "high", "low")`, scope))
	})
}

func TestEvaluate_DateFunctions(t *testing.T) {
	restore := now
	now = func() time.Time { return time.Date(2024, 9, 15, 10, 0, 0, 0, time.UTC) }
	defer func() { now = restore }()

	assert.Equal(t, float64(9), Evaluate("MONTH(TODAY())", Scope{}))
	assert.Equal(t, float64(2024), Evaluate("YEAR(TODAY())", Scope{}))
	assert.Equal(t, "2024-09-15", Evaluate("TODAY()", Scope{}))

	scope := Scope{"start_date": "2023-04-01"}
	assert.Equal(t, float64(4), Evaluate("MONTH({start_date})", scope))
	assert.Equal(t, float64(2023), Evaluate("YEAR(start_date)", scope))

	// Unparseable dates resolve to the sentinel.
	assert.Equal(t, float64(0), Evaluate("MONTH({start_date})", Scope{"start_date": "soon"}))
}

func TestEvaluate_Malformed(t *testing.T) {
	for _, src := range []string{
		"",
		"1 +",
		"IF(1,2)",
		`"unterminated`,
		"{unclosed",
		"os.exit(1)",
		"__import__('os')",
		"1 ? 2",
	} {
		t.Run(src, func(t *testing.T) {
			assert.Equal(t, float64(0), Evaluate(src, Scope{}))
		})
	}
}

func TestEvaluate_TypeMismatchedComparison(t *testing.T) {
	scope := Scope{"name": "Budi"}
	assert.Equal(t, float64(0), Evaluate(`IF({name} > 3, 1, 0)`, scope))
	assert.Equal(t, float64(1), Evaluate(`IF({name} = "Budi", 1, 0)`, scope))
}

func TestEvaluateCondition(t *testing.T) {
	assert.True(t, EvaluateCondition("1 < 2", Scope{}))
	assert.False(t, EvaluateCondition("1 > 2", Scope{}))
	assert.True(t, EvaluateCondition("ISBLANK(gone)", Scope{}))
	assert.False(t, EvaluateCondition("garbage(", Scope{}))
}
