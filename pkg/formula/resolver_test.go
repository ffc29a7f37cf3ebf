package formula

import (
	"context"
	"testing"
	"time"

	"github.com/estate-tools/reportpipe/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClock() time.Time {
	return time.Date(2024, 9, 15, 8, 30, 0, 0, time.UTC)
}

func resolve(
	t *testing.T,
	defs map[string]domain.VariableDefinition,
	queryResults map[string][]domain.Relation,
	params map[string]any,
) domain.ReportValues {
	t.Helper()
	r := NewResolver(WithClock(testClock))
	values, err := r.Resolve(context.Background(), defs, queryResults, params)
	require.NoError(t, err)
	return values
}

func TestResolve_ConstantAndCalculation(t *testing.T) {
	defs := map[string]domain.VariableDefinition{
		"x": {Type: domain.VarConstant, Value: 5},
		"y": {Type: domain.VarCalculation, Formula: "{x}*2"},
	}

	values := resolve(t, defs, nil, nil)
	assert.Equal(t, 5, values.Values["x"])
	assert.Equal(t, float64(10), values.Values["y"])
	assert.False(t, values.Degraded)
}

func TestResolve_ForwardReference(t *testing.T) {
	// "early" is declared before "late" but depends on it; topological
	// ordering must still resolve both correctly.
	defs := map[string]domain.VariableDefinition{
		"early": {Type: domain.VarCalculation, Formula: "{late} + 1"},
		"late":  {Type: domain.VarConstant, Value: 41},
	}

	values := resolve(t, defs, nil, nil)
	assert.Equal(t, float64(42), values.Values["early"])
}

func TestResolve_Cycle(t *testing.T) {
	defs := map[string]domain.VariableDefinition{
		"a": {Type: domain.VarCalculation, Formula: "{b} + 1"},
		"b": {Type: domain.VarCalculation, Formula: "{a} + 1"},
		"c": {Type: domain.VarConstant, Value: 1},
	}

	r := NewResolver()
	_, err := r.Resolve(context.Background(), defs, nil, nil)

	var cycleErr *CircularVariableError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"a", "b"}, cycleErr.Names)
}

func TestResolve_Conditional(t *testing.T) {
	defs := map[string]domain.VariableDefinition{
		"label": {
			Type: domain.VarConditional,
			Conditions: []domain.Condition{
				{Condition: "ISBLANK(start_date)", Value: "A"},
			},
			Default: "B",
		},
	}

	values := resolve(t, defs, nil, map[string]any{"start_date": ""})
	assert.Equal(t, "A", values.Values["label"])

	values = resolve(t, defs, nil, map[string]any{"start_date": "2024-09-01"})
	assert.Equal(t, "B", values.Values["label"])
}

func TestResolve_Aggregation(t *testing.T) {
	queryResults := map[string][]domain.Relation{
		"crop": {{
			Headers: []string{"F"},
			Rows: []domain.Row{
				{"F": "1"},
				{"F": "2"},
				{"F": "3"},
			},
			RowCount: 3,
		}},
	}

	cases := []struct {
		agg  string
		want float64
	}{
		{"sum", 6},
		{"avg", 2},
		{"min", 1},
		{"max", 3},
		{"count", 3},
	}
	for _, tc := range cases {
		t.Run(tc.agg, func(t *testing.T) {
			defs := map[string]domain.VariableDefinition{
				"total": {Type: domain.VarAggregation, Query: "crop", Field: "F", Aggregation: tc.agg},
			}
			values := resolve(t, defs, queryResults, nil)
			assert.Equal(t, tc.want, values.Values["total"])
		})
	}

	t.Run("non-numeric cells are skipped", func(t *testing.T) {
		qr := map[string][]domain.Relation{
			"crop": {{
				Headers:  []string{"F"},
				Rows:     []domain.Row{{"F": "7"}, {"F": "n/a"}, {"F": nil}},
				RowCount: 3,
			}},
		}
		defs := map[string]domain.VariableDefinition{
			"total": {Type: domain.VarAggregation, Query: "crop", Field: "F", Aggregation: "sum"},
		}
		values := resolve(t, defs, qr, nil)
		assert.Equal(t, float64(7), values.Values["total"])
	})
}

func TestResolve_QueryVariable(t *testing.T) {
	queryResults := map[string][]domain.Relation{
		"workers": {{
			Headers: []string{"CODE", "NAME"},
			Rows: []domain.Row{
				{"CODE": "W01", "NAME": "Budi"},
				{"CODE": "W02", "NAME": "Sari"},
			},
			RowCount: 2,
		}},
	}

	t.Run("extract single", func(t *testing.T) {
		defs := map[string]domain.VariableDefinition{
			"first_worker": {Type: domain.VarQuery, Query: "workers", Field: "NAME", ExtractSingle: true},
		}
		values := resolve(t, defs, queryResults, nil)
		assert.Equal(t, "Budi", values.Values["first_worker"])
	})

	t.Run("field column", func(t *testing.T) {
		defs := map[string]domain.VariableDefinition{
			"names": {Type: domain.VarQuery, Query: "workers", Field: "NAME"},
		}
		values := resolve(t, defs, queryResults, nil)
		assert.Equal(t, []any{"Budi", "Sari"}, values.Values["names"])
	})

	t.Run("raw rows when no field", func(t *testing.T) {
		defs := map[string]domain.VariableDefinition{
			"rows": {Type: domain.VarQuery, Query: "workers"},
		}
		values := resolve(t, defs, queryResults, nil)
		rows, ok := values.Values["rows"].([]domain.Row)
		require.True(t, ok)
		assert.Len(t, rows, 2)
	})

	t.Run("missing query falls back to default", func(t *testing.T) {
		defs := map[string]domain.VariableDefinition{
			"gone": {Type: domain.VarQuery, Query: "nope", Field: "X", Default: "n/a"},
		}
		values := resolve(t, defs, queryResults, nil)
		assert.Equal(t, "n/a", values.Values["gone"])
		assert.True(t, values.Degraded)
		require.Len(t, values.Warnings, 1)
		assert.Contains(t, values.Warnings[0], "gone")
	})
}

func TestResolve_DynamicAndTemplate(t *testing.T) {
	defs := map[string]domain.VariableDefinition{
		"printed_at": {Type: domain.VarDynamic, Format: "dd MMMM yyyy"},
		"title":      {Type: domain.VarTemplate, Template: "Harvest Report {estate} - {period}"},
	}
	params := map[string]any{"estate": "EST01", "period": "September"}

	values := resolve(t, defs, nil, params)
	assert.Equal(t, "15 September 2024", values.Values["printed_at"])
	assert.Equal(t, "Harvest Report EST01 - September", values.Values["title"])
}

func TestResolve_TemplateDropsUnknownSlots(t *testing.T) {
	defs := map[string]domain.VariableDefinition{
		"title": {Type: domain.VarTemplate, Template: "Report {estate}{unknown}"},
	}
	values := resolve(t, defs, nil, map[string]any{"estate": "EST01"})
	assert.Equal(t, "Report EST01", values.Values["title"])
}

func TestResolve_UnknownTypeUsesDefault(t *testing.T) {
	defs := map[string]domain.VariableDefinition{
		"odd": {Type: "mystery", Default: 0},
	}
	values := resolve(t, defs, nil, nil)
	assert.Equal(t, 0, values.Values["odd"])
	assert.True(t, values.Degraded)
}

func TestResolve_Deterministic(t *testing.T) {
	defs := map[string]domain.VariableDefinition{
		"x":     {Type: domain.VarConstant, Value: 5},
		"y":     {Type: domain.VarCalculation, Formula: "{x}*2"},
		"z":     {Type: domain.VarCalculation, Formula: "{y}+{x}"},
		"label": {Type: domain.VarTemplate, Template: "{estate}"},
	}
	params := map[string]any{"estate": "EST01"}

	first := resolve(t, defs, nil, params)
	second := resolve(t, defs, nil, params)
	assert.Equal(t, first, second)
}
