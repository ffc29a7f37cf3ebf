package formula

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/estate-tools/reportpipe/pkg/formula/expr"
	"github.com/estate-tools/reportpipe/pkg/models/domain"
	"github.com/rs/zerolog"
)

// Resolver turns a map of declarative variable definitions into the final
// name -> value map for the template renderer. Variables are evaluated in
// dependency order, so a calculation may reference any other variable no
// matter where it is declared.
type Resolver struct {
	clock func() time.Time
}

type Option func(*Resolver)

// WithClock pins the resolver's notion of now. Used by dynamic variables
// and by tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Resolver) { r.clock = clock }
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve evaluates every definition against the collected query results and
// request parameters. A failing variable is logged, recorded as a warning
// and replaced by its default; only a reference cycle aborts the whole
// resolution.
func (r *Resolver) Resolve(
	ctx context.Context,
	defs map[string]domain.VariableDefinition,
	queryResults map[string][]domain.Relation,
	params map[string]any,
) (domain.ReportValues, error) {
	logger := zerolog.Ctx(ctx)
	values := domain.NewReportValues()

	order, err := evaluationOrder(defs)
	if err != nil {
		return values, err
	}

	for _, name := range order {
		def := defs[name]
		v, warn := r.resolveOne(def, queryResults, params, values.Values)
		if warn != "" {
			logger.Warn().Str("variable", name).Msg(warn)
			values.Warn(fmt.Sprintf("%s: %s", name, warn))
			v = def.Default
		}
		values.Values[name] = v
		logger.Debug().Str("variable", name).Interface("value", v).Msg("variable resolved")
	}
	return values, nil
}

// evaluationOrder runs Kahn's algorithm over the reference edges between
// variable definitions. Ties break alphabetically so resolution order, and
// with it the output, is deterministic.
func evaluationOrder(defs map[string]domain.VariableDefinition) ([]string, error) {
	deps := make(map[string][]string, len(defs))
	indegree := make(map[string]int, len(defs))
	dependents := make(map[string][]string, len(defs))

	for name, def := range defs {
		indegree[name] = 0
		for _, ref := range references(def) {
			if _, defined := defs[ref]; defined && ref != name {
				deps[name] = append(deps[name], ref)
			}
		}
	}
	for name, refs := range deps {
		indegree[name] = len(refs)
		for _, ref := range refs {
			dependents[ref] = append(dependents[ref], name)
		}
	}

	var ready []string
	for name, n := range indegree {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(defs))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		var unlocked []string
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				unlocked = append(unlocked, dep)
			}
		}
		sort.Strings(unlocked)
		ready = append(ready, unlocked...)
	}

	if len(order) != len(defs) {
		var cycle []string
		for name, n := range indegree {
			if n > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Strings(cycle)
		return nil, &CircularVariableError{Names: cycle}
	}
	return order, nil
}

// references lists the variable names a definition depends on.
func references(def domain.VariableDefinition) []string {
	var refs []string
	if def.Formula != "" {
		refs = append(refs, expr.Names(def.Formula)...)
	}
	for _, cond := range def.Conditions {
		refs = append(refs, expr.Names(cond.Condition)...)
	}
	return refs
}

// resolveOne evaluates a single definition. The second return value is a
// warning message when the variable had to fall back to its default.
func (r *Resolver) resolveOne(
	def domain.VariableDefinition,
	queryResults map[string][]domain.Relation,
	params map[string]any,
	resolved map[string]any,
) (any, string) {
	switch def.Type {
	case domain.VarConstant:
		return def.Value, ""

	case domain.VarDynamic:
		return r.clock().Format(goLayout(def.Format)), ""

	case domain.VarTemplate:
		return fillTemplate(def.Template, params), ""

	case domain.VarQuery:
		return queryValue(def, queryResults)

	case domain.VarAggregation:
		rel, ok := firstRelation(queryResults, def.Query)
		if !ok {
			return nil, fmt.Sprintf("query %q has no result", def.Query)
		}
		return aggregate(def.Aggregation, def.Field, rel.Rows), ""

	case domain.VarCalculation:
		return expr.Evaluate(def.Formula, scopeOf(params, resolved)), ""

	case domain.VarConditional:
		scope := scopeOf(params, resolved)
		for _, cond := range def.Conditions {
			if expr.EvaluateCondition(cond.Condition, scope) {
				return cond.Value, ""
			}
		}
		return def.Default, ""

	default:
		return nil, fmt.Sprintf("unknown variable type %q", def.Type)
	}
}

func scopeOf(params map[string]any, resolved map[string]any) expr.Scope {
	scope := make(expr.Scope, len(params)+len(resolved))
	for k, v := range params {
		scope[k] = v
	}
	for k, v := range resolved {
		scope[k] = v
	}
	return scope
}

// fillTemplate substitutes {name} slots from the request parameters.
// Unknown slots become empty rather than leaking braces into the report.
func fillTemplate(template string, params map[string]any) string {
	out := template
	for k, v := range params {
		out = strings.ReplaceAll(out, "{"+k+"}", stringify(v))
	}
	for {
		start := strings.IndexByte(out, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(out[start:], '}')
		if end < 0 {
			break
		}
		out = out[:start] + out[start+end+1:]
	}
	return out
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if t, ok := v.(time.Time); ok {
		return t.Format(defaultDateLayout)
	}
	return fmt.Sprintf("%v", v)
}

func firstRelation(queryResults map[string][]domain.Relation, query string) (domain.Relation, bool) {
	rels, ok := queryResults[query]
	if !ok || len(rels) == 0 {
		return domain.Relation{}, false
	}
	return rels[0], true
}

// queryValue extracts a variable from a query's first relation: one scalar
// when extract_single is set, the field's column otherwise, or the raw row
// list when no field is named (feeding repeating sections).
func queryValue(def domain.VariableDefinition, queryResults map[string][]domain.Relation) (any, string) {
	rel, ok := firstRelation(queryResults, def.Query)
	if !ok {
		return nil, fmt.Sprintf("query %q has no result", def.Query)
	}

	if def.Field == "" {
		rows := make([]domain.Row, len(rel.Rows))
		copy(rows, rel.Rows)
		return rows, ""
	}

	if def.ExtractSingle {
		if len(rel.Rows) == 0 {
			return nil, fmt.Sprintf("query %q returned no rows", def.Query)
		}
		v, ok := fieldValue(rel.Rows[0], def.Field)
		if !ok {
			return nil, fmt.Sprintf("field %q not present in query %q", def.Field, def.Query)
		}
		return v, ""
	}

	values := make([]any, 0, len(rel.Rows))
	for _, row := range rel.Rows {
		if v, ok := fieldValue(row, def.Field); ok {
			values = append(values, v)
		}
	}
	return values, ""
}

// fieldValue reads a row field, following dotted paths into nested maps.
func fieldValue(row domain.Row, field string) (any, bool) {
	head, rest, dotted := strings.Cut(field, ".")
	v, ok := row[head]
	if !ok {
		return nil, false
	}
	if !dotted {
		return v, true
	}
	for rest != "" {
		m, ok := v.(map[string]any)
		if !ok {
			if r, isRow := v.(domain.Row); isRow {
				m = r
			} else {
				return nil, false
			}
		}
		head, rest, _ = strings.Cut(rest, ".")
		if v, ok = m[head]; !ok {
			return nil, false
		}
	}
	return v, true
}
