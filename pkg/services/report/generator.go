package report

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/estate-tools/reportpipe/pkg/models/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultQueryLimit = 4

// QueryRunner executes one SQL statement template and returns the extracted
// result relations.
type QueryRunner interface {
	Execute(ctx context.Context, sqlText string, params map[string]any) ([]domain.Relation, error)
}

// VariableResolver turns variable definitions plus query results into a flat
// value set.
type VariableResolver interface {
	Resolve(
		ctx context.Context,
		defs map[string]domain.VariableDefinition,
		queryResults map[string][]domain.Relation,
		params map[string]any,
	) (domain.ReportValues, error)
}

// Result is one finished generation run: the resolved values plus the raw
// query results the renderer may still need for repeating sections.
type Result struct {
	Spec         *domain.ReportSpec
	Values       domain.ReportValues
	QueryResults map[string][]domain.Relation
}

// Generator runs all queries of a spec and resolves its variables. A failed
// query degrades the run instead of aborting it: the query contributes an
// empty relation and every value derived from it falls back to its default.
type Generator struct {
	runner     QueryRunner
	resolver   VariableResolver
	queryLimit int
}

type GeneratorOption func(*Generator)

// WithQueryLimit caps how many queries run against the client concurrently.
func WithQueryLimit(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.queryLimit = n
		}
	}
}

func NewGenerator(runner QueryRunner, resolver VariableResolver, opts ...GeneratorOption) *Generator {
	g := &Generator{
		runner:     runner,
		resolver:   resolver,
		queryLimit: defaultQueryLimit,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Generate(ctx context.Context, spec *domain.ReportSpec, params map[string]any) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	queryResults, failed := g.runQueries(ctx, spec, params)

	values, err := g.resolver.Resolve(ctx, spec.Variables, queryResults, params)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve variables for report %q: %w", spec.Name, err)
	}
	for _, name := range failed {
		values.MarkQueryFailed(name)
	}

	logger.Info().
		Str("report", spec.Name).
		Int("queries", len(spec.Queries)).
		Int("failed_queries", len(failed)).
		Bool("degraded", values.Degraded).
		Msg("report values resolved")

	return &Result{Spec: spec, Values: values, QueryResults: queryResults}, nil
}

func (g *Generator) runQueries(
	ctx context.Context,
	spec *domain.ReportSpec,
	params map[string]any,
) (map[string][]domain.Relation, []string) {
	logger := zerolog.Ctx(ctx)

	var (
		mu      sync.Mutex
		results = make(map[string][]domain.Relation, len(spec.Queries))
		failed  []string
	)

	// Query failures are absorbed per-query, so the group carries no error
	// and one bad query never cancels its siblings.
	grp := errgroup.Group{}
	grp.SetLimit(g.queryLimit)

	for name, def := range spec.Queries {
		grp.Go(func() error {
			start := time.Now()
			rels, err := g.runner.Execute(ctx, def.SQL, queryParams(def, params))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn().Err(err).Str("query", name).Msg("query failed, continuing degraded")
				results[name] = []domain.Relation{domain.EmptyRelation()}
				failed = append(failed, name)
				return nil
			}

			logger.Debug().
				Str("query", name).
				Int("result_sets", len(rels)).
				Dur("elapsed", time.Since(start)).
				Msg("query finished")
			results[name] = rels
			return nil
		})
	}
	_ = grp.Wait()

	sort.Strings(failed)
	return results, failed
}

// queryParams narrows the run parameters to the ones a query declares. A
// query with no declared parameters sees them all.
func queryParams(def domain.QueryDefinition, params map[string]any) map[string]any {
	if len(def.Parameters) == 0 {
		return params
	}
	out := make(map[string]any, len(def.Parameters))
	for _, name := range def.Parameters {
		if v, ok := params[name]; ok {
			out[name] = v
		}
	}
	return out
}
