package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/estate-tools/reportpipe/pkg/formula"
	"github.com/estate-tools/reportpipe/pkg/models/domain"
	"github.com/estate-tools/reportpipe/pkg/store/isql"
	"github.com/spf13/afero"
)

var specExtensions = []string{".yaml", ".yml", ".json", ".toml"}

// ErrSpecNotFound means the catalog directory holds no spec with the
// requested name.
var ErrSpecNotFound = errors.New("report spec not found")

// Renderer turns a finished run into an output artifact and returns its
// path.
type Renderer interface {
	Render(ctx context.Context, res *Result) (string, error)
}

// RunnerFactory builds a query runner for one spec's database settings.
type RunnerFactory func(cfg domain.DatabaseConfig) QueryRunner

// Catalog serves the report specs of one directory: listing, inspection and
// end-to-end generation. Specs are re-read per request so edits on disk take
// effect without a restart.
type Catalog struct {
	dir        string
	fs         afero.Fs
	renderer   Renderer
	newRunner  RunnerFactory
	queryLimit int
}

type CatalogOption func(*Catalog)

func WithCatalogFs(fs afero.Fs) CatalogOption {
	return func(c *Catalog) { c.fs = fs }
}

func WithRunnerFactory(factory RunnerFactory) CatalogOption {
	return func(c *Catalog) { c.newRunner = factory }
}

func WithCatalogQueryLimit(n int) CatalogOption {
	return func(c *Catalog) {
		if n > 0 {
			c.queryLimit = n
		}
	}
}

func NewCatalog(dir string, renderer Renderer, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		dir:        dir,
		fs:         afero.NewOsFs(),
		renderer:   renderer,
		queryLimit: defaultQueryLimit,
	}
	c.newRunner = func(cfg domain.DatabaseConfig) QueryRunner {
		return isql.NewClient(cfg)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListReports returns the names of all specs in the catalog directory,
// sorted.
func (c *Catalog) ListReports(_ context.Context) ([]string, error) {
	entries, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec directory %q: %w", c.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		for _, known := range specExtensions {
			if ext == known {
				names = append(names, strings.TrimSuffix(entry.Name(), ext))
				break
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// Describe loads and validates one named spec.
func (c *Catalog) Describe(_ context.Context, name string) (*domain.ReportSpec, error) {
	path, err := c.specPath(name)
	if err != nil {
		return nil, err
	}
	return LoadSpecFs(c.fs, path)
}

// Generate runs one named spec end to end and returns the result together
// with the rendered output path.
func (c *Catalog) Generate(ctx context.Context, name string, params map[string]any) (*Result, string, error) {
	spec, err := c.Describe(ctx, name)
	if err != nil {
		return nil, "", err
	}

	gen := NewGenerator(c.newRunner(spec.Database), formula.NewResolver(), WithQueryLimit(c.queryLimit))
	res, err := gen.Generate(ctx, spec, params)
	if err != nil {
		return nil, "", err
	}

	path, err := c.renderer.Render(ctx, res)
	if err != nil {
		return nil, "", fmt.Errorf("failed to render report %q: %w", name, err)
	}
	return res, path, nil
}

func (c *Catalog) specPath(name string) (string, error) {
	for _, ext := range specExtensions {
		path := filepath.Join(c.dir, name+ext)
		if ok, _ := afero.Exists(c.fs, path); ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %q in %q", ErrSpecNotFound, name, c.dir)
}
