package excel

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/estate-tools/reportpipe/pkg/models/domain"
	"github.com/estate-tools/reportpipe/pkg/services/report"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

const warningsSheet = "Warnings"

// Renderer fills an Excel template with resolved report values: {name}
// placeholders are substituted on every sheet and repeating sections are
// expanded one row per record.
type Renderer struct {
	fs    afero.Fs
	clock func() time.Time
	token func() string
}

type Option func(*Renderer)

// WithFs swaps the filesystem used for reading templates and writing output.
func WithFs(fs afero.Fs) Option {
	return func(r *Renderer) { r.fs = fs }
}

// WithClock overrides the timestamp source of output file names.
func WithClock(clock func() time.Time) Option {
	return func(r *Renderer) { r.clock = clock }
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		fs:    afero.NewOsFs(),
		clock: time.Now,
		token: func() string { return uuid.NewString()[:8] },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes one filled workbook and returns its path. Concurrent runs of
// the same report never collide: each output name carries a timestamp plus a
// random token.
func (r *Renderer) Render(ctx context.Context, res *report.Result) (string, error) {
	logger := zerolog.Ctx(ctx)
	out := res.Spec.Output

	raw, err := afero.ReadFile(r.fs, out.Template)
	if err != nil {
		return "", fmt.Errorf("failed to read template %q: %w", out.Template, err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to open template %q: %w", out.Template, err)
	}
	defer func() { _ = f.Close() }()

	for name, section := range res.Spec.RepeatingSections {
		if err := expandSection(f, section, res.Values.Values[section.DataSource]); err != nil {
			return "", fmt.Errorf("failed to expand section %q: %w", name, err)
		}
	}

	if err := substitutePlaceholders(f, res.Values.Values); err != nil {
		return "", err
	}

	if res.Values.Degraded {
		if err := writeWarnings(f, res.Values); err != nil {
			return "", err
		}
	}

	path := r.outputPath(out, res.Spec.Name)
	if err := r.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return "", fmt.Errorf("failed to serialize workbook: %w", err)
	}
	if err := afero.WriteFile(r.fs, path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	logger.Info().Str("report", res.Spec.Name).Str("path", path).Bool("degraded", res.Values.Degraded).
		Msg("report rendered")
	return path, nil
}

func (r *Renderer) outputPath(out domain.OutputSettings, reportName string) string {
	base := out.BaseName
	if base == "" {
		base = reportName
	}
	name := fmt.Sprintf("%s_%s_%s.xlsx", base, r.clock().Format("20060102_150405"), r.token())
	return filepath.Join(out.Directory, name)
}

// substitutePlaceholders rewrites every cell containing {name} markers. A
// cell holding exactly one marker takes the value's native type so numbers
// stay numbers in the workbook; mixed cells are filled as text. Markers with
// no matching value are left untouched.
func substitutePlaceholders(f *excelize.File, values map[string]any) error {
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		for rowIdx, row := range rows {
			for colIdx, cell := range row {
				if !strings.Contains(cell, "{") {
					continue
				}
				replaced, value, bare := fillCell(cell, values)
				if replaced == "" {
					continue
				}
				addr, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
				if err != nil {
					return err
				}
				if bare {
					err = f.SetCellValue(sheet, addr, value)
				} else {
					err = f.SetCellValue(sheet, addr, replaced)
				}
				if err != nil {
					return fmt.Errorf("failed to fill cell %s!%s: %w", sheet, addr, err)
				}
			}
		}
	}
	return nil
}

// fillCell substitutes all known markers in one cell. When the cell is a
// single bare marker the original value is returned so the caller can keep
// its type.
func fillCell(cell string, values map[string]any) (string, any, bool) {
	trimmed := strings.TrimSpace(cell)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") &&
		strings.Count(trimmed, "{") == 1 {
		name := trimmed[1 : len(trimmed)-1]
		if v, ok := values[name]; ok {
			return trimmed, v, true
		}
		return "", nil, false
	}

	out := cell
	changed := false
	for name, v := range values {
		marker := "{" + name + "}"
		if strings.Contains(out, marker) {
			out = strings.ReplaceAll(out, marker, fmt.Sprintf("%v", v))
			changed = true
		}
	}
	if !changed {
		return "", nil, false
	}
	return out, nil, false
}

// expandSection writes one row per record starting at the section's start
// row, shifting the rows below so existing content survives.
func expandSection(f *excelize.File, section domain.RepeatingSection, data any) error {
	rows := sectionRows(data)
	if len(rows) == 0 {
		return nil
	}
	if len(rows) > 1 {
		if err := f.InsertRows(section.Sheet, section.StartRow+1, len(rows)-1); err != nil {
			return fmt.Errorf("failed to insert rows on sheet %q: %w", section.Sheet, err)
		}
	}
	for i, row := range rows {
		for col, field := range section.Columns {
			value, ok := row[field]
			if !ok {
				continue
			}
			addr := fmt.Sprintf("%s%d", col, section.StartRow+i)
			if err := f.SetCellValue(section.Sheet, addr, value); err != nil {
				return fmt.Errorf("failed to set cell %s!%s: %w", section.Sheet, addr, err)
			}
		}
	}
	return nil
}

func sectionRows(data any) []domain.Row {
	switch t := data.(type) {
	case []domain.Row:
		return t
	case []any:
		rows := make([]domain.Row, 0, len(t))
		for _, item := range t {
			switch row := item.(type) {
			case domain.Row:
				rows = append(rows, row)
			case map[string]any:
				rows = append(rows, row)
			}
		}
		return rows
	default:
		return nil
	}
}

func writeWarnings(f *excelize.File, values domain.ReportValues) error {
	if _, err := f.NewSheet(warningsSheet); err != nil {
		return fmt.Errorf("failed to add warnings sheet: %w", err)
	}
	lines := []string{"This report was generated with incomplete data."}
	for _, q := range values.FailedQueries {
		lines = append(lines, "query failed: "+q)
	}
	lines = append(lines, values.Warnings...)

	for i, line := range lines {
		addr := fmt.Sprintf("A%d", i+1)
		if err := f.SetCellValue(warningsSheet, addr, line); err != nil {
			return fmt.Errorf("failed to write warning: %w", err)
		}
	}
	return nil
}
