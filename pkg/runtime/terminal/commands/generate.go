package commands

import (
	"fmt"
	"strings"

	"github.com/estate-tools/reportpipe/pkg/export/excel"
	"github.com/estate-tools/reportpipe/pkg/formula"
	"github.com/estate-tools/reportpipe/pkg/runtime/terminal/export"
	"github.com/estate-tools/reportpipe/pkg/services/report"
	"github.com/estate-tools/reportpipe/pkg/store/isql"
	"github.com/spf13/cobra"
)

type GenerateCmd struct {
	specPath   string
	params     []string
	startDate  string
	endDate    string
	outputDir  string
	queryLimit int
	reporter   *export.Reporter
}

func NewGenerateCmd(reporter *export.Reporter) *cobra.Command {
	gc := &GenerateCmd{reporter: reporter}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run a report spec and render the Excel output",
		RunE:  gc.run,
	}

	cmd.Flags().StringVar(&gc.specPath, "spec", "", "Path to the report spec file")
	cmd.Flags().StringArrayVar(&gc.params, "param", nil, "Report parameter as name=value (repeatable)")
	cmd.Flags().StringVar(&gc.startDate, "start-date", "", "Shorthand for --param start_date=...")
	cmd.Flags().StringVar(&gc.endDate, "end-date", "", "Shorthand for --param end_date=...")
	cmd.Flags().StringVar(&gc.outputDir, "output", "", "Override the output directory of the spec")
	cmd.Flags().IntVar(&gc.queryLimit, "query-limit", 4, "Maximum number of concurrent queries")

	_ = cmd.MarkFlagRequired("spec")

	return cmd
}

func (gc *GenerateCmd) run(cmd *cobra.Command, args []string) error {
	spec, err := report.LoadSpec(gc.specPath)
	if err != nil {
		return err
	}
	params, err := parseParams(gc.params)
	if err != nil {
		return err
	}
	if gc.startDate != "" {
		params["start_date"] = gc.startDate
	}
	if gc.endDate != "" {
		params["end_date"] = gc.endDate
	}
	if gc.outputDir != "" {
		spec.Output.Directory = gc.outputDir
	}

	ctx := cmd.Context()
	client := isql.NewClient(spec.Database)
	gen := report.NewGenerator(client, formula.NewResolver(), report.WithQueryLimit(gc.queryLimit))

	res, err := gen.Generate(ctx, spec, params)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	path, err := excel.NewRenderer().Render(ctx, res)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	return gc.reporter.Handle(res, path)
}

func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected name=value", pair)
		}
		params[name] = value
	}
	return params, nil
}
