package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/estate-tools/reportpipe/pkg/services/report"
	"github.com/spf13/cobra"
)

type QueriesCmd struct {
	specPath string
}

func NewQueriesCmd() *cobra.Command {
	qc := &QueriesCmd{}
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "List the queries a report spec defines",
		RunE:  qc.run,
	}

	cmd.Flags().StringVar(&qc.specPath, "spec", "", "Path to the report spec file")
	_ = cmd.MarkFlagRequired("spec")

	return cmd
}

func (qc *QueriesCmd) run(cmd *cobra.Command, args []string) error {
	spec, err := report.LoadSpec(qc.specPath)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(spec.Queries))
	for name := range spec.Queries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := cmd.OutOrStdout()
	for _, name := range names {
		q := spec.Queries[name]
		fmt.Fprintf(out, "%s", name)
		if len(q.Parameters) > 0 {
			fmt.Fprintf(out, " (%s)", strings.Join(q.Parameters, ", "))
		}
		if q.Description != "" {
			fmt.Fprintf(out, " - %s", q.Description)
		}
		fmt.Fprintln(out)
	}
	return nil
}
