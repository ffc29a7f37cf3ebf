package commands

import (
	"fmt"

	"github.com/estate-tools/reportpipe/pkg/services/report"
	"github.com/estate-tools/reportpipe/pkg/store/isql"
	"github.com/spf13/cobra"
)

type PingCmd struct {
	specPath   string
	listTables bool
}

func NewPingCmd() *cobra.Command {
	pc := &PingCmd{}
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Verify the database client can reach the database",
		RunE:  pc.run,
	}

	cmd.Flags().StringVar(&pc.specPath, "spec", "", "Path to the report spec file")
	cmd.Flags().BoolVar(&pc.listTables, "tables", false, "Also list the user tables of the database")
	_ = cmd.MarkFlagRequired("spec")

	return cmd
}

func (pc *PingCmd) run(cmd *cobra.Command, args []string) error {
	spec, err := report.LoadSpec(pc.specPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client := isql.NewClient(spec.Database)
	if err := client.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection check failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database %q is reachable.\n", spec.Database.DatabasePath)

	if pc.listTables {
		tables, err := client.Tables(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tables: %w", err)
		}
		for _, table := range tables {
			fmt.Fprintln(out, table)
		}
	}
	return nil
}
