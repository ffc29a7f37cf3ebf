package commands

import (
	"fmt"

	"github.com/estate-tools/reportpipe/pkg/services/report"
	"github.com/spf13/cobra"
)

type ValidateCmd struct {
	specPath string
}

func NewValidateCmd() *cobra.Command {
	vc := &ValidateCmd{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a report spec without running it",
		RunE:  vc.run,
	}

	cmd.Flags().StringVar(&vc.specPath, "spec", "", "Path to the report spec file")
	_ = cmd.MarkFlagRequired("spec")

	return cmd
}

func (vc *ValidateCmd) run(cmd *cobra.Command, args []string) error {
	spec, err := report.LoadSpec(vc.specPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Report %q is valid.\n", spec.Name)
	fmt.Fprintf(out, "Queries: %d, variables: %d, repeating sections: %d\n",
		len(spec.Queries), len(spec.Variables), len(spec.RepeatingSections))
	return nil
}
