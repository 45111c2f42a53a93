package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rackhaus/rackd/internal/inventory/bulkimport"
)

func newImportCmd() *cobra.Command {
	var approve bool
	cmd := &cobra.Command{
		Use:   "import <workbook.xlsx>",
		Short: "Import assets and network connections from a workbook",
		Long: `Import reads the assets and network sheets of the workbook and applies
them. Rows that would modify an existing asset are skipped unless --approve
is given; they are listed in the report either way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx, cleanup, err := requestContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			assets, network, aerr := bulkimport.Parse(f)
			if aerr != nil {
				return aerr
			}
			report, aerr := bulkimport.Apply(ctx, assets, network, approve)
			if aerr != nil {
				return aerr
			}
			printReport(cmd, report)
			if len(report.Errors) > 0 {
				return fmt.Errorf("%d rows failed", len(report.Errors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&approve, "approve", false, "apply rows that modify existing assets")
	return cmd
}

func printReport(cmd *cobra.Command, report *bulkimport.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "batch %s: %d created, %d updated, %d skipped, %d connected\n",
		report.BatchID, report.Created, report.Updated, report.Skipped, report.Connected)
	for _, issue := range report.NeedsApproval {
		fmt.Fprintf(out, "needs --approve: line %d (%s): %s\n", issue.Line, issue.Label, issue.Reason)
	}
	for _, issue := range report.Errors {
		fmt.Fprintf(out, "error: line %d (%s): %s\n", issue.Line, issue.Label, issue.Reason)
	}
}

func newExportCmd() *cobra.Command {
	var datacenter string
	cmd := &cobra.Command{
		Use:   "export <workbook.xlsx>",
		Short: "Export the inventory to a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cleanup, err := requestContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if aerr := bulkimport.Export(ctx, datacenter, f); aerr != nil {
				return aerr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported inventory to %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&datacenter, "datacenter", "", "restrict the export to one datacenter")
	return cmd
}
