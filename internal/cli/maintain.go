package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	maintainNamespace string
	maintainDryRun    bool
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Identify and archive pruning candidates",
	RunE:  runMaintain,
}

func init() {
	maintainCmd.Flags().StringVarP(&maintainNamespace, "namespace", "n", "", "namespace (default: user namespace)")
	maintainCmd.Flags().BoolVar(&maintainDryRun, "dry-run", false, "count candidates without archiving")
}

func runMaintain(cmd *cobra.Command, args []string) error {
	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.close()

	eng, err := st.engineFor(maintainNamespace)
	if err != nil {
		return err
	}

	report, err := eng.RunMaintenance(context.Background(), maintainDryRun)
	if err != nil {
		return err
	}

	mode := "pruned"
	if maintainDryRun {
		mode = "would prune"
	}
	fmt.Printf("analyzed %d, %s %d, consolidated %d\n", report.Analyzed, mode, report.Pruned, report.Consolidated)
	for _, e := range report.Errors {
		fmt.Printf("  error: %s\n", e)
	}
	return nil
}
