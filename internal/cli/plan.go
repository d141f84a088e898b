package cli

import (
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what run would import, without changing state",
	Long: `Performs the same state queries and Azure lookups as run but never
imports and takes no state lock. Resources that would be imported are
reported as Imported (dry run).`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	addReconcileFlags(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	return reconcile(cmd, true)
}
