package cli

import (
	"fmt"
	"os"

	"github.com/picklr-io/adopt/internal/engine"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"import"},
	Short:   "Import existing Azure resources into state",
	Long: `Reconciles every resource of the batch against the state store.

Resources already in state are left alone. Resources that exist in Azure are
imported. Resources that do not exist are left for terraform apply to create.
A failure on one resource does not stop the others; the command exits non-zero
after the whole batch if any resource failed.

Example:
  export ARM_SUBSCRIPTION_ID=... RESOURCE_GROUP_NAME=rg-main ACR_NAME=acrmain ...
  adopt run --backend-config working_dir=infra`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	addReconcileFlags(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	return reconcile(cmd, false)
}

// reconcile runs the batch and prints the report. Per-resource failures are
// turned into a single error once everything has run.
func reconcile(cmd *cobra.Command, dryRun bool) error {
	ctx := cmd.Context()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}

	eng := engine.NewEngine(s.backend, s.backend, s.registry)
	eng.LookupTimeout = lookupTimeout
	eng.LockTimeout = lockTimeout
	eng.DryRun = dryRun

	report, err := eng.Run(ctx, s.batch)
	if report != nil {
		renderReport(os.Stdout, report)
	}
	if err != nil {
		return err
	}

	if rerr := report.Err(); rerr != nil {
		return fmt.Errorf("%d of %d resources failed to reconcile: %w", report.Summary.ImportFailed, len(report.Results), rerr)
	}
	return nil
}
