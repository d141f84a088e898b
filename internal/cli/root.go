package cli

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/picklr-io/adopt/internal/logging"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string
	noColor   bool
	chdir     string
)

var rootCmd = &cobra.Command{
	Use:   "adopt",
	Short: "Import existing Azure resources into Terraform state before apply",
	Long: `Adopt brings resources that already exist in Azure under Terraform management.

For every resource of the batch it:
  • does nothing if the address is already in state
  • imports the resource ID if the resource exists in Azure
  • leaves creation to terraform apply if it does not

Running it twice is safe: the second run finds everything already tracked.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupGlobals,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", os.Getenv(logging.LevelEnvVar), "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", envOr("ADOPT_LOG_FORMAT", "text"), "Log format: text or json")
	pf.BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "Disable colored output")
	pf.StringVarP(&chdir, "chdir", "C", "", "Switch to this directory before doing anything")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupGlobals(cmd *cobra.Command, args []string) error {
	if chdir != "" {
		if err := os.Chdir(chdir); err != nil {
			return fmt.Errorf("failed to change directory to %s: %w", chdir, err)
		}
	}
	if noColor {
		text.DisableColors()
	}
	if logFormat != "text" && logFormat != "json" {
		return fmt.Errorf("invalid --log-format %q: use text or json", logFormat)
	}
	logging.Init(logLevel, logFormat)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
