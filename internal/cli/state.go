package cli

import (
	"fmt"

	"github.com/picklr-io/adopt/internal/config"
	"github.com/picklr-io/adopt/internal/state"
	"github.com/spf13/cobra"
)

var forceUnlock bool

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the state store",
	Long: `Commands for inspecting the state store and recovering its lock.

The store only grows: adopt never moves or removes tracked addresses.`,
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked addresses",
	Args:  cobra.NoArgs,
	RunE:  runStateList,
}

var stateUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Release a state lock left behind by a crashed run",
	Args:  cobra.NoArgs,
	RunE:  runStateUnlock,
}

func init() {
	addBackendFlags(stateListCmd)
	addBackendFlags(stateUnlockCmd)
	addConfigFlags(stateUnlockCmd)
	stateUnlockCmd.Flags().BoolVar(&forceUnlock, "force", false, "Confirm breaking a lock held by another process")

	stateCmd.AddCommand(stateListCmd)
	stateCmd.AddCommand(stateUnlockCmd)
}

func loadStateBackend(cmd *cobra.Command) (state.Backend, error) {
	cfg, err := config.Load(getenv(), nil)
	if err != nil {
		return nil, err
	}
	return openBackend(cmd.Context(), cfg, nil)
}

func runStateList(cmd *cobra.Command, args []string) error {
	b, err := loadStateBackend(cmd)
	if err != nil {
		return err
	}

	addrs, err := b.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	if len(addrs) == 0 {
		fmt.Println("No resources in state.")
		return nil
	}
	for _, a := range addrs {
		fmt.Println(a)
	}
	return nil
}

func runStateUnlock(cmd *cobra.Command, args []string) error {
	if !forceUnlock {
		return fmt.Errorf("refusing to break the state lock without --force; make sure no other run is in progress")
	}

	b, err := loadStateBackend(cmd)
	if err != nil {
		return err
	}

	f, ok := b.(state.ForceUnlocker)
	if !ok {
		return fmt.Errorf("%s backend does not support force unlock", backendType)
	}
	if err := f.ForceUnlock(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("State lock released.")
	return nil
}
