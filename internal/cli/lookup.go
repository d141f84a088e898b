package cli

import (
	"context"
	"fmt"

	"github.com/picklr-io/adopt/internal/config"
	"github.com/picklr-io/adopt/internal/engine"
	"github.com/picklr-io/adopt/internal/ir"
	"github.com/picklr-io/adopt/internal/provider"
	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <kind> <name> | lookup <address>",
	Short: "Look a single resource up in Azure without touching state",
	Long: `Runs one lookup and prints the resource ID, "not found", or the error.

With a kind and a name the resource is looked up directly. With a single
argument the entry with that address is taken from the batch.

Example:
  adopt lookup container_registry acrmain --resource-group rg-main
  adopt lookup azurerm_role_assignment.acr_pull`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLookup,
}

func init() {
	addConfigFlags(lookupCmd)
	fs := lookupCmd.Flags()
	fs.StringVarP(&batchFile, "file", "f", "", "Batch file to take the entry from")
	fs.StringVar(&providerName, "provider", envOr("ADOPT_PROVIDER", "azure"), "Lookup provider: azure or null")
	fs.StringVar(&fixturesPath, "lookup-fixtures", "", "YAML fixtures answering lookups for the null provider")
	fs.DurationVar(&lookupTimeout, "lookup-timeout", engine.DefaultLookupTimeout, "Maximum time for the lookup")
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env := getenv()

	var required []string
	if providerName == "azure" {
		required = []string{config.EnvSubscriptionID}
	}
	cfg, err := config.Load(env, required)
	if err != nil {
		return err
	}

	entry, err := lookupEntry(ctx, cfg, env, args)
	if err != nil {
		return err
	}

	cred, err := credentialFor(cfg, providerName == "azure")
	if err != nil {
		return err
	}
	registry := provider.NewRegistry()
	if err := registry.LoadProvider(providerName, provider.Options{
		SubscriptionID: cfg.SubscriptionID,
		Credential:     cred,
		FixturesPath:   fixturesPath,
	}); err != nil {
		return fmt.Errorf("failed to load provider %s: %w", providerName, err)
	}

	lctx, cancel := engine.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	id, found, err := registry.Lookup(lctx, entry)
	if err != nil {
		return fmt.Errorf("lookup of %s failed: %w", entry, err)
	}
	if !found {
		fmt.Printf("%s: %s\n", entry, colorize(outcomeColor(ir.NotFoundUpstream), "not found"))
		return nil
	}
	fmt.Println(id)
	return nil
}

func lookupEntry(ctx context.Context, cfg *config.Config, env func(string) string, args []string) (*ir.Entry, error) {
	if len(args) == 2 {
		kind, err := ir.ParseKind(args[0])
		if err != nil {
			return nil, err
		}
		if kind == ir.KindRoleAssignment {
			return nil, fmt.Errorf("role assignments need a scope and a principal: look them up by batch address")
		}
		var rg string
		if kind != ir.KindResourceGroup {
			rg = cfg.ResourceGroup
			if rg == "" {
				return nil, &config.MissingError{Keys: []string{config.EnvResourceGroup}}
			}
		}
		return &ir.Entry{Address: args[0] + "." + args[1], Kind: kind, Name: args[1], ResourceGroup: rg}, nil
	}

	path := batchFile
	if path == "" {
		path = config.FindBatchFile(".")
	}

	var batch *ir.Batch
	if path != "" {
		b, err := config.LoadBatch(ctx, path, env)
		if err != nil {
			return nil, err
		}
		batch = b
	} else {
		full, err := config.Load(env, config.DefaultRequired)
		if err != nil {
			return nil, err
		}
		batch = config.DefaultBatch(full)
	}

	for _, e := range batch.Entries {
		if e.Address == args[0] {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no resource with address %s in the batch", args[0])
}
