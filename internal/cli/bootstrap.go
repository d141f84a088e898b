package cli

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/picklr-io/adopt/internal/azureclient"
	"github.com/picklr-io/adopt/internal/bootstrap"
	"github.com/picklr-io/adopt/internal/config"
	"github.com/spf13/cobra"
)

var (
	bootstrapAccount   string
	bootstrapGroup     string
	bootstrapContainer string
	bootstrapLocation  string
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the storage that holds remote Terraform state",
	Long: `Ensures the resource group, storage account and blob container used by
the azurerm Terraform backend exist. Anything that already exists is left
alone, so the command is safe to run on every pipeline run.`,
	Args: cobra.NoArgs,
	RunE: runBootstrap,
}

func init() {
	addConfigFlags(bootstrapCmd)
	fs := bootstrapCmd.Flags()
	fs.StringVar(&bootstrapAccount, "storage-account", "", "Storage account name (env "+config.EnvStateAccount+")")
	fs.StringVar(&bootstrapGroup, "state-resource-group", "", "Resource group of the storage account (env "+config.EnvStateGroup+", defaults to RESOURCE_GROUP_NAME)")
	fs.StringVar(&bootstrapContainer, "container", "", "Blob container name (env "+config.EnvStateContainer+", default "+bootstrap.DefaultContainer+")")
	fs.StringVar(&bootstrapLocation, "location", "", "Azure region used when creating (env "+config.EnvLocation+")")
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	env := config.WithOverrides(map[string]string{
		config.EnvStateAccount:   bootstrapAccount,
		config.EnvStateGroup:     bootstrapGroup,
		config.EnvStateContainer: bootstrapContainer,
		config.EnvLocation:       bootstrapLocation,
	}, getenv())

	cfg, err := config.Load(env, []string{config.EnvSubscriptionID, config.EnvStateAccount})
	if err != nil {
		return err
	}
	group := cfg.StateGroup
	if group == "" {
		group = cfg.ResourceGroup
	}
	if group == "" {
		return &config.MissingError{Keys: []string{config.EnvStateGroup}}
	}

	cred, err := azureclient.NewCredential(cfg.TenantID)
	if err != nil {
		return err
	}
	b, err := bootstrap.New(cfg.SubscriptionID, cred)
	if err != nil {
		return err
	}

	steps, err := b.Run(cmd.Context(), bootstrap.Options{
		ResourceGroup:  group,
		Location:       cfg.Location,
		StorageAccount: cfg.StateAccount,
		Container:      cfg.StateContainer,
		Tags:           map[string]string{"managed-by": "adopt"},
	})
	renderSteps(steps)
	if err != nil {
		return err
	}

	fmt.Printf("\nConfigure terraform with:\n  resource_group_name  = %q\n  storage_account_name = %q\n  container_name       = %q\n",
		group, cfg.StateAccount, steps[len(steps)-1].Name)
	return nil
}

func renderSteps(steps []bootstrap.Step) {
	if len(steps) == 0 {
		return
	}
	t := newTable(os.Stdout)
	t.AppendHeader(table.Row{"Resource", "Name", "Status", "ID"})
	for _, s := range steps {
		status := colorize(text.FgHiBlack, "exists")
		if s.Created {
			status = colorize(text.FgGreen, "created")
		}
		t.AppendRow(table.Row{s.Resource, s.Name, status, s.ID})
	}
	t.Render()
}
