package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample adopt.yaml batch file",
	Long: `Creates adopt.yaml describing the default Container Apps batch. Names are
read from the environment when adopt runs, so the file can be committed.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing adopt.yaml")
}

const sampleBatch = `# Resources adopt reconciles before terraform apply, in order.
# ${VAR} references are read from the environment at run time.
resources:
  - address: azurerm_resource_group.main
    kind: resource_group
    name: ${RESOURCE_GROUP_NAME}

  - address: azurerm_container_registry.main
    kind: container_registry
    name: ${ACR_NAME}
    resourceGroup: ${RESOURCE_GROUP_NAME}

  - address: azurerm_log_analytics_workspace.main
    kind: log_analytics_workspace
    name: ${LOG_ANALYTICS_WORKSPACE_NAME}
    resourceGroup: ${RESOURCE_GROUP_NAME}

  - address: azurerm_container_app_environment.main
    kind: container_app_environment
    name: ${CONTAINER_APP_ENVIRONMENT_NAME}
    resourceGroup: ${RESOURCE_GROUP_NAME}

  - address: azurerm_user_assigned_identity.main
    kind: user_assigned_identity
    name: ${MANAGED_IDENTITY_NAME}
    resourceGroup: ${RESOURCE_GROUP_NAME}

  - address: azurerm_role_assignment.acr_pull
    kind: role_assignment
    role: AcrPull
    scope:
      kind: container_registry
      name: ${ACR_NAME}
      resourceGroup: ${RESOURCE_GROUP_NAME}
    principal:
      kind: user_assigned_identity
      name: ${MANAGED_IDENTITY_NAME}
      resourceGroup: ${RESOURCE_GROUP_NAME}
`

func runInit(cmd *cobra.Command, args []string) error {
	const path = "adopt.yaml"

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(sampleBatch), 0644); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	fmt.Printf("Created %s\n", path)

	fmt.Println("\nNext steps:")
	fmt.Println("  1. Export ARM_SUBSCRIPTION_ID and the resource names used in adopt.yaml")
	fmt.Println("  2. Run 'adopt plan' to see what would be imported")
	fmt.Println("  3. Run 'adopt run' before 'terraform apply'")
	return nil
}
