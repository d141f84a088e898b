package ir

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies the class of Azure resource an entry refers to.
type Kind string

const (
	KindResourceGroup           Kind = "resource_group"
	KindContainerRegistry       Kind = "container_registry"
	KindLogAnalyticsWorkspace   Kind = "log_analytics_workspace"
	KindContainerAppEnvironment Kind = "container_app_environment"
	KindContainerApp            Kind = "container_app"
	KindUserAssignedIdentity    Kind = "user_assigned_identity"
	KindRoleAssignment          Kind = "role_assignment"
)

// armTypes maps kinds that live inside a resource group to their ARM resource type.
var armTypes = map[Kind]string{
	KindContainerRegistry:       "Microsoft.ContainerRegistry/registries",
	KindLogAnalyticsWorkspace:   "Microsoft.OperationalInsights/workspaces",
	KindContainerAppEnvironment: "Microsoft.App/managedEnvironments",
	KindContainerApp:            "Microsoft.App/containerApps",
	KindUserAssignedIdentity:    "Microsoft.ManagedIdentity/userAssignedIdentities",
}

// Kinds returns every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindResourceGroup,
		KindContainerRegistry,
		KindLogAnalyticsWorkspace,
		KindContainerAppEnvironment,
		KindContainerApp,
		KindUserAssignedIdentity,
		KindRoleAssignment,
	}
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(strings.ToLower(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown resource kind %q", s)
}

// ARMType returns the ARM resource type for kinds scoped to a resource group.
func (k Kind) ARMType() (string, bool) {
	t, ok := armTypes[k]
	return t, ok
}

// TrackedResource is an address recorded in a state store.
type TrackedResource struct {
	Address    string    `json:"address"`
	ID         string    `json:"id"`
	ImportedAt time.Time `json:"importedAt"`
}
