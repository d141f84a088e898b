package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v3"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/picklr-io/adopt/internal/azureclient"
	"github.com/picklr-io/adopt/internal/ir"
	"github.com/picklr-io/adopt/internal/logging"
)

// Provider resolves entries against the Azure Resource Manager control plane.
// A lookup reports absence only for HTTP 404; every other failure is returned.
type Provider struct {
	subscriptionID string

	groups          azureclient.ResourceGroupsClient
	resources       azureclient.ResourcesClient
	identities      azureclient.UserAssignedIdentitiesClient
	roleAssignments azureclient.RoleAssignmentsClient
}

// New creates a provider for one subscription.
func New(subscriptionID string, cred azcore.TokenCredential, options *arm.ClientOptions) (*Provider, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("azure provider requires a subscription id")
	}
	if cred == nil {
		return nil, fmt.Errorf("azure provider requires credentials")
	}

	groups, err := azureclient.NewResourceGroupsClient(subscriptionID, cred, options)
	if err != nil {
		return nil, err
	}
	resources, err := azureclient.NewResourcesClient(subscriptionID, cred, options)
	if err != nil {
		return nil, err
	}
	identities, err := azureclient.NewUserAssignedIdentitiesClient(subscriptionID, cred, options)
	if err != nil {
		return nil, err
	}
	roleAssignments, err := azureclient.NewRoleAssignmentsClient(subscriptionID, cred, options)
	if err != nil {
		return nil, err
	}

	return &Provider{
		subscriptionID:  subscriptionID,
		groups:          groups,
		resources:       resources,
		identities:      identities,
		roleAssignments: roleAssignments,
	}, nil
}

// Kinds returns the kinds this provider can look up.
func (p *Provider) Kinds() []ir.Kind {
	return ir.Kinds()
}

// Lookup returns the ARM resource ID of the entry, or found == false when
// Azure reports it does not exist.
func (p *Provider) Lookup(ctx context.Context, entry *ir.Entry) (string, bool, error) {
	logging.Debug("looking up resource", "kind", entry.Kind, "name", entry.Name, "resource_group", entry.ResourceGroup)

	switch entry.Kind {
	case ir.KindResourceGroup:
		return p.lookupResourceGroup(ctx, entry.Name)
	case ir.KindUserAssignedIdentity:
		id, _, found, err := p.lookupIdentity(ctx, entry)
		return id, found, err
	case ir.KindRoleAssignment:
		return p.lookupRoleAssignment(ctx, entry)
	}

	armType, ok := entry.Kind.ARMType()
	if !ok {
		return "", false, fmt.Errorf("azure provider cannot look up kind %q", entry.Kind)
	}
	return p.lookupByType(ctx, entry.ResourceGroup, armType, entry.Name)
}

func (p *Provider) lookupResourceGroup(ctx context.Context, name string) (string, bool, error) {
	resp, err := p.groups.Get(ctx, name, nil)
	if err != nil {
		if azureclient.IsNotFoundError(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get resource group %s: %w", name, err)
	}
	if resp.ID == nil {
		return "", false, fmt.Errorf("resource group %s returned without an id", name)
	}
	return *resp.ID, true, nil
}

// lookupByType lists the resource group filtered by type and name, then
// requires an exact case-insensitive name match.
func (p *Provider) lookupByType(ctx context.Context, resourceGroup, armType, name string) (string, bool, error) {
	filter := fmt.Sprintf("resourceType eq '%s' and name eq '%s'", odataEscape(armType), odataEscape(name))
	pager := p.resources.NewListByResourceGroupPager(resourceGroup, &armresources.ClientListByResourceGroupOptions{
		Filter: &filter,
	})

	var matches []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if azureclient.IsNotFoundError(err) {
				// ResourceGroupNotFound: nothing inside it can exist.
				return "", false, nil
			}
			return "", false, fmt.Errorf("failed to list %s in %s: %w", armType, resourceGroup, err)
		}
		for _, r := range page.Value {
			if r == nil || r.ID == nil || r.Name == nil || r.Type == nil {
				continue
			}
			if strings.EqualFold(*r.Name, name) && strings.EqualFold(*r.Type, armType) {
				matches = append(matches, *r.ID)
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", false, nil
	case 1:
		return matches[0], true, nil
	default:
		return "", false, fmt.Errorf("%d resources of type %s named %s in %s", len(matches), armType, name, resourceGroup)
	}
}

// lookupIdentity returns the identity resource ID and its service principal ID.
func (p *Provider) lookupIdentity(ctx context.Context, entry *ir.Entry) (id, principalID string, found bool, err error) {
	resp, err := p.identities.Get(ctx, entry.ResourceGroup, entry.Name, nil)
	if err != nil {
		if azureclient.IsNotFoundError(err) {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("failed to get managed identity %s: %w", entry.Name, err)
	}
	if resp.ID == nil {
		return "", "", false, fmt.Errorf("managed identity %s returned without an id", entry.Name)
	}
	if resp.Properties != nil && resp.Properties.PrincipalID != nil {
		principalID = *resp.Properties.PrincipalID
	}
	return *resp.ID, principalID, true, nil
}

// lookupRoleAssignment resolves the scope and the principal first. When either
// is absent the assignment cannot exist.
func (p *Provider) lookupRoleAssignment(ctx context.Context, entry *ir.Entry) (string, bool, error) {
	roleID, err := RoleDefinitionID(entry.Role)
	if err != nil {
		return "", false, err
	}

	scopeID, found, err := p.Lookup(ctx, entry.Scope)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve role assignment scope %s: %w", entry.Scope.Name, err)
	}
	if !found {
		logging.Debug("role assignment scope does not exist", "scope", entry.Scope.Name)
		return "", false, nil
	}

	_, principalID, found, err := p.lookupIdentity(ctx, entry.Principal)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve role assignment principal %s: %w", entry.Principal.Name, err)
	}
	if !found {
		logging.Debug("role assignment principal does not exist", "principal", entry.Principal.Name)
		return "", false, nil
	}
	if principalID == "" {
		return "", false, fmt.Errorf("managed identity %s has no principal id", entry.Principal.Name)
	}

	filter := fmt.Sprintf("principalId eq '%s'", odataEscape(principalID))
	pager := p.roleAssignments.NewListForScopePager(scopeID, &armauthorization.RoleAssignmentsClientListForScopeOptions{
		Filter: &filter,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if azureclient.IsNotFoundError(err) {
				return "", false, nil
			}
			return "", false, fmt.Errorf("failed to list role assignments at %s: %w", scopeID, err)
		}
		for _, ra := range page.Value {
			if ra == nil || ra.ID == nil || ra.Properties == nil {
				continue
			}
			props := ra.Properties
			// Assignments inherited from a parent scope are not this resource.
			if props.Scope == nil || !strings.EqualFold(*props.Scope, scopeID) {
				continue
			}
			if props.RoleDefinitionID == nil || !sameRoleDefinition(*props.RoleDefinitionID, roleID) {
				continue
			}
			return *ra.ID, true, nil
		}
	}
	return "", false, nil
}

func odataEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
