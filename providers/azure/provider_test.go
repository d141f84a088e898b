package azure

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v3"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/msi/armmsi"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/picklr-io/adopt/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sub     = "/subscriptions/00000000-0000-0000-0000-000000000000"
	rgID    = sub + "/resourceGroups/rg-main"
	acrID   = rgID + "/providers/Microsoft.ContainerRegistry/registries/acrmain"
	idID    = rgID + "/providers/Microsoft.ManagedIdentity/userAssignedIdentities/id-main"
	raID    = acrID + "/providers/Microsoft.Authorization/roleAssignments/11111111-1111-1111-1111-111111111111"
	acrPull = sub + "/providers/Microsoft.Authorization/roleDefinitions/7f951dda-4ed3-4680-a7ca-43fe172d538d"
)

var (
	notFound  = &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "ResourceNotFound"}
	forbidden = &azcore.ResponseError{StatusCode: http.StatusForbidden, ErrorCode: "AuthorizationFailed"}
	internal  = &azcore.ResponseError{StatusCode: http.StatusInternalServerError, ErrorCode: "InternalServerError"}
)

// pagerOf returns a pager yielding the given pages, or err on the first fetch.
func pagerOf[T any](err error, pages ...T) *runtime.Pager[T] {
	i := 0
	return runtime.NewPager(runtime.PagingHandler[T]{
		More: func(T) bool { return i < len(pages) },
		Fetcher: func(ctx context.Context, _ *T) (T, error) {
			var zero T
			if err != nil {
				return zero, err
			}
			if i >= len(pages) {
				return zero, nil
			}
			page := pages[i]
			i++
			return page, nil
		},
	})
}

type fakeGroups struct {
	groups map[string]string
	err    error
}

func (f *fakeGroups) Get(ctx context.Context, name string, _ *armresources.ResourceGroupsClientGetOptions) (armresources.ResourceGroupsClientGetResponse, error) {
	if f.err != nil {
		return armresources.ResourceGroupsClientGetResponse{}, f.err
	}
	id, ok := f.groups[name]
	if !ok {
		return armresources.ResourceGroupsClientGetResponse{}, notFound
	}
	return armresources.ResourceGroupsClientGetResponse{ResourceGroup: armresources.ResourceGroup{ID: to.Ptr(id), Name: to.Ptr(name)}}, nil
}

func (f *fakeGroups) CreateOrUpdate(ctx context.Context, name string, rg armresources.ResourceGroup, _ *armresources.ResourceGroupsClientCreateOrUpdateOptions) (armresources.ResourceGroupsClientCreateOrUpdateResponse, error) {
	return armresources.ResourceGroupsClientCreateOrUpdateResponse{}, errors.New("not implemented")
}

type fakeResources struct {
	items   []*armresources.GenericResourceExpanded
	err     error
	filters []string
}

func (f *fakeResources) NewListByResourceGroupPager(rg string, opts *armresources.ClientListByResourceGroupOptions) *runtime.Pager[armresources.ClientListByResourceGroupResponse] {
	if opts != nil && opts.Filter != nil {
		f.filters = append(f.filters, *opts.Filter)
	}
	return pagerOf(f.err, armresources.ClientListByResourceGroupResponse{
		ResourceListResult: armresources.ResourceListResult{Value: f.items},
	})
}

type fakeIdentities struct {
	identity *armmsi.Identity
	err      error
}

func (f *fakeIdentities) Get(ctx context.Context, rg, name string, _ *armmsi.UserAssignedIdentitiesClientGetOptions) (armmsi.UserAssignedIdentitiesClientGetResponse, error) {
	if f.err != nil {
		return armmsi.UserAssignedIdentitiesClientGetResponse{}, f.err
	}
	if f.identity == nil || *f.identity.Name != name {
		return armmsi.UserAssignedIdentitiesClientGetResponse{}, notFound
	}
	return armmsi.UserAssignedIdentitiesClientGetResponse{Identity: *f.identity}, nil
}

type fakeRoleAssignments struct {
	items   []*armauthorization.RoleAssignment
	err     error
	scopes  []string
	filters []string
}

func (f *fakeRoleAssignments) NewListForScopePager(scope string, opts *armauthorization.RoleAssignmentsClientListForScopeOptions) *runtime.Pager[armauthorization.RoleAssignmentsClientListForScopeResponse] {
	f.scopes = append(f.scopes, scope)
	if opts != nil && opts.Filter != nil {
		f.filters = append(f.filters, *opts.Filter)
	}
	return pagerOf(f.err, armauthorization.RoleAssignmentsClientListForScopeResponse{
		RoleAssignmentListResult: armauthorization.RoleAssignmentListResult{Value: f.items},
	})
}

func generic(id, name, typ string) *armresources.GenericResourceExpanded {
	return &armresources.GenericResourceExpanded{ID: to.Ptr(id), Name: to.Ptr(name), Type: to.Ptr(typ)}
}

func newTestProvider() (*Provider, *fakeGroups, *fakeResources, *fakeIdentities, *fakeRoleAssignments) {
	groups := &fakeGroups{groups: map[string]string{"rg-main": rgID}}
	resources := &fakeResources{}
	identities := &fakeIdentities{identity: &armmsi.Identity{
		ID:         to.Ptr(idID),
		Name:       to.Ptr("id-main"),
		Properties: &armmsi.UserAssignedIdentityProperties{PrincipalID: to.Ptr("22222222-2222-2222-2222-222222222222")},
	}}
	roles := &fakeRoleAssignments{}
	p := &Provider{
		subscriptionID:  "00000000-0000-0000-0000-000000000000",
		groups:          groups,
		resources:       resources,
		identities:      identities,
		roleAssignments: roles,
	}
	return p, groups, resources, identities, roles
}

func TestLookup_ResourceGroup(t *testing.T) {
	p, groups, _, _, _ := newTestProvider()
	ctx := context.Background()

	id, found, err := p.Lookup(ctx, &ir.Entry{Kind: ir.KindResourceGroup, Name: "rg-main"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, rgID, id)

	_, found, err = p.Lookup(ctx, &ir.Entry{Kind: ir.KindResourceGroup, Name: "rg-other"})
	require.NoError(t, err)
	assert.False(t, found)

	groups.err = forbidden
	_, found, err = p.Lookup(ctx, &ir.Entry{Kind: ir.KindResourceGroup, Name: "rg-main"})
	require.Error(t, err)
	assert.False(t, found)
	assert.True(t, errors.Is(err, forbidden))
}

func TestLookup_ByType(t *testing.T) {
	tests := []struct {
		name      string
		items     []*armresources.GenericResourceExpanded
		err       error
		wantID    string
		wantFound bool
		wantErr   bool
	}{
		{
			name:      "exact match",
			items:     []*armresources.GenericResourceExpanded{generic(acrID, "acrmain", "Microsoft.ContainerRegistry/registries")},
			wantID:    acrID,
			wantFound: true,
		},
		{
			name:      "case insensitive",
			items:     []*armresources.GenericResourceExpanded{generic(acrID, "ACRMain", "microsoft.containerregistry/registries")},
			wantID:    acrID,
			wantFound: true,
		},
		{
			name:  "prefix is not a match",
			items: []*armresources.GenericResourceExpanded{generic(acrID+"2", "acrmain2", "Microsoft.ContainerRegistry/registries")},
		},
		{
			name:  "other type is not a match",
			items: []*armresources.GenericResourceExpanded{generic(acrID, "acrmain", "Microsoft.Storage/storageAccounts")},
		},
		{
			name: "empty resource group",
		},
		{
			name: "resource group missing",
			err:  &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "ResourceGroupNotFound"},
		},
		{
			name:    "forbidden",
			err:     forbidden,
			wantErr: true,
		},
		{
			name:    "server error",
			err:     internal,
			wantErr: true,
		},
		{
			name: "ambiguous",
			items: []*armresources.GenericResourceExpanded{
				generic(acrID, "acrmain", "Microsoft.ContainerRegistry/registries"),
				generic(acrID+"-dup", "acrmain", "Microsoft.ContainerRegistry/registries"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, resources, _, _ := newTestProvider()
			resources.items = tt.items
			resources.err = tt.err

			id, found, err := p.Lookup(context.Background(), &ir.Entry{
				Kind:          ir.KindContainerRegistry,
				Name:          "acrmain",
				ResourceGroup: "rg-main",
			})
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, found)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestLookup_ByTypeFilter(t *testing.T) {
	p, _, resources, _, _ := newTestProvider()

	_, _, err := p.Lookup(context.Background(), &ir.Entry{Kind: ir.KindLogAnalyticsWorkspace, Name: "o'brien", ResourceGroup: "rg-main"})
	require.NoError(t, err)
	require.Len(t, resources.filters, 1)
	assert.Equal(t, "resourceType eq 'Microsoft.OperationalInsights/workspaces' and name eq 'o''brien'", resources.filters[0])
}

func TestLookup_Identity(t *testing.T) {
	p, _, _, identities, _ := newTestProvider()
	ctx := context.Background()

	id, found, err := p.Lookup(ctx, &ir.Entry{Kind: ir.KindUserAssignedIdentity, Name: "id-main", ResourceGroup: "rg-main"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, idID, id)

	_, found, err = p.Lookup(ctx, &ir.Entry{Kind: ir.KindUserAssignedIdentity, Name: "id-other", ResourceGroup: "rg-main"})
	require.NoError(t, err)
	assert.False(t, found)

	identities.err = internal
	_, _, err = p.Lookup(ctx, &ir.Entry{Kind: ir.KindUserAssignedIdentity, Name: "id-main", ResourceGroup: "rg-main"})
	assert.Error(t, err)
}

func roleAssignmentEntry() *ir.Entry {
	return &ir.Entry{
		Kind:      ir.KindRoleAssignment,
		Scope:     &ir.Entry{Kind: ir.KindContainerRegistry, Name: "acrmain", ResourceGroup: "rg-main"},
		Principal: &ir.Entry{Kind: ir.KindUserAssignedIdentity, Name: "id-main", ResourceGroup: "rg-main"},
		Role:      "AcrPull",
	}
}

func assignment(id, scope, roleDefinition string) *armauthorization.RoleAssignment {
	return &armauthorization.RoleAssignment{
		ID: to.Ptr(id),
		Properties: &armauthorization.RoleAssignmentProperties{
			Scope:            to.Ptr(scope),
			RoleDefinitionID: to.Ptr(roleDefinition),
			PrincipalID:      to.Ptr("22222222-2222-2222-2222-222222222222"),
		},
	}
}

func TestLookup_RoleAssignment(t *testing.T) {
	p, _, resources, _, roles := newTestProvider()
	resources.items = []*armresources.GenericResourceExpanded{generic(acrID, "acrmain", "Microsoft.ContainerRegistry/registries")}
	roles.items = []*armauthorization.RoleAssignment{
		// Inherited from the resource group: not this assignment.
		assignment(rgID+"/providers/Microsoft.Authorization/roleAssignments/x", rgID, acrPull),
		assignment(acrID+"/providers/Microsoft.Authorization/roleAssignments/y", acrID, sub+"/providers/Microsoft.Authorization/roleDefinitions/acdd72a7-3385-48ef-bd42-f606fba81ae7"),
		assignment(raID, acrID, acrPull),
	}

	id, found, err := p.Lookup(context.Background(), roleAssignmentEntry())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, raID, id)

	assert.Equal(t, []string{acrID}, roles.scopes)
	assert.Equal(t, []string{"principalId eq '22222222-2222-2222-2222-222222222222'"}, roles.filters)
}

func TestLookup_RoleAssignmentAbsent(t *testing.T) {
	t.Run("no matching assignment", func(t *testing.T) {
		p, _, resources, _, _ := newTestProvider()
		resources.items = []*armresources.GenericResourceExpanded{generic(acrID, "acrmain", "Microsoft.ContainerRegistry/registries")}

		_, found, err := p.Lookup(context.Background(), roleAssignmentEntry())
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("scope missing", func(t *testing.T) {
		p, _, _, _, roles := newTestProvider()

		_, found, err := p.Lookup(context.Background(), roleAssignmentEntry())
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, roles.scopes)
	})

	t.Run("principal missing", func(t *testing.T) {
		p, _, resources, identities, roles := newTestProvider()
		resources.items = []*armresources.GenericResourceExpanded{generic(acrID, "acrmain", "Microsoft.ContainerRegistry/registries")}
		identities.identity = nil

		_, found, err := p.Lookup(context.Background(), roleAssignmentEntry())
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, roles.scopes)
	})
}

func TestLookup_RoleAssignmentErrors(t *testing.T) {
	t.Run("scope lookup forbidden", func(t *testing.T) {
		p, _, resources, _, _ := newTestProvider()
		resources.err = forbidden

		_, found, err := p.Lookup(context.Background(), roleAssignmentEntry())
		require.Error(t, err)
		assert.False(t, found)
		assert.True(t, errors.Is(err, forbidden))
	})

	t.Run("listing forbidden", func(t *testing.T) {
		p, _, resources, _, roles := newTestProvider()
		resources.items = []*armresources.GenericResourceExpanded{generic(acrID, "acrmain", "Microsoft.ContainerRegistry/registries")}
		roles.err = forbidden

		_, found, err := p.Lookup(context.Background(), roleAssignmentEntry())
		require.Error(t, err)
		assert.False(t, found)
	})

	t.Run("identity without principal", func(t *testing.T) {
		p, _, resources, identities, _ := newTestProvider()
		resources.items = []*armresources.GenericResourceExpanded{generic(acrID, "acrmain", "Microsoft.ContainerRegistry/registries")}
		identities.identity.Properties = nil

		_, _, err := p.Lookup(context.Background(), roleAssignmentEntry())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no principal id")
	})

	t.Run("unknown role", func(t *testing.T) {
		p, _, _, _, _ := newTestProvider()
		entry := roleAssignmentEntry()
		entry.Role = "Chief Coffee Officer"

		_, _, err := p.Lookup(context.Background(), entry)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown role")
	})
}

func TestRoleDefinitionID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "7f951dda-4ed3-4680-a7ca-43fe172d538d"},
		{"AcrPull", "7f951dda-4ed3-4680-a7ca-43fe172d538d"},
		{"acrpush", "8311e382-0749-4cb8-b61a-304f252e45ec"},
		{"7F951DDA-4ED3-4680-A7CA-43FE172D538D", "7f951dda-4ed3-4680-a7ca-43fe172d538d"},
		{acrPull, "7f951dda-4ed3-4680-a7ca-43fe172d538d"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := RoleDefinitionID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := RoleDefinitionID("not-a-role")
	assert.Error(t, err)
}

func TestNewRequiresSubscription(t *testing.T) {
	_, err := New("", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscription")
}
