package azureclient

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
)

// ResourceGroupsClient is a minimal interface for Azure ResourceGroupsClient
type ResourceGroupsClient interface {
	Get(ctx context.Context, resourceGroupName string, options *armresources.ResourceGroupsClientGetOptions) (armresources.ResourceGroupsClientGetResponse, error)
	CreateOrUpdate(ctx context.Context, resourceGroupName string, parameters armresources.ResourceGroup, options *armresources.ResourceGroupsClientCreateOrUpdateOptions) (armresources.ResourceGroupsClientCreateOrUpdateResponse, error)
}

type resourceGroupsClient struct {
	*armresources.ResourceGroupsClient
}

var _ ResourceGroupsClient = &resourceGroupsClient{}

// NewResourceGroupsClient creates a new ResourceGroupsClient
func NewResourceGroupsClient(subscriptionID string, credential azcore.TokenCredential, options *arm.ClientOptions) (ResourceGroupsClient, error) {
	clientFactory, err := armresources.NewClientFactory(subscriptionID, credential, options)
	if err != nil {
		return nil, err
	}
	return &resourceGroupsClient{ResourceGroupsClient: clientFactory.NewResourceGroupsClient()}, nil
}

// ResourcesClient is a minimal interface for the generic Azure resources Client
type ResourcesClient interface {
	NewListByResourceGroupPager(resourceGroupName string, options *armresources.ClientListByResourceGroupOptions) *runtime.Pager[armresources.ClientListByResourceGroupResponse]
}

type resourcesClient struct {
	*armresources.Client
}

var _ ResourcesClient = &resourcesClient{}

// NewResourcesClient creates a new ResourcesClient
func NewResourcesClient(subscriptionID string, credential azcore.TokenCredential, options *arm.ClientOptions) (ResourcesClient, error) {
	clientFactory, err := armresources.NewClientFactory(subscriptionID, credential, options)
	if err != nil {
		return nil, err
	}
	return &resourcesClient{Client: clientFactory.NewClient()}, nil
}
