package azureclient

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/msi/armmsi"
)

// UserAssignedIdentitiesClient is a minimal interface for Azure UserAssignedIdentitiesClient
type UserAssignedIdentitiesClient interface {
	Get(ctx context.Context, resourceGroupName string, resourceName string, options *armmsi.UserAssignedIdentitiesClientGetOptions) (armmsi.UserAssignedIdentitiesClientGetResponse, error)
}

type userAssignedIdentitiesClient struct {
	*armmsi.UserAssignedIdentitiesClient
}

var _ UserAssignedIdentitiesClient = &userAssignedIdentitiesClient{}

// NewUserAssignedIdentitiesClient creates a new UserAssignedIdentitiesClient
func NewUserAssignedIdentitiesClient(subscriptionID string, credential azcore.TokenCredential, options *arm.ClientOptions) (UserAssignedIdentitiesClient, error) {
	clientFactory, err := armmsi.NewClientFactory(subscriptionID, credential, options)
	if err != nil {
		return nil, err
	}
	return &userAssignedIdentitiesClient{UserAssignedIdentitiesClient: clientFactory.NewUserAssignedIdentitiesClient()}, nil
}
