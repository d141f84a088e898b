package azureclient

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
)

// AccountsClient is a minimal interface for Azure AccountsClient
type AccountsClient interface {
	GetProperties(ctx context.Context, resourceGroupName string, accountName string, options *armstorage.AccountsClientGetPropertiesOptions) (armstorage.AccountsClientGetPropertiesResponse, error)
	AccountsClientAddons
}

type accountsClient struct {
	*armstorage.AccountsClient
}

var _ AccountsClient = &accountsClient{}

// NewAccountsClient creates a new AccountsClient
func NewAccountsClient(subscriptionID string, credential azcore.TokenCredential, options *arm.ClientOptions) (AccountsClient, error) {
	clientFactory, err := armstorage.NewClientFactory(subscriptionID, credential, options)
	if err != nil {
		return nil, err
	}
	return &accountsClient{AccountsClient: clientFactory.NewAccountsClient()}, nil
}

// BlobContainersClient is a minimal interface for Azure BlobContainersClient
type BlobContainersClient interface {
	Create(ctx context.Context, resourceGroupName string, accountName string, containerName string, blobContainer armstorage.BlobContainer, options *armstorage.BlobContainersClientCreateOptions) (armstorage.BlobContainersClientCreateResponse, error)
	Get(ctx context.Context, resourceGroupName string, accountName string, containerName string, options *armstorage.BlobContainersClientGetOptions) (armstorage.BlobContainersClientGetResponse, error)
}

type blobContainersClient struct {
	*armstorage.BlobContainersClient
}

var _ BlobContainersClient = &blobContainersClient{}

// NewBlobContainersClient creates a new BlobContainersClient
func NewBlobContainersClient(subscriptionID string, credential azcore.TokenCredential, options *arm.ClientOptions) (BlobContainersClient, error) {
	clientFactory, err := armstorage.NewClientFactory(subscriptionID, credential, options)
	if err != nil {
		return nil, err
	}
	return &blobContainersClient{BlobContainersClient: clientFactory.NewBlobContainersClient()}, nil
}
