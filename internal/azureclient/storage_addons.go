package azureclient

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
)

// AccountsClientAddons contains addons for Azure AccountsClient
type AccountsClientAddons interface {
	CreateAndWait(ctx context.Context, resourceGroupName string, accountName string, parameters armstorage.AccountCreateParameters, options *armstorage.AccountsClientBeginCreateOptions) (armstorage.Account, error)
}

func (c *accountsClient) CreateAndWait(ctx context.Context, resourceGroupName string, accountName string, parameters armstorage.AccountCreateParameters, options *armstorage.AccountsClientBeginCreateOptions) (armstorage.Account, error) {
	poller, err := c.AccountsClient.BeginCreate(ctx, resourceGroupName, accountName, parameters, options)
	if err != nil {
		return armstorage.Account{}, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return armstorage.Account{}, err
	}
	return resp.Account, nil
}
