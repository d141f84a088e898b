package bootstrap

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/picklr-io/adopt/internal/azureclient"
	"github.com/picklr-io/adopt/internal/logging"
)

// DefaultContainer holds remote state when no container is configured.
const DefaultContainer = "tfstate"

var accountNameRe = regexp.MustCompile(`^[a-z0-9]{3,24}$`)

// Options describes the remote state storage to ensure.
type Options struct {
	ResourceGroup  string
	Location       string // required only when something must be created
	StorageAccount string
	Container      string
	Tags           map[string]string
}

func (o *Options) validate() error {
	if o.ResourceGroup == "" {
		return fmt.Errorf("resource group is required")
	}
	if !accountNameRe.MatchString(o.StorageAccount) {
		return fmt.Errorf("storage account name %q must be 3-24 lowercase letters and digits", o.StorageAccount)
	}
	if o.Container == "" {
		o.Container = DefaultContainer
	}
	return nil
}

// Step records what happened to one piece of remote state storage.
type Step struct {
	Resource string
	Name     string
	ID       string
	Created  bool
}

// Bootstrapper creates the storage remote state needs, skipping anything
// that already exists.
type Bootstrapper struct {
	groups     azureclient.ResourceGroupsClient
	accounts   azureclient.AccountsClient
	containers azureclient.BlobContainersClient
}

func New(subscriptionID string, cred azcore.TokenCredential) (*Bootstrapper, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("bootstrap requires a subscription id")
	}

	groups, err := azureclient.NewResourceGroupsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, err
	}
	accounts, err := azureclient.NewAccountsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, err
	}
	containers, err := azureclient.NewBlobContainersClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, err
	}
	return &Bootstrapper{groups: groups, accounts: accounts, containers: containers}, nil
}

// Run ensures the resource group, storage account and container exist, in
// that order. It stops at the first failure.
func (b *Bootstrapper) Run(ctx context.Context, opts Options) ([]Step, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var steps []Step

	rg, err := b.ensureResourceGroup(ctx, &opts)
	if err != nil {
		return steps, err
	}
	steps = append(steps, rg)

	account, err := b.ensureAccount(ctx, opts)
	if err != nil {
		return steps, err
	}
	steps = append(steps, account)

	container, err := b.ensureContainer(ctx, opts)
	if err != nil {
		return steps, err
	}
	steps = append(steps, container)

	return steps, nil
}

// ensureResourceGroup fills opts.Location from an existing group when unset.
func (b *Bootstrapper) ensureResourceGroup(ctx context.Context, opts *Options) (Step, error) {
	step := Step{Resource: "resource group", Name: opts.ResourceGroup}

	resp, err := b.groups.Get(ctx, opts.ResourceGroup, nil)
	if err == nil {
		step.ID = deref(resp.ID)
		if opts.Location == "" {
			opts.Location = deref(resp.Location)
		}
		logging.Debug("resource group exists", "name", opts.ResourceGroup)
		return step, nil
	}
	if !azureclient.IsNotFoundError(err) {
		return step, fmt.Errorf("failed to get resource group %s: %w", opts.ResourceGroup, err)
	}
	if opts.Location == "" {
		return step, fmt.Errorf("resource group %s does not exist and no location was given", opts.ResourceGroup)
	}

	logging.Info("creating resource group", "name", opts.ResourceGroup, "location", opts.Location)
	created, err := b.groups.CreateOrUpdate(ctx, opts.ResourceGroup, armresources.ResourceGroup{
		Location: to.Ptr(opts.Location),
		Tags:     tags(opts.Tags),
	}, nil)
	if err != nil {
		return step, fmt.Errorf("failed to create resource group %s: %w", opts.ResourceGroup, err)
	}
	step.ID = deref(created.ID)
	step.Created = true
	return step, nil
}

func (b *Bootstrapper) ensureAccount(ctx context.Context, opts Options) (Step, error) {
	step := Step{Resource: "storage account", Name: opts.StorageAccount}

	resp, err := b.accounts.GetProperties(ctx, opts.ResourceGroup, opts.StorageAccount, nil)
	if err == nil {
		step.ID = deref(resp.ID)
		logging.Debug("storage account exists", "name", opts.StorageAccount)
		return step, nil
	}
	if !azureclient.IsNotFoundError(err) {
		return step, fmt.Errorf("failed to get storage account %s: %w", opts.StorageAccount, err)
	}

	logging.Info("creating storage account", "name", opts.StorageAccount, "location", opts.Location)
	account, err := b.accounts.CreateAndWait(ctx, opts.ResourceGroup, opts.StorageAccount, armstorage.AccountCreateParameters{
		Kind:     to.Ptr(armstorage.KindStorageV2),
		Location: to.Ptr(opts.Location),
		SKU:      &armstorage.SKU{Name: to.Ptr(armstorage.SKUNameStandardLRS)},
		Tags:     tags(opts.Tags),
		Properties: &armstorage.AccountPropertiesCreateParameters{
			AllowBlobPublicAccess:  to.Ptr(false),
			EnableHTTPSTrafficOnly: to.Ptr(true),
			MinimumTLSVersion:      to.Ptr(armstorage.MinimumTLSVersionTLS12),
		},
	}, nil)
	if err != nil {
		return step, fmt.Errorf("failed to create storage account %s: %w", opts.StorageAccount, err)
	}
	step.ID = deref(account.ID)
	step.Created = true
	return step, nil
}

func (b *Bootstrapper) ensureContainer(ctx context.Context, opts Options) (Step, error) {
	step := Step{Resource: "blob container", Name: opts.Container}

	resp, err := b.containers.Get(ctx, opts.ResourceGroup, opts.StorageAccount, opts.Container, nil)
	if err == nil {
		step.ID = deref(resp.ID)
		logging.Debug("blob container exists", "name", opts.Container)
		return step, nil
	}
	if !azureclient.IsNotFoundError(err) {
		return step, fmt.Errorf("failed to get blob container %s: %w", opts.Container, err)
	}

	logging.Info("creating blob container", "name", opts.Container, "account", opts.StorageAccount)
	created, err := b.containers.Create(ctx, opts.ResourceGroup, opts.StorageAccount, opts.Container, armstorage.BlobContainer{
		ContainerProperties: &armstorage.ContainerProperties{
			PublicAccess: to.Ptr(armstorage.PublicAccessNone),
		},
	}, nil)
	if err != nil {
		return step, fmt.Errorf("failed to create blob container %s: %w", opts.Container, err)
	}
	step.ID = deref(created.ID)
	step.Created = true
	return step, nil
}

func tags(in map[string]string) map[string]*string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]*string, len(in))
	for k, v := range in {
		out[k] = to.Ptr(v)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
