package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/lease"
	"github.com/google/uuid"
	"github.com/picklr-io/adopt/internal/logging"
)

var errBlobNotFound = errors.New("blob not found")

// blobStorage is the minimal blob surface the azurerm backend and lease lock use.
type blobStorage interface {
	Download(ctx context.Context, name string) ([]byte, error)
	Upload(ctx context.Context, name string, data []byte) error
	EnsureExists(ctx context.Context, name string) error
	AcquireLease(ctx context.Context, name, leaseID string) error
	ReleaseLease(ctx context.Context, name, leaseID string) error
	BreakLease(ctx context.Context, name string) error
}

// azureBlobs implements blobStorage for one container.
type azureBlobs struct {
	client    *azblob.Client
	container string
}

var _ blobStorage = &azureBlobs{}

func newAzureBlobs(account, container string, cred azcore.TokenCredential) (*azureBlobs, error) {
	if account == "" {
		return nil, fmt.Errorf("azurerm backend requires 'storage_account' configuration")
	}
	if container == "" {
		container = "tfstate"
	}
	if cred == nil {
		return nil, fmt.Errorf("azurerm backend requires Azure credentials")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client for %s: %w", serviceURL, err)
	}
	return &azureBlobs{client: client, container: container}, nil
}

func (a *azureBlobs) Download(ctx context.Context, name string) ([]byte, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, errBlobNotFound
		}
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (a *azureBlobs) Upload(ctx context.Context, name string, data []byte) error {
	_, err := a.client.UploadBuffer(ctx, a.container, name, data, nil)
	return err
}

func (a *azureBlobs) EnsureExists(ctx context.Context, name string) error {
	_, err := a.client.UploadBuffer(ctx, a.container, name, []byte{}, &azblob.UploadBufferOptions{
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
		},
	})
	if err != nil && bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet, bloberror.LeaseIDMissing) {
		return nil
	}
	return err
}

func (a *azureBlobs) leaseClient(name, leaseID string) (*lease.BlobClient, error) {
	blobClient := a.client.ServiceClient().NewContainerClient(a.container).NewBlobClient(name)
	opts := &lease.BlobClientOptions{}
	if leaseID != "" {
		opts.LeaseID = to.Ptr(leaseID)
	}
	return lease.NewBlobClient(blobClient, opts)
}

func (a *azureBlobs) AcquireLease(ctx context.Context, name, leaseID string) error {
	lc, err := a.leaseClient(name, leaseID)
	if err != nil {
		return err
	}
	// -1 is an infinite lease; BreakLease is the recovery path.
	if _, err := lc.AcquireLease(ctx, -1, nil); err != nil {
		if bloberror.HasCode(err, bloberror.LeaseAlreadyPresent) {
			return ErrLocked
		}
		return err
	}
	return nil
}

func (a *azureBlobs) ReleaseLease(ctx context.Context, name, leaseID string) error {
	lc, err := a.leaseClient(name, leaseID)
	if err != nil {
		return err
	}
	_, err = lc.ReleaseLease(ctx, nil)
	return err
}

func (a *azureBlobs) BreakLease(ctx context.Context, name string) error {
	lc, err := a.leaseClient(name, "")
	if err != nil {
		return err
	}
	_, err = lc.BreakLease(ctx, &lease.BlobBreakOptions{BreakPeriod: to.Ptr(int32(0))})
	if err != nil && bloberror.HasCode(err, bloberror.LeaseNotPresentWithLeaseOperation) {
		return nil
	}
	return err
}

// leaseLock is a Locker holding an infinite lease on a lock blob.
type leaseLock struct {
	blobs   blobStorage
	name    string
	leaseID string
}

func newLeaseLock(blobs blobStorage, name string) *leaseLock {
	return &leaseLock{blobs: blobs, name: name}
}

func (l *leaseLock) Lock(ctx context.Context) error {
	if err := l.blobs.EnsureExists(ctx, l.name); err != nil {
		return fmt.Errorf("failed to create lock blob %s: %w", l.name, err)
	}

	id := uuid.NewString()
	if err := l.blobs.AcquireLease(ctx, l.name, id); err != nil {
		if errors.Is(err, ErrLocked) {
			return fmt.Errorf("%w (lease on blob %s). Run 'adopt state unlock --force' if this is an error", ErrLocked, l.name)
		}
		return fmt.Errorf("failed to acquire lease on %s: %w", l.name, err)
	}
	l.leaseID = id

	logging.Debug("acquired blob lease", "blob", l.name, "lease", id, "pid", os.Getpid())
	return nil
}

func (l *leaseLock) Unlock(ctx context.Context) error {
	if l.leaseID == "" {
		return nil
	}
	if err := l.blobs.ReleaseLease(ctx, l.name, l.leaseID); err != nil {
		return fmt.Errorf("failed to release lease on %s: %w", l.name, err)
	}
	l.leaseID = ""
	return nil
}

// ForceUnlock breaks any lease on the lock blob.
func (l *leaseLock) ForceUnlock(ctx context.Context) error {
	if err := l.blobs.BreakLease(ctx, l.name); err != nil {
		return fmt.Errorf("failed to break lease on %s: %w", l.name, err)
	}
	l.leaseID = ""
	return nil
}

// AzureRMBackend keeps the ledger in a blob and locks with a lease on a sibling blob.
type AzureRMBackend struct {
	*leaseLock
	blobs blobStorage
	key   string
}

func newAzureRMBackend(cfg AzureRMConfig, cred azcore.TokenCredential) (*AzureRMBackend, error) {
	blobs, err := newAzureBlobs(cfg.StorageAccount, cfg.Container, cred)
	if err != nil {
		return nil, err
	}
	return newAzureRMBackendWithBlobs(blobs, cfg.Key), nil
}

func newAzureRMBackendWithBlobs(blobs blobStorage, key string) *AzureRMBackend {
	if key == "" {
		key = "adopt/state.json"
	}
	return &AzureRMBackend{
		leaseLock: newLeaseLock(blobs, key+".lock"),
		blobs:     blobs,
		key:       key,
	}
}

func (b *AzureRMBackend) read(ctx context.Context) (*Ledger, error) {
	data, err := b.blobs.Download(ctx, b.key)
	if errors.Is(err, errBlobNotFound) {
		return NewLedger(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger blob %s: %w", b.key, err)
	}

	l, err := DecodeLedger(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger blob %s: %w", b.key, err)
	}
	return l, nil
}

func (b *AzureRMBackend) Contains(ctx context.Context, address string) (bool, error) {
	l, err := b.read(ctx)
	if err != nil {
		return false, err
	}
	return l.Contains(address), nil
}

func (b *AzureRMBackend) List(ctx context.Context) ([]string, error) {
	l, err := b.read(ctx)
	if err != nil {
		return nil, err
	}
	return l.Addresses(), nil
}

func (b *AzureRMBackend) Import(ctx context.Context, address, id string) error {
	l, err := b.read(ctx)
	if err != nil {
		return err
	}
	if err := l.Append(address, id); err != nil {
		return err
	}

	data, err := EncodeLedger(l)
	if err != nil {
		return err
	}
	if err := b.blobs.Upload(ctx, b.key, data); err != nil {
		return fmt.Errorf("failed to write ledger blob %s: %w", b.key, err)
	}
	return nil
}
