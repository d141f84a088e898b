package state

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

var (
	// ErrAlreadyTracked is returned by Import when the address is already in the store.
	ErrAlreadyTracked = errors.New("address already tracked")

	// ErrLocked is returned by Lock when another process holds the lock.
	ErrLocked = errors.New("state is locked by another process")
)

// Store is the set of addresses under management. It only grows: nothing in
// this package removes an entry.
type Store interface {
	// Contains reports whether the address is tracked.
	Contains(ctx context.Context, address string) (bool, error)

	// List returns every tracked address in store order.
	List(ctx context.Context) ([]string, error)

	// Import records the backing identifier for an untracked address.
	Import(ctx context.Context, address, id string) error
}

// Locker serializes whole reconciliation batches against one store.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// Backend is a store together with the lock that guards it.
type Backend interface {
	Store
	Locker
}

// BackendConfig holds configuration for a state backend.
type BackendConfig struct {
	Type   string            `json:"type" yaml:"type"` // "terraform", "local", "azurerm"
	Config map[string]string `json:"config" yaml:"config"`
}

// AzureRMConfig holds configuration for the blob ledger backend.
type AzureRMConfig struct {
	StorageAccount string `json:"storage_account"`
	Container      string `json:"container"`
	Key            string `json:"key"`
}

// TerraformConfig holds configuration for the terraform CLI backend.
type TerraformConfig struct {
	WorkingDir string   `json:"working_dir"`
	ExecPath   string   `json:"terraform_bin"`
	VarFiles   []string `json:"var_files"`
	Init       bool     `json:"init"`
}

type backend struct {
	Store
	Locker
}

// NewBackend creates a state backend from configuration. cred is only used by
// backends that talk to Azure Storage and may be nil otherwise.
func NewBackend(ctx context.Context, cfg *BackendConfig, cred azcore.TokenCredential) (Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backend configuration is nil")
	}
	opts := cfg.Config
	if opts == nil {
		opts = map[string]string{}
	}

	switch cfg.Type {
	case "terraform", "":
		store, err := newTerraformStore(ctx, parseTerraformConfig(opts))
		if err != nil {
			return nil, err
		}
		locker, err := newBatchLocker(opts, store.workingDir, cred)
		if err != nil {
			return nil, err
		}
		return &backend{Store: store, Locker: locker}, nil
	case "local":
		path := opts["path"]
		if path == "" {
			path = filepath.Join(".adopt", "state.json")
		}
		return NewLocalBackend(path), nil
	case "azurerm":
		return newAzureRMBackend(AzureRMConfig{
			StorageAccount: opts["storage_account"],
			Container:      opts["container"],
			Key:            opts["key"],
		}, cred)
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}

func parseTerraformConfig(opts map[string]string) TerraformConfig {
	cfg := TerraformConfig{
		WorkingDir: opts["working_dir"],
		ExecPath:   opts["terraform_bin"],
		Init:       opts["init"] == "true",
	}
	for _, f := range strings.Split(opts["var_files"], ",") {
		if f = strings.TrimSpace(f); f != "" {
			cfg.VarFiles = append(cfg.VarFiles, f)
		}
	}
	if cfg.WorkingDir == "" {
		cfg.WorkingDir = "."
	}
	return cfg
}

// newBatchLocker picks a blob lease when a lock account is configured and a
// lock file next to the terraform working directory otherwise.
func newBatchLocker(opts map[string]string, workingDir string, cred azcore.TokenCredential) (Locker, error) {
	account := opts["lock_storage_account"]
	if account == "" {
		return NewFileLock(filepath.Join(workingDir, ".terraform", "adopt.lock")), nil
	}

	blobs, err := newAzureBlobs(account, opts["lock_container"], cred)
	if err != nil {
		return nil, err
	}
	name := opts["lock_blob"]
	if name == "" {
		name = "adopt.lock"
	}
	return newLeaseLock(blobs, name), nil
}

// ForceUnlocker is implemented by locks that can be released by a process
// other than the holder.
type ForceUnlocker interface {
	ForceUnlock(ctx context.Context) error
}

func (b *backend) ForceUnlock(ctx context.Context) error {
	f, ok := b.Locker.(ForceUnlocker)
	if !ok {
		return fmt.Errorf("lock does not support force unlock")
	}
	return f.ForceUnlock(ctx)
}
