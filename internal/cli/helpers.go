package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/picklr-io/adopt/internal/azureclient"
	"github.com/picklr-io/adopt/internal/config"
	"github.com/picklr-io/adopt/internal/engine"
	"github.com/picklr-io/adopt/internal/ir"
	"github.com/picklr-io/adopt/internal/logging"
	"github.com/picklr-io/adopt/internal/provider"
	"github.com/picklr-io/adopt/internal/state"
	"github.com/spf13/cobra"
)

var (
	batchFile     string
	providerName  string
	fixturesPath  string
	backendType   string
	backendConfig map[string]string
	lookupTimeout time.Duration
	lockTimeout   time.Duration
)

// configFlags maps command-line overrides to configuration keys.
var configFlags = []struct {
	name  string
	key   string
	usage string
}{
	{"subscription", config.EnvSubscriptionID, "Azure subscription ID"},
	{"tenant", config.EnvTenantID, "Azure tenant ID"},
	{"resource-group", config.EnvResourceGroup, "Resource group name"},
	{"acr-name", config.EnvRegistry, "Container registry name"},
	{"workspace-name", config.EnvWorkspace, "Log Analytics workspace name"},
	{"environment-name", config.EnvEnvironment, "Container Apps environment name"},
	{"identity-name", config.EnvIdentity, "User-assigned managed identity name"},
	{"container-app-name", config.EnvContainerApp, "Container app name (optional)"},
}

var configValues = make(map[string]*string, len(configFlags))

func init() {
	for _, f := range configFlags {
		configValues[f.key] = new(string)
	}
}

// addConfigFlags registers the configuration override flags on cmd.
func addConfigFlags(cmd *cobra.Command) {
	for _, f := range configFlags {
		cmd.Flags().StringVar(configValues[f.key], f.name, "", f.usage+" (env "+f.key+")")
	}
}

// addReconcileFlags registers the flags shared by run and plan.
func addReconcileFlags(cmd *cobra.Command) {
	addConfigFlags(cmd)
	addBackendFlags(cmd)

	fs := cmd.Flags()
	fs.StringVarP(&batchFile, "file", "f", os.Getenv("ADOPT_BATCH_FILE"), "Batch file (.yaml or .pkl); defaults to adopt.yaml/adopt.pkl, then the built-in batch")
	fs.StringVar(&providerName, "provider", envOr("ADOPT_PROVIDER", "azure"), "Lookup provider: azure or null")
	fs.StringVar(&fixturesPath, "lookup-fixtures", "", "YAML fixtures answering lookups for the null provider")
	fs.DurationVar(&lookupTimeout, "lookup-timeout", engine.DefaultLookupTimeout, "Maximum time for a single lookup")
	fs.DurationVar(&lockTimeout, "lock-timeout", 0, "How long to wait for a held state lock")
}

func addBackendFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&backendType, "backend", envOr("ADOPT_BACKEND", "terraform"), "State backend: terraform, local or azurerm")
	fs.StringToStringVar(&backendConfig, "backend-config", nil, "Backend options, e.g. working_dir=infra,var_files=prod.tfvars")
}

func getenv() func(string) string {
	overrides := make(map[string]string, len(configValues))
	for key, v := range configValues {
		overrides[key] = *v
	}
	return config.WithOverrides(overrides, os.Getenv)
}

// session is everything a reconciliation run needs, resolved up front so
// missing configuration fails before any lock or lookup.
type session struct {
	cfg      *config.Config
	batch    *ir.Batch
	registry *provider.Registry
	backend  state.Backend
}

func openSession(ctx context.Context) (*session, error) {
	env := getenv()

	path := batchFile
	if path == "" {
		path = config.FindBatchFile(".")
	}

	var required []string
	if path == "" {
		required = append(required, config.DefaultRequired...)
	}
	if providerName == "azure" && path != "" {
		required = append(required, config.EnvSubscriptionID)
	}
	if providerName != "azure" {
		required = without(required, config.EnvSubscriptionID)
	}

	cfg, err := config.Load(env, required)
	if err != nil {
		return nil, err
	}

	var batch *ir.Batch
	if path != "" {
		logging.Info("loading batch file", "path", path)
		batch, err = config.LoadBatch(ctx, path, env)
		if err != nil {
			return nil, err
		}
	} else {
		batch = config.DefaultBatch(cfg)
	}
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch: %w", err)
	}

	cred, err := credentialFor(cfg, providerName == "azure")
	if err != nil {
		return nil, err
	}

	registry := provider.NewRegistry()
	if err := registry.LoadProvider(providerName, provider.Options{
		SubscriptionID: cfg.SubscriptionID,
		Credential:     cred,
		FixturesPath:   fixturesPath,
	}); err != nil {
		return nil, fmt.Errorf("failed to load provider %s: %w", providerName, err)
	}

	backend, err := openBackend(ctx, cfg, cred)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, batch: batch, registry: registry, backend: backend}, nil
}

// openBackend builds the state backend. cred may be nil; one is created when
// the backend needs Azure Storage.
func openBackend(ctx context.Context, cfg *config.Config, cred azcore.TokenCredential) (state.Backend, error) {
	if cred == nil && needsStorageCredential() {
		var err error
		cred, err = credentialFor(cfg, true)
		if err != nil {
			return nil, err
		}
	}

	b, err := state.NewBackend(ctx, &state.BackendConfig{Type: backendType, Config: backendConfig}, cred)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", backendType, err)
	}
	return b, nil
}

func needsStorageCredential() bool {
	return backendType == "azurerm" || backendConfig["lock_storage_account"] != ""
}

func credentialFor(cfg *config.Config, needed bool) (azcore.TokenCredential, error) {
	if !needed && !needsStorageCredential() {
		return nil, nil
	}
	return azureclient.NewCredential(cfg.TenantID)
}

func without(keys []string, drop string) []string {
	out := keys[:0:0]
	for _, k := range keys {
		if k != drop {
			out = append(out, k)
		}
	}
	return out
}
