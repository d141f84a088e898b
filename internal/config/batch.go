package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/picklr-io/adopt/internal/eval"
	"github.com/picklr-io/adopt/internal/ir"
	"gopkg.in/yaml.v3"
)

// BatchFiles are looked up in this order when no batch file is given.
var BatchFiles = []string{"adopt.yaml", "adopt.yml", "adopt.pkl"}

// Terraform addresses of the built-in batch.
const (
	AddrResourceGroup = "azurerm_resource_group.main"
	AddrRegistry      = "azurerm_container_registry.main"
	AddrWorkspace     = "azurerm_log_analytics_workspace.main"
	AddrEnvironment   = "azurerm_container_app_environment.main"
	AddrIdentity      = "azurerm_user_assigned_identity.main"
	AddrAcrPull       = "azurerm_role_assignment.acr_pull"
	AddrContainerApp  = "azurerm_container_app.main"
)

// DefaultBatch is the built-in batch for a Container Apps deployment. Order
// matters: parents come before the resources that live in them.
func DefaultBatch(cfg *Config) *ir.Batch {
	rg := cfg.ResourceGroup
	registry := &ir.Entry{Address: AddrRegistry, Kind: ir.KindContainerRegistry, Name: cfg.RegistryName, ResourceGroup: rg}
	identity := &ir.Entry{Address: AddrIdentity, Kind: ir.KindUserAssignedIdentity, Name: cfg.IdentityName, ResourceGroup: rg}

	role := cfg.AcrPullRole
	if role == "" {
		role = "AcrPull"
	}

	b := &ir.Batch{Entries: []*ir.Entry{
		{Address: AddrResourceGroup, Kind: ir.KindResourceGroup, Name: rg},
		registry,
		{Address: AddrWorkspace, Kind: ir.KindLogAnalyticsWorkspace, Name: cfg.WorkspaceName, ResourceGroup: rg},
		{Address: AddrEnvironment, Kind: ir.KindContainerAppEnvironment, Name: cfg.EnvironmentName, ResourceGroup: rg},
		identity,
		{Address: AddrAcrPull, Kind: ir.KindRoleAssignment, Scope: registry, Principal: identity, Role: role},
	}}
	if cfg.ContainerAppName != "" {
		b.Entries = append(b.Entries, &ir.Entry{Address: AddrContainerApp, Kind: ir.KindContainerApp, Name: cfg.ContainerAppName, ResourceGroup: rg})
	}
	return b
}

// FindBatchFile returns the first batch file present in dir, or "".
func FindBatchFile(dir string) string {
	for _, name := range BatchFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadBatch reads a YAML or PKL batch file and expands ${VAR} references in
// its values through getenv. Unset variables are reported as a *MissingError.
func LoadBatch(ctx context.Context, path string, getenv func(string) string) (*ir.Batch, error) {
	var (
		batch *ir.Batch
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		batch, err = loadYAML(path)
	case ".pkl":
		batch, err = eval.NewEvaluator(filepath.Dir(path)).LoadBatch(ctx, filepath.Base(path), nil)
	default:
		return nil, fmt.Errorf("unsupported batch file %s: use .yaml, .yml or .pkl", path)
	}
	if err != nil {
		return nil, err
	}

	if err := Expand(batch, getenv); err != nil {
		return nil, err
	}
	return batch, nil
}

func loadYAML(path string) (*ir.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var batch ir.Batch
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&batch); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &batch, nil
}

// Expand replaces $VAR and ${VAR} in every string field of the batch.
func Expand(batch *ir.Batch, getenv func(string) string) error {
	missing := map[string]bool{}
	mapping := func(name string) string {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			missing[name] = true
		}
		return v
	}

	seen := map[*ir.Entry]bool{}
	var expand func(e *ir.Entry)
	expand = func(e *ir.Entry) {
		if e == nil || seen[e] {
			return
		}
		seen[e] = true
		e.Address = os.Expand(e.Address, mapping)
		e.Name = os.Expand(e.Name, mapping)
		e.ResourceGroup = os.Expand(e.ResourceGroup, mapping)
		e.Role = os.Expand(e.Role, mapping)
		expand(e.Scope)
		expand(e.Principal)
	}
	for _, e := range batch.Entries {
		expand(e)
	}

	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return &MissingError{Keys: keys}
	}
	return nil
}
