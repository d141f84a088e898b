package config

import (
	"errors"
	"fmt"
	"strings"
)

// Environment keys.
const (
	EnvSubscriptionID = "ARM_SUBSCRIPTION_ID"
	EnvTenantID       = "ARM_TENANT_ID"
	EnvResourceGroup  = "RESOURCE_GROUP_NAME"
	EnvRegistry       = "ACR_NAME"
	EnvWorkspace      = "LOG_ANALYTICS_WORKSPACE_NAME"
	EnvEnvironment    = "CONTAINER_APP_ENVIRONMENT_NAME"
	EnvIdentity       = "MANAGED_IDENTITY_NAME"
	EnvContainerApp   = "CONTAINER_APP_NAME"
	EnvLocation       = "AZURE_LOCATION"
	EnvStateAccount   = "TFSTATE_STORAGE_ACCOUNT"
	EnvStateGroup     = "TFSTATE_RESOURCE_GROUP"
	EnvStateContainer = "TFSTATE_CONTAINER"
	EnvAcrPullRole    = "ACR_PULL_ROLE"
)

// ErrConfigurationMissing is matched by every *MissingError.
var ErrConfigurationMissing = errors.New("configuration missing")

// MissingError names every required value that was not set.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfigurationMissing, strings.Join(e.Keys, ", "))
}

func (e *MissingError) Is(target error) bool {
	return target == ErrConfigurationMissing
}

// Config is the resolved environment of one run.
type Config struct {
	SubscriptionID   string
	TenantID         string
	ResourceGroup    string
	RegistryName     string
	WorkspaceName    string
	EnvironmentName  string
	IdentityName     string
	ContainerAppName string // optional; the app entry is skipped when empty
	AcrPullRole      string
	Location         string

	StateAccount   string
	StateGroup     string
	StateContainer string
}

// DefaultRequired are the keys the built-in batch needs.
var DefaultRequired = []string{
	EnvSubscriptionID,
	EnvResourceGroup,
	EnvRegistry,
	EnvWorkspace,
	EnvEnvironment,
	EnvIdentity,
}

// Load reads configuration through getenv. Every key in required that is
// empty is reported in a single *MissingError.
func Load(getenv func(string) string, required []string) (*Config, error) {
	get := func(key string) string {
		return strings.TrimSpace(getenv(key))
	}

	var missing []string
	for _, key := range required {
		if get(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingError{Keys: missing}
	}

	return &Config{
		SubscriptionID:   get(EnvSubscriptionID),
		TenantID:         get(EnvTenantID),
		ResourceGroup:    get(EnvResourceGroup),
		RegistryName:     get(EnvRegistry),
		WorkspaceName:    get(EnvWorkspace),
		EnvironmentName:  get(EnvEnvironment),
		IdentityName:     get(EnvIdentity),
		ContainerAppName: get(EnvContainerApp),
		AcrPullRole:      get(EnvAcrPullRole),
		Location:         get(EnvLocation),
		StateAccount:     get(EnvStateAccount),
		StateGroup:       get(EnvStateGroup),
		StateContainer:   get(EnvStateContainer),
	}, nil
}

// WithOverrides returns a getenv that prefers non-empty override values.
func WithOverrides(overrides map[string]string, getenv func(string) string) func(string) string {
	return func(key string) string {
		if v := overrides[key]; v != "" {
			return v
		}
		return getenv(key)
	}
}
