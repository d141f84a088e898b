package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/picklr-io/adopt/internal/config"
	"github.com/picklr-io/adopt/internal/engine"
	"github.com/picklr-io/adopt/internal/ir"
	"github.com/picklr-io/adopt/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorize(t *testing.T) {
	// When noColor is false, colorize should wrap the text
	noColor = false
	assert.Contains(t, colorize(text.FgRed, "failed"), "failed")

	// When noColor is true, colorize should return the text unchanged
	noColor = true
	assert.Equal(t, "failed", colorize(text.FgRed, "failed"))
}

func TestRenderReport(t *testing.T) {
	noColor = true
	rg := &ir.Entry{Address: "azurerm_resource_group.main", Kind: ir.KindResourceGroup, Name: "rg-main"}
	acr := &ir.Entry{Address: "azurerm_container_registry.main", Kind: ir.KindContainerRegistry, Name: "acrmain"}
	law := &ir.Entry{Address: "azurerm_log_analytics_workspace.main", Kind: ir.KindLogAnalyticsWorkspace, Name: "law-main"}

	report := &engine.Report{DryRun: true}
	for _, r := range []ir.Result{
		{Entry: rg, Outcome: ir.Imported, ID: "/subscriptions/x/resourceGroups/rg-main", DryRun: true},
		{Entry: acr, Outcome: ir.ImportFailed, Err: errors.New("AuthorizationFailed")},
		{Entry: law, Outcome: ir.NotFoundUpstream},
	} {
		report.Results = append(report.Results, r)
		report.Summary.Add(r.Outcome)
	}

	var buf bytes.Buffer
	renderReport(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "azurerm_resource_group.main")
	assert.Contains(t, out, "WouldImport")
	assert.Contains(t, out, "AuthorizationFailed")
	assert.Contains(t, out, "left for terraform apply")
	assert.Contains(t, out, "0 already tracked, 1 would import, 1 not found, 1 failed")
}

func TestSampleBatchIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adopt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleBatch), 0644))

	env := map[string]string{
		config.EnvResourceGroup: "rg-main",
		config.EnvRegistry:      "acrmain",
		config.EnvWorkspace:     "law-main",
		config.EnvEnvironment:   "cae-main",
		config.EnvIdentity:      "id-main",
	}
	batch, err := config.LoadBatch(context.Background(), path, func(k string) string { return env[k] })
	require.NoError(t, err)
	require.NoError(t, batch.Validate())

	// The sample mirrors the built-in batch.
	cfg, err := config.Load(func(k string) string { return env[k] }, nil)
	require.NoError(t, err)
	def := config.DefaultBatch(cfg)
	require.Len(t, batch.Entries, len(def.Entries))
	for i := range def.Entries {
		assert.Equal(t, def.Entries[i].Address, batch.Entries[i].Address)
	}
}

func setTestEnv(t *testing.T) {
	t.Setenv(config.EnvSubscriptionID, "")
	t.Setenv(config.EnvResourceGroup, "rg-main")
	t.Setenv(config.EnvRegistry, "acrmain")
	t.Setenv(config.EnvWorkspace, "law-main")
	t.Setenv(config.EnvEnvironment, "cae-main")
	t.Setenv(config.EnvIdentity, "id-main")
	t.Setenv(config.EnvContainerApp, "")
	t.Setenv(state.EncryptionKeyEnvVar, "")
}

const testFixtures = `resources:
  - kind: resource_group
    name: rg-main
    id: /subscriptions/x/resourceGroups/rg-main
  - kind: container_registry
    name: acrmain
    id: /subscriptions/x/resourceGroups/rg-main/providers/Microsoft.ContainerRegistry/registries/acrmain
  - kind: log_analytics_workspace
    name: law-main
    error: "AuthorizationFailed: the client does not have authorization"
`

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestRunCommand_NullProvider(t *testing.T) {
	setTestEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	fixtures := filepath.Join(dir, "fixtures.yaml")
	require.NoError(t, os.WriteFile(fixtures, []byte(testFixtures), 0644))
	ledger := filepath.Join(dir, "state.json")

	args := []string{"run", "--no-color",
		"--provider", "null", "--lookup-fixtures", fixtures,
		"--backend", "local", "--backend-config", "path=" + ledger,
		"--lookup-timeout", "5s",
	}

	// The workspace lookup fails; everything else still runs.
	err := execute(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 6 resources failed")
	assert.Contains(t, err.Error(), "AuthorizationFailed")
	var lookupErr *engine.LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, config.AddrWorkspace, lookupErr.Address)

	addrs, err := state.NewLocalBackend(ledger).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{config.AddrResourceGroup, config.AddrRegistry}, addrs)

	// A second run imports nothing new.
	require.Error(t, execute(t, args...))
	addrs, err = state.NewLocalBackend(ledger).List(context.Background())
	require.NoError(t, err)
	assert.Len(t, addrs, 2)

	_, err = os.Stat(ledger + ".lock")
	assert.True(t, os.IsNotExist(err), "lock must be released")
}

func TestPlanCommand_DoesNotImport(t *testing.T) {
	setTestEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	fixtures := filepath.Join(dir, "fixtures.yaml")
	require.NoError(t, os.WriteFile(fixtures, []byte("resources:\n  - kind: resource_group\n    name: rg-main\n    id: /rg\n"), 0644))
	ledger := filepath.Join(dir, "state.json")

	err := execute(t, "plan", "--no-color",
		"--provider", "null", "--lookup-fixtures", fixtures,
		"--backend", "local", "--backend-config", "path="+ledger,
		"--lookup-timeout", "5s",
	)
	require.NoError(t, err)

	_, err = os.Stat(ledger)
	assert.True(t, os.IsNotExist(err), "plan must not write state")
}

func TestRunCommand_MissingConfiguration(t *testing.T) {
	setTestEnv(t)
	t.Setenv(config.EnvRegistry, "")
	dir := t.TempDir()
	t.Chdir(dir)
	ledger := filepath.Join(dir, "state.json")

	err := execute(t, "run", "--no-color",
		"--provider", "null", "--lookup-fixtures", "",
		"--backend", "local", "--backend-config", "path="+ledger,
		"--acr-name", "",
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfigurationMissing))
	assert.Contains(t, err.Error(), config.EnvRegistry)

	_, statErr := os.Stat(ledger + ".lock")
	assert.True(t, os.IsNotExist(statErr), "no lock may be taken")
}

func TestRunCommand_LookupTimeout(t *testing.T) {
	setTestEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	fixtures := filepath.Join(dir, "fixtures.yaml")
	require.NoError(t, os.WriteFile(fixtures, []byte("resources:\n  - kind: resource_group\n    name: rg-main\n    id: /rg\n    delay: 1h\n"), 0644))
	ledger := filepath.Join(dir, "state.json")

	start := time.Now()
	err := execute(t, "run", "--no-color",
		"--provider", "null", "--lookup-fixtures", fixtures,
		"--backend", "local", "--backend-config", "path="+ledger,
		"--lookup-timeout", "50ms",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 6 resources failed")
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.True(t, errors.Is(err, engine.ErrLookupTimeout))

	addrs, err := state.NewLocalBackend(ledger).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, addrs)
}

func TestInitCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	initForce = false

	require.NoError(t, execute(t, "init"))
	data, err := os.ReadFile("adopt.yaml")
	require.NoError(t, err)
	assert.Equal(t, sampleBatch, string(data))

	err = execute(t, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestStateUnlockRequiresForce(t *testing.T) {
	forceUnlock = false
	err := runStateUnlock(stateUnlockCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
}
