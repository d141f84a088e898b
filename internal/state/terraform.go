package state

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/hashicorp/terraform-exec/tfexec"
	tfjson "github.com/hashicorp/terraform-json"
	"github.com/picklr-io/adopt/internal/logging"
)

// terraformRunner is the subset of *tfexec.Terraform the store needs.
type terraformRunner interface {
	Init(ctx context.Context, opts ...tfexec.InitOption) error
	Show(ctx context.Context, opts ...tfexec.ShowOption) (*tfjson.State, error)
	Import(ctx context.Context, address, id string, opts ...tfexec.ImportOption) error
}

// TerraformStore treats a Terraform working directory's state as the store.
// Membership comes from `terraform show -json`, imports run `terraform import`.
type TerraformStore struct {
	tf         terraformRunner
	workingDir string
	importOpts []tfexec.ImportOption
	init       bool

	mu      sync.Mutex
	loaded  bool
	tracked map[string]bool
	order   []string
}

func newTerraformStore(ctx context.Context, cfg TerraformConfig) (*TerraformStore, error) {
	execPath := cfg.ExecPath
	if execPath == "" {
		p, err := exec.LookPath("terraform")
		if err != nil {
			return nil, fmt.Errorf("terraform binary not found in PATH (set --terraform-bin): %w", err)
		}
		execPath = p
	}

	tf, err := tfexec.NewTerraform(cfg.WorkingDir, execPath)
	if err != nil {
		return nil, fmt.Errorf("failed to set up terraform in %s: %w", cfg.WorkingDir, err)
	}

	var opts []tfexec.ImportOption
	for _, f := range cfg.VarFiles {
		opts = append(opts, tfexec.VarFile(f))
	}

	return &TerraformStore{
		tf:         tf,
		workingDir: cfg.WorkingDir,
		importOpts: opts,
		init:       cfg.Init,
	}, nil
}

func (s *TerraformStore) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	if s.init {
		logging.Info("running terraform init", "dir", s.workingDir)
		if err := s.tf.Init(ctx); err != nil {
			return fmt.Errorf("terraform init failed: %w", err)
		}
		s.init = false
	}

	st, err := s.tf.Show(ctx)
	if err != nil {
		return fmt.Errorf("failed to read terraform state: %w", err)
	}

	s.tracked = make(map[string]bool)
	s.order = nil
	if st != nil && st.Values != nil {
		s.collect(st.Values.RootModule)
	}
	s.loaded = true
	logging.Debug("loaded terraform state", "resources", len(s.order))
	return nil
}

func (s *TerraformStore) collect(m *tfjson.StateModule) {
	if m == nil {
		return
	}
	for _, r := range m.Resources {
		if r.Mode == tfjson.DataResourceMode || s.tracked[r.Address] {
			continue
		}
		s.tracked[r.Address] = true
		s.order = append(s.order, r.Address)
	}
	for _, child := range m.ChildModules {
		s.collect(child)
	}
}

func (s *TerraformStore) Contains(ctx context.Context, address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return false, err
	}
	return s.tracked[address], nil
}

func (s *TerraformStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return append([]string(nil), s.order...), nil
}

func (s *TerraformStore) Import(ctx context.Context, address, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return err
	}
	if s.tracked[address] {
		return fmt.Errorf("%s: %w", address, ErrAlreadyTracked)
	}

	if err := s.tf.Import(ctx, address, id, s.importOpts...); err != nil {
		// The state may or may not have been written; reload on next use.
		s.loaded = false
		return fmt.Errorf("terraform import %s failed: %w", address, err)
	}

	s.tracked[address] = true
	s.order = append(s.order, address)
	return nil
}
