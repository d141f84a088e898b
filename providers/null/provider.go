package null

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/picklr-io/adopt/internal/ir"
	"gopkg.in/yaml.v3"
)

// Fixture is a canned lookup answer. It matches an entry by address, or by
// kind and name when no address is given.
type Fixture struct {
	Address string        `yaml:"address,omitempty"`
	Kind    ir.Kind       `yaml:"kind,omitempty"`
	Name    string        `yaml:"name,omitempty"`
	ID      string        `yaml:"id,omitempty"`
	Error   string        `yaml:"error,omitempty"`
	Delay   time.Duration `yaml:"delay,omitempty"`
}

type fixtureFile struct {
	Resources []Fixture `yaml:"resources"`
}

// Provider answers lookups from fixtures without calling any API. Entries
// without a fixture do not exist.
type Provider struct {
	fixtures []Fixture
}

func New(fixtures ...Fixture) *Provider {
	return &Provider{fixtures: fixtures}
}

// Load reads fixtures from a YAML file.
func Load(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup fixtures: %w", err)
	}

	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lookup fixtures %s: %w", path, err)
	}
	for i, fx := range f.Resources {
		if fx.Address == "" && (fx.Kind == "" || fx.Name == "") {
			return nil, fmt.Errorf("fixture #%d needs an address or a kind and name", i+1)
		}
		if fx.ID == "" && fx.Error == "" {
			return nil, fmt.Errorf("fixture #%d needs an id or an error", i+1)
		}
		if fx.Kind != "" {
			k, err := ir.ParseKind(string(fx.Kind))
			if err != nil {
				return nil, fmt.Errorf("fixture #%d: %w", i+1, err)
			}
			f.Resources[i].Kind = k
		}
	}
	return New(f.Resources...), nil
}

func (p *Provider) Kinds() []ir.Kind {
	return ir.Kinds()
}

func (p *Provider) Lookup(ctx context.Context, entry *ir.Entry) (string, bool, error) {
	fx, ok := p.match(entry)
	if !ok {
		return "", false, nil
	}

	if fx.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-time.After(fx.Delay):
		}
	}
	if fx.Error != "" {
		return "", false, errors.New(fx.Error)
	}
	return fx.ID, true, nil
}

func (p *Provider) match(entry *ir.Entry) (Fixture, bool) {
	for _, fx := range p.fixtures {
		if fx.Address != "" {
			if fx.Address == entry.Address {
				return fx, true
			}
			continue
		}
		if fx.Kind == entry.Kind && strings.EqualFold(fx.Name, entry.Name) {
			return fx, true
		}
	}
	return Fixture{}, false
}
