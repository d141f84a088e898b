package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/picklr-io/adopt/internal/ir"
	"github.com/picklr-io/adopt/providers/azure"
	"github.com/picklr-io/adopt/providers/null"
)

// LookupProvider finds backing resources for the kinds it supports.
type LookupProvider interface {
	Kinds() []ir.Kind
	Lookup(ctx context.Context, entry *ir.Entry) (id string, found bool, err error)
}

// Options configures built-in providers.
type Options struct {
	SubscriptionID string
	Credential     azcore.TokenCredential
	FixturesPath   string // null provider only; empty means nothing exists
}

// Registry maps kinds to the provider that looks them up.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]LookupProvider
	byKind    map[ir.Kind]string
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]LookupProvider),
		byKind:    make(map[ir.Kind]string),
	}
}

// Register adds a provider under name. Its kinds are routed to it, replacing
// any provider registered earlier for the same kind.
func (r *Registry) Register(name string, p LookupProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[name] = p
	for _, k := range p.Kinds() {
		r.byKind[k] = name
	}
}

// LoadProvider initializes and registers a built-in provider.
func (r *Registry) LoadProvider(name string, opts Options) error {
	r.mu.RLock()
	_, exists := r.providers[name]
	r.mu.RUnlock()
	if exists {
		return nil
	}

	var p LookupProvider
	switch name {
	case "azure":
		az, err := azure.New(opts.SubscriptionID, opts.Credential, nil)
		if err != nil {
			return err
		}
		p = az
	case "null":
		if opts.FixturesPath == "" {
			p = null.New()
			break
		}
		n, err := null.Load(opts.FixturesPath)
		if err != nil {
			return err
		}
		p = n
	default:
		return fmt.Errorf("unknown provider: %s", name)
	}

	r.Register(name, p)
	return nil
}

// Get returns a registered provider.
func (r *Registry) Get(name string) (LookupProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not loaded: %s", name)
	}
	return p, nil
}

// Lookup routes the entry to the provider registered for its kind.
func (r *Registry) Lookup(ctx context.Context, entry *ir.Entry) (string, bool, error) {
	r.mu.RLock()
	name, ok := r.byKind[entry.Kind]
	p := r.providers[name]
	r.mu.RUnlock()

	if !ok {
		return "", false, fmt.Errorf("no provider loaded for kind %q", entry.Kind)
	}
	return p.Lookup(ctx, entry)
}
