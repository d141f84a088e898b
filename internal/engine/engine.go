package engine

import (
	"context"
	"time"

	"github.com/picklr-io/adopt/internal/ir"
	"github.com/picklr-io/adopt/internal/state"
)

// LookupFunc queries the backing system for an identifier. found == false with
// a nil error is the only way to report that the resource does not exist.
type LookupFunc func(ctx context.Context) (id string, found bool, err error)

// Resolver looks up entries by kind.
type Resolver interface {
	Lookup(ctx context.Context, entry *ir.Entry) (id string, found bool, err error)
}

// Event is a progress notification emitted while a batch runs.
type Event struct {
	Entry    *ir.Entry
	Status   string // "started", "completed"
	Result   *ir.Result
	Duration time.Duration
}

// EventCallback is called for each event if set.
type EventCallback func(event Event)

// Engine reconciles entries against a state store.
type Engine struct {
	store    state.Store
	locker   state.Locker
	resolver Resolver

	LookupTimeout time.Duration // per lookup; DefaultLookupTimeout if zero
	LockTimeout   time.Duration // how long to wait for a held lock; fail fast if zero
	DryRun        bool          // look up but never import; no lock is taken
	Callback      EventCallback
}

// NewEngine builds an engine. locker may be nil when the caller serializes
// access to the store itself.
func NewEngine(store state.Store, locker state.Locker, resolver Resolver) *Engine {
	return &Engine{
		store:    store,
		locker:   locker,
		resolver: resolver,
	}
}

func (e *Engine) emit(ev Event) {
	if e.Callback != nil {
		e.Callback(ev)
	}
}
