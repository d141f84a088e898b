package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/picklr-io/adopt/internal/ir"
	"github.com/picklr-io/adopt/internal/state"
)

// Reconcile aligns the state store with Azure for a single address:
//
//  1. tracked already          -> AlreadyTracked
//  2. lookup reports absent    -> NotFoundUpstream
//  3. lookup fails or times out -> ImportFailed (LookupError)
//  4. import fails             -> ImportFailed (ImportError)
//  5. otherwise                -> Imported
//
// At most one store mutation happens per call. Callers must not reconcile the
// same address concurrently against one store; Run holds the batch lock for that.
func (e *Engine) Reconcile(ctx context.Context, address string, lookup LookupFunc) ir.Result {
	start := time.Now()
	res := e.reconcile(ctx, address, lookup)
	res.Duration = time.Since(start)
	return res
}

// ReconcileEntry reconciles an entry using the engine's resolver.
func (e *Engine) ReconcileEntry(ctx context.Context, entry *ir.Entry) ir.Result {
	res := e.Reconcile(ctx, entry.Address, func(ctx context.Context) (string, bool, error) {
		return e.resolver.Lookup(ctx, entry)
	})
	res.Entry = entry
	return res
}

func (e *Engine) reconcile(ctx context.Context, address string, lookup LookupFunc) ir.Result {
	res := ir.Result{Entry: &ir.Entry{Address: address}, DryRun: e.DryRun}

	tracked, err := e.store.Contains(ctx, address)
	if err != nil {
		res.Outcome = ir.ImportFailed
		res.Err = &ImportError{Address: address, Err: fmt.Errorf("state membership query failed: %w", err)}
		return res
	}
	if tracked {
		res.Outcome = ir.AlreadyTracked
		return res
	}

	id, found, err := e.lookup(ctx, lookup)
	if err != nil {
		res.Outcome = ir.ImportFailed
		res.Err = &LookupError{Address: address, Err: err}
		return res
	}
	if !found {
		res.Outcome = ir.NotFoundUpstream
		return res
	}
	if id == "" {
		res.Outcome = ir.ImportFailed
		res.Err = &LookupError{Address: address, Err: errors.New("resource reported as found without an identifier")}
		return res
	}

	res.ID = id
	if e.DryRun {
		res.Outcome = ir.Imported
		return res
	}

	if err := e.store.Import(ctx, address, id); err != nil {
		if errors.Is(err, state.ErrAlreadyTracked) {
			res.Outcome = ir.AlreadyTracked
			return res
		}
		res.Outcome = ir.ImportFailed
		res.Err = &ImportError{Address: address, ID: id, Err: err}
		return res
	}

	res.Outcome = ir.Imported
	return res
}

type lookupAnswer struct {
	id    string
	found bool
	err   error
}

// lookup runs fn under the lookup timeout. A lookup that ignores its context
// is abandoned when the deadline passes.
func (e *Engine) lookup(ctx context.Context, fn LookupFunc) (string, bool, error) {
	timeout := e.LookupTimeout
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	lctx, cancel := WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan lookupAnswer, 1)
	go func() {
		id, found, err := fn(lctx)
		done <- lookupAnswer{id: id, found: found, err: err}
	}()

	var ans lookupAnswer
	select {
	case ans = <-done:
	case <-lctx.Done():
		ans = lookupAnswer{err: lctx.Err()}
	}

	if ctx.Err() == nil && errors.Is(lctx.Err(), context.DeadlineExceeded) {
		// Absence reported after the deadline is not trustworthy either.
		if ans.err == nil {
			ans.err = lctx.Err()
		}
		return "", false, fmt.Errorf("%w after %s: %w", ErrLookupTimeout, timeout, ans.err)
	}
	if ans.err != nil {
		return "", false, ans.err
	}
	if ctx.Err() != nil {
		return "", false, ctx.Err()
	}
	return ans.id, ans.found, nil
}
