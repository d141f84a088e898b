package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/picklr-io/adopt/internal/ir"
	"github.com/picklr-io/adopt/internal/logging"
	"github.com/picklr-io/adopt/internal/state"
)

// Report collects the results of a batch run.
type Report struct {
	Results  []ir.Result
	Summary  ir.Summary
	DryRun   bool
	Duration time.Duration
}

func (r *Report) add(res ir.Result) {
	r.Results = append(r.Results, res)
	r.Summary.Add(res.Outcome)
}

// Err aggregates every ImportFailed result, or returns nil.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, res := range r.Results {
		if res.Outcome == ir.ImportFailed && res.Err != nil {
			result = multierror.Append(result, res.Err)
		}
	}
	return result.ErrorOrNil()
}

// Run reconciles every entry of the batch, in order, under the batch lock.
// A failed entry does not stop the batch; per-entry failures are in the report.
// The returned error is reserved for problems that stop the whole batch.
func (e *Engine) Run(ctx context.Context, batch *ir.Batch) (report *Report, err error) {
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch: %w", err)
	}

	start := time.Now()
	logging.Debug("starting batch", "resources", len(batch.Entries), "dry_run", e.DryRun)

	if !e.DryRun && e.locker != nil {
		if err := e.lock(ctx); err != nil {
			return nil, err
		}
		defer func() {
			if uerr := e.locker.Unlock(context.WithoutCancel(ctx)); uerr != nil {
				logging.Error("failed to release state lock", "error", uerr)
				err = multierror.Append(err, uerr).ErrorOrNil()
			}
		}()
	}

	report = &Report{DryRun: e.DryRun}
	for _, entry := range batch.Entries {
		if cerr := ctx.Err(); cerr != nil {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("reconciliation cancelled: %w", cerr)
		}

		e.emit(Event{Entry: entry, Status: "started"})
		res := e.ReconcileEntry(ctx, entry)
		report.add(res)
		logResult(res)
		e.emit(Event{Entry: entry, Status: "completed", Result: &res, Duration: res.Duration})
	}

	report.Duration = time.Since(start)
	return report, nil
}

func (e *Engine) lock(ctx context.Context) error {
	if e.LockTimeout <= 0 {
		if err := e.locker.Lock(ctx); err != nil {
			return fmt.Errorf("failed to lock state: %w", err)
		}
		return nil
	}

	lctx, cancel := context.WithTimeout(ctx, e.LockTimeout)
	defer cancel()

	logging.Debug("acquiring state lock", "timeout", e.LockTimeout)
	err := RetryWithBackoff(lctx, DefaultRetryPolicy(), func() error {
		return e.locker.Lock(lctx)
	}, func(err error) bool {
		if errors.Is(err, state.ErrLocked) {
			logging.Info("state is locked, waiting", "timeout", e.LockTimeout)
			return true
		}
		return false
	})
	if err != nil {
		return fmt.Errorf("failed to lock state: %w", err)
	}
	return nil
}

func logResult(res ir.Result) {
	args := []any{"address", res.Entry.Address, "outcome", res.Outcome.String(), "duration", res.Duration.Round(time.Millisecond)}
	if res.ID != "" {
		args = append(args, "id", res.ID)
	}

	switch res.Outcome {
	case ir.ImportFailed:
		args = append(args, "error", res.Err, "transient", IsTransientError(res.Err))
		logging.Error("reconciliation failed", args...)
	case ir.Imported:
		if res.DryRun {
			logging.Info("would import", args...)
			return
		}
		logging.Info("imported", args...)
	case ir.NotFoundUpstream:
		logging.Info("not found in Azure, leaving creation to terraform apply", args...)
	default:
		logging.Info("already tracked", args...)
	}
}
