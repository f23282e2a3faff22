// Package sync pulls a principal's marketplace orders into local storage.
//
// A run walks every page of the retrieval window, writes an audit copy of each
// raw order, upserts orders and lines, and links lines to inventory by SKU.
// Any fatal error aborts the run; pages already written stay committed.
package sync

import (
	"context"
	"fmt"

	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace"
)

// Run executes one sync for opts.PrincipalID. On failure it returns a nil
// result: partial counts are never reported as success.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.PrincipalID == "" {
		return nil, ErrInvalidPrincipal
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}

	to := o.now().UTC()
	from := to.AddDate(0, 0, -opts.WindowDays)

	o.logger.Info("Starting sync",
		"principal_id", opts.PrincipalID,
		"client", o.client.Name(),
		"window_days", opts.WindowDays,
	)

	runID := o.startRun(ctx, opts)
	result := &Result{}
	cursor := marketplace.NoCursor

	for {
		if err := ctx.Err(); err != nil {
			return o.abort(ctx, runID, result, fmt.Errorf("sync cancelled: %w", err))
		}

		page, err := o.fetchPage(ctx, opts, from, to, cursor)
		if err != nil {
			return o.abort(ctx, runID, result, err)
		}
		result.Pages++

		for _, raw := range page.Orders {
			if err := o.processOrder(ctx, raw, result); err != nil {
				return o.abort(ctx, runID, result, err)
			}
		}

		if opts.ProgressCallback != nil {
			opts.ProgressCallback(Progress{
				Pages:           result.Pages,
				OrdersProcessed: result.OrdersProcessed,
				LinesProcessed:  result.LinesProcessed,
			})
		}

		next, more, err := nextCursor(cursor, page)
		if err != nil {
			return o.abort(ctx, runID, result, err)
		}
		if !more {
			break
		}
		cursor = next
	}

	o.completeRun(ctx, runID, result)

	o.logger.Info("Sync complete",
		"principal_id", opts.PrincipalID,
		"pages", result.Pages,
		"orders_processed", result.OrdersProcessed,
		"orders_created", result.OrdersCreated,
		"lines_processed", result.LinesProcessed,
		"lines_matched", result.LinesMatched,
	)
	return result, nil
}

func (o *Orchestrator) abort(ctx context.Context, runID int64, partial *Result, err error) (*Result, error) {
	o.logger.Error("Sync failed",
		"run_id", runID,
		"pages", partial.Pages,
		"orders_processed", partial.OrdersProcessed,
		"error", err,
	)
	o.failRun(ctx, runID, err)
	return nil, err
}
