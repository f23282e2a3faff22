package sync

import (
	"context"

	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/storage"
)

// Sync run bookkeeping. Tracking failures are logged and never fail a sync.

func (o *Orchestrator) startRun(ctx context.Context, opts Options) int64 {
	runID, err := o.repo.StartSyncRun(ctx, opts.PrincipalID, opts.WindowDays)
	if err != nil {
		o.logger.Warn("Failed to start sync run tracking", "principal_id", opts.PrincipalID, "error", err)
		return 0
	}
	return runID
}

func (o *Orchestrator) completeRun(ctx context.Context, runID int64, result *Result) {
	if runID == 0 {
		return
	}
	err := o.repo.CompleteSyncRun(ctx, runID, storage.SyncRunStats{
		Pages:           result.Pages,
		OrdersProcessed: result.OrdersProcessed,
		LinesProcessed:  result.LinesProcessed,
		OrdersCreated:   result.OrdersCreated,
		LinesMatched:    result.LinesMatched,
	})
	if err != nil {
		o.logger.Warn("Failed to complete sync run", "run_id", runID, "error", err)
	}
}

// failRun records the failure even when ctx was cancelled
func (o *Orchestrator) failRun(ctx context.Context, runID int64, cause error) {
	if runID == 0 {
		return
	}
	if err := o.repo.FailSyncRun(context.WithoutCancel(ctx), runID, cause.Error()); err != nil {
		o.logger.Warn("Failed to record sync run failure", "run_id", runID, "error", err)
	}
}
