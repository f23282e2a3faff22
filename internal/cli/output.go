package cli

import (
	"context"
	"fmt"
	"strings"

	appsync "github.com/eshaffer321/marketplace-order-sync/internal/application/sync"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/storage"
)

// PrintHeader prints the application header
func PrintHeader(marketplaceName, mode string) {
	fmt.Printf("order-sync: %s (%s mode)\n", marketplaceName, strings.ToUpper(mode))
}

// PrintConfiguration prints sync configuration
func PrintConfiguration(principalID string, windowDays, pageSize int) {
	fmt.Printf("Principal: %s | Window: %d days", principalID, windowDays)
	if pageSize > 0 {
		fmt.Printf(" | Page size: %d", pageSize)
	}
	fmt.Print("\n\n")
}

// PrintSyncSummary prints the sync result summary and the latest recorded runs
func PrintSyncSummary(ctx context.Context, result *appsync.Result, repo storage.SyncRunRepository) {
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Summary: Pages=%d Orders=%d (created=%d updated=%d skipped=%d) Lines=%d Matched=%d\n",
		result.Pages,
		result.OrdersProcessed,
		result.OrdersCreated,
		result.OrdersUpdated,
		result.OrdersSkipped,
		result.LinesProcessed,
		result.LinesMatched)

	if repo == nil {
		return
	}
	runs, err := repo.ListSyncRuns(ctx, 5)
	if err != nil || len(runs) == 0 {
		return
	}
	fmt.Println("\nRecent runs:")
	for _, run := range runs {
		line := fmt.Sprintf("  #%d %s %s window=%dd orders=%d matched=%d",
			run.ID, run.StartedAt.Format("2006-01-02 15:04"), run.Status, run.WindowDays, run.OrdersProcessed, run.LinesMatched)
		if run.ErrorMessage != "" {
			line += " error=" + run.ErrorMessage
		}
		fmt.Println(line)
	}
}
