package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace"
)

// fetchPage obtains a fresh token and retrieves one page at cursor
func (o *Orchestrator) fetchPage(ctx context.Context, opts Options, from, to time.Time, cursor marketplace.Cursor) (*marketplace.Page, error) {
	token, err := o.tokens.EnsureFreshAccessToken(ctx, opts.PrincipalID)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}

	o.logger.Debug("Fetching orders page",
		"principal_id", opts.PrincipalID,
		"cursor", cursor.String(),
		"start_date", from.Format(time.RFC3339),
		"end_date", to.Format(time.RFC3339),
	)

	page, err := o.client.FetchOrdersPage(ctx, marketplace.PageRequest{
		AccessToken: token,
		CreatedFrom: &from,
		CreatedTo:   &to,
		Cursor:      cursor,
		PageSize:    opts.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch orders page (%s): %w", cursor, err)
	}

	o.logger.Debug("Fetched orders page", "count", len(page.Orders), "next", page.Next.String())
	return page, nil
}

// nextCursor validates that pagination moves forward
func nextCursor(current marketplace.Cursor, page *marketplace.Page) (marketplace.Cursor, bool, error) {
	if page.Next.IsNone() {
		return marketplace.NoCursor, false, nil
	}
	if page.Next == current {
		return marketplace.NoCursor, false, &marketplace.PermanentFetchError{
			Body: "cursor " + current.String(),
			Err:  ErrCursorStalled,
		}
	}
	return page.Next, true, nil
}
