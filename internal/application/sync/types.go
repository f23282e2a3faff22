package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace"
	"github.com/eshaffer321/marketplace-order-sync/internal/domain/matcher"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/storage"
)

const (
	// DefaultWindowDays is used when Options.WindowDays is not positive
	DefaultWindowDays = 90

	// RawPayloadSource tags audit records written by the sync engine
	RawPayloadSource = "ebay.getOrders"
)

var (
	// ErrCursorStalled means the marketplace returned the cursor it was given.
	// It is always wrapped in a *marketplace.PermanentFetchError.
	ErrCursorStalled = errors.New("marketplace cursor did not advance")

	// ErrInvalidPrincipal rejects a run without a principal id
	ErrInvalidPrincipal = errors.New("principal id is required")
)

// TokenSource hands out valid access tokens per principal
type TokenSource interface {
	EnsureFreshAccessToken(ctx context.Context, principalID string) (string, error)
}

// Options holds sync configuration
type Options struct {
	PrincipalID string
	WindowDays  int
	PageSize    int // 0 lets the client choose

	// ProgressCallback is invoked after every page
	ProgressCallback func(Progress)
}

// Progress is reported after each page
type Progress struct {
	Pages           int
	OrdersProcessed int
	LinesProcessed  int
}

// Result holds sync results
type Result struct {
	Pages           int `json:"pages"`
	OrdersProcessed int `json:"orders_processed"`
	LinesProcessed  int `json:"lines_processed"`
	OrdersCreated   int `json:"orders_created"`
	OrdersUpdated   int `json:"orders_updated"`
	LinesCreated    int `json:"lines_created"`
	LinesMatched    int `json:"lines_matched"`
	OrdersSkipped   int `json:"orders_skipped"`
}

// Orchestrator runs the sync process for one principal at a time
type Orchestrator struct {
	client  marketplace.Client
	tokens  TokenSource
	repo    storage.Repository
	matcher *matcher.Matcher
	logger  *slog.Logger
	now     func() time.Time
}

// NewOrchestrator creates a new sync orchestrator
func NewOrchestrator(
	client marketplace.Client,
	tokens TokenSource,
	repo storage.Repository,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:  client,
		tokens:  tokens,
		repo:    repo,
		matcher: matcher.NewMatcher(repo),
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the time source used for the retrieval window
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}
