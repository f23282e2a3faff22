package storage

import (
	"context"
	"time"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory mock)
// and makes testing with mocks straightforward.
type Repository interface {
	CredentialRepository
	OrderRepository
	RawPayloadRepository
	InventoryRepository
	SyncRunRepository

	// Ping reports whether the backing store is reachable
	Ping(ctx context.Context) error
	Close() error
}

// CredentialRepository stores marketplace credentials per principal
type CredentialRepository interface {
	// GetCredential returns ErrNotFound when the principal never connected
	GetCredential(ctx context.Context, principalID string) (*Credential, error)

	// UpsertCredential creates or replaces the credential for cred.PrincipalID
	UpsertCredential(ctx context.Context, cred *Credential) error

	// UpdateAccessToken replaces the access token and its expiry in place
	UpdateAccessToken(ctx context.Context, principalID, accessToken string, expiresAt time.Time) error
}

// OrderRepository handles orders and their lines
type OrderRepository interface {
	// UpsertOrder inserts or updates by MarketplaceOrderID and reports whether a row was created
	UpsertOrder(ctx context.Context, order *Order) (id int64, created bool, err error)

	// UpsertOrderLine inserts or updates by (OrderID, LineKey). An existing
	// inventory reference is never cleared.
	UpsertOrderLine(ctx context.Context, line *OrderLine) (id int64, created bool, err error)

	// SetLineInventoryItem links a line to an inventory item, reporting whether anything changed
	SetLineInventoryItem(ctx context.Context, lineID, inventoryItemID int64) (bool, error)

	// GetOrderByMarketplaceID returns ErrNotFound when absent
	GetOrderByMarketplaceID(ctx context.Context, marketplaceOrderID string) (*Order, error)

	// ListOrderLines returns the lines of an order in insertion order
	ListOrderLines(ctx context.Context, orderID int64) ([]OrderLine, error)

	// ListOrders returns orders newest first with pagination
	ListOrders(ctx context.Context, filters OrderFilters) (*OrderListResult, error)
}

// OrderFilters defines filters for listing orders
type OrderFilters struct {
	Limit  int // Max results (0 = default 50)
	Offset int
}

// OrderListResult contains paginated order results
type OrderListResult struct {
	Orders     []*Order `json:"orders"`
	TotalCount int      `json:"total_count"`
	Limit      int      `json:"limit"`
	Offset     int      `json:"offset"`
}

// RawPayloadRepository is the append-only audit log of received orders
type RawPayloadRepository interface {
	SaveRawPayload(ctx context.Context, source string, payload []byte) (int64, error)
	GetRawPayload(ctx context.Context, id int64) (*RawPayload, error)
}

// InventoryRepository exposes the inventory lookups sync needs
type InventoryRepository interface {
	// FindInventoryItemBySKU returns ErrNotFound when no item carries the SKU
	FindInventoryItemBySKU(ctx context.Context, sku string) (*InventoryItem, error)

	// UpsertInventoryItem creates or updates by SKU and returns the item id
	UpsertInventoryItem(ctx context.Context, item *InventoryItem) (int64, error)
}

// SyncRunRepository handles sync run tracking
type SyncRunRepository interface {
	StartSyncRun(ctx context.Context, principalID string, windowDays int) (int64, error)
	CompleteSyncRun(ctx context.Context, runID int64, stats SyncRunStats) error
	FailSyncRun(ctx context.Context, runID int64, errMsg string) error
	ListSyncRuns(ctx context.Context, limit int) ([]SyncRun, error)
	GetSyncRun(ctx context.Context, runID int64) (*SyncRun, error)
}
