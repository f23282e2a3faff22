package storage

import (
	"strconv"
	"time"
)

// Credential is the marketplace authorization held for one principal.
// An empty RefreshToken means the principal must re-authorize.
// A zero AccessTokenExpiresAt means the expiry is unknown and forces a refresh.
type Credential struct {
	ID                   int64     `json:"id"`
	PrincipalID          string    `json:"principal_id"`
	AccessToken          string    `json:"-"`
	RefreshToken         string    `json:"-"`
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at"`
	ExternalUserID       string    `json:"external_user_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// HasRefreshToken reports whether the credential can be refreshed without user interaction
func (c *Credential) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// Order is a marketplace order keyed by its marketplace identifier
type Order struct {
	ID                 int64     `json:"id"`
	MarketplaceOrderID string    `json:"marketplace_order_id"`
	CreatedAt          time.Time `json:"created_at"` // zero when the marketplace sent none
	Buyer              *string   `json:"buyer"`
	TotalCents         int64     `json:"total_cents"`
	TaxCents           int64     `json:"tax_cents"`
	ShippingCents      int64     `json:"shipping_cents"`
	RawPayloadID       int64     `json:"raw_payload_id,omitempty"`
	ImportedAt         time.Time `json:"imported_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// OrderLine is one line item of an order.
// LineKey is unique within the order, see LineKey.
type OrderLine struct {
	ID                int64   `json:"id"`
	OrderID           int64   `json:"order_id"`
	LineKey           string  `json:"line_key"`
	MarketplaceLineID *string `json:"marketplace_line_id"`
	SKU               *string `json:"sku"`
	MarketplaceItemID *string `json:"marketplace_item_id"`
	Quantity          int     `json:"quantity"`
	ItemPriceCents    int64   `json:"item_price_cents"`
	InventoryItemID   *int64  `json:"inventory_item_id"`
}

// LineKey returns the per-order uniqueness key for a line: the marketplace
// line id when present, otherwise its position in the order.
func LineKey(marketplaceLineID *string, position int) string {
	if marketplaceLineID != nil && *marketplaceLineID != "" {
		return *marketplaceLineID
	}
	return "#" + strconv.Itoa(position)
}

// RawPayload is an append-only copy of an order exactly as received
type RawPayload struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Payload    []byte    `json:"-"`
	ReceivedAt time.Time `json:"received_at"`
}

// InventoryItem is a locally known stock unit. Only lookup by SKU is used by sync.
type InventoryItem struct {
	ID             int64  `json:"id"`
	SKU            string `json:"sku"`
	Title          string `json:"title"`
	CostCents      int64  `json:"cost_cents"`
	QuantityOnHand int    `json:"quantity_on_hand"`
}

// Sync run statuses
const (
	SyncRunRunning   = "running"
	SyncRunCompleted = "completed"
	SyncRunFailed    = "failed"
)

// SyncRun represents a sync run record
type SyncRun struct {
	ID              int64      `json:"id"`
	PrincipalID     string     `json:"principal_id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	WindowDays      int        `json:"window_days"`
	Pages           int        `json:"pages"`
	OrdersProcessed int        `json:"orders_processed"`
	LinesProcessed  int        `json:"lines_processed"`
	OrdersCreated   int        `json:"orders_created"`
	LinesMatched    int        `json:"lines_matched"`
	Status          string     `json:"status"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

// SyncRunStats are the counters recorded when a run completes
type SyncRunStats struct {
	Pages           int
	OrdersProcessed int
	LinesProcessed  int
	OrdersCreated   int
	LinesMatched    int
}
