package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status      string `json:"status"`   // "ok" or "degraded"
	Database    string `json:"database"` // "ok" or "unavailable"
	Marketplace string `json:"marketplace,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// NewHealthResponse builds the health payload for the given database state.
func NewHealthResponse(databaseOK bool, marketplace string) HealthResponse {
	resp := HealthResponse{
		Status:      "ok",
		Database:    "ok",
		Marketplace: marketplace,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if !databaseOK {
		resp.Status = "degraded"
		resp.Database = "unavailable"
	}
	return resp
}

// OrderResponse represents an order in API responses. Amounts are in cents.
type OrderResponse struct {
	ID                 int64               `json:"id"`
	MarketplaceOrderID string              `json:"marketplace_order_id"`
	CreatedAt          *string             `json:"created_at"`
	Buyer              *string             `json:"buyer"`
	TotalCents         int64               `json:"total_cents"`
	TaxCents           int64               `json:"tax_cents"`
	ShippingCents      int64               `json:"shipping_cents"`
	RawPayloadID       int64               `json:"raw_payload_id,omitempty"`
	ImportedAt         string              `json:"imported_at"`
	UpdatedAt          string              `json:"updated_at"`
	Lines              []OrderLineResponse `json:"lines,omitempty"`
}

// OrderLineResponse represents one order line.
type OrderLineResponse struct {
	ID                int64   `json:"id"`
	LineKey           string  `json:"line_key"`
	MarketplaceLineID *string `json:"marketplace_line_id"`
	SKU               *string `json:"sku"`
	MarketplaceItemID *string `json:"marketplace_item_id"`
	Quantity          int     `json:"quantity"`
	ItemPriceCents    int64   `json:"item_price_cents"`
	InventoryItemID   *int64  `json:"inventory_item_id"`
}

// OrderListResponse is returned when listing orders.
type OrderListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	TotalCount int             `json:"total_count"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

// SyncRunResponse represents a sync run in API responses.
type SyncRunResponse struct {
	ID              int64   `json:"id"`
	PrincipalID     string  `json:"principal_id"`
	StartedAt       string  `json:"started_at"`
	CompletedAt     *string `json:"completed_at,omitempty"`
	WindowDays      int     `json:"window_days"`
	Pages           int     `json:"pages"`
	OrdersProcessed int     `json:"orders_processed"`
	LinesProcessed  int     `json:"lines_processed"`
	OrdersCreated   int     `json:"orders_created"`
	LinesMatched    int     `json:"lines_matched"`
	Status          string  `json:"status"`
	ErrorMessage    string  `json:"error_message,omitempty"`
}

// SyncRunListResponse is returned when listing sync runs.
type SyncRunListResponse struct {
	Runs  []SyncRunResponse `json:"runs"`
	Count int               `json:"count"`
}

// CredentialStatusResponse describes a principal's marketplace connection.
// Tokens are never returned.
type CredentialStatusResponse struct {
	PrincipalID          string  `json:"principal_id"`
	Connected            bool    `json:"connected"`
	AccessTokenExpiresAt *string `json:"access_token_expires_at,omitempty"`
	CanRefresh           bool    `json:"can_refresh"`
	ExternalUserID       string  `json:"external_user_id,omitempty"`
}

// ConnectedResponse is returned by a successful OAuth callback.
type ConnectedResponse struct {
	PrincipalID string `json:"principal_id"`
	Connected   bool   `json:"connected"`
	Message     string `json:"message"`
}

// MessageResponse is a generic message response.
type MessageResponse struct {
	Message string `json:"message"`
}
