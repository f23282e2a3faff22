package dto

// SyncOrdersRequest is the body of POST /api/sync/orders and POST /api/sync.
type SyncOrdersRequest struct {
	PrincipalID string `json:"principal_id"`
	WindowDays  int    `json:"window_days"` // 0 uses the configured default
	PageSize    int    `json:"page_size,omitempty"`
}

// OrderListParams represents query parameters for listing orders.
type OrderListParams struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// SyncRunListParams represents query parameters for listing sync runs.
type SyncRunListParams struct {
	Limit int `json:"limit"`
}

// DefaultOrderListParams returns default values for order list params.
func DefaultOrderListParams() OrderListParams {
	return OrderListParams{Limit: 50}
}

// DefaultSyncRunListParams returns default values for sync run list params.
func DefaultSyncRunListParams() SyncRunListParams {
	return SyncRunListParams{Limit: 20}
}
