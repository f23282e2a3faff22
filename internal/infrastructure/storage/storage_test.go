package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func TestStorage_CredentialLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	_, err := store.GetCredential(ctx, "seller-1")
	assert.ErrorIs(t, err, ErrNotFound)

	expires := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertCredential(ctx, &Credential{
		PrincipalID:          "seller-1",
		AccessToken:          "at-1",
		RefreshToken:         "rt-1",
		AccessTokenExpiresAt: expires,
		ExternalUserID:       "mock_seller_123",
	}))

	cred, err := store.GetCredential(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, "at-1", cred.AccessToken)
	assert.Equal(t, "rt-1", cred.RefreshToken)
	assert.True(t, cred.AccessTokenExpiresAt.Equal(expires))
	assert.True(t, cred.HasRefreshToken())

	// Refresh keeps the refresh token
	newExpiry := expires.Add(time.Hour)
	require.NoError(t, store.UpdateAccessToken(ctx, "seller-1", "at-2", newExpiry))
	cred, err = store.GetCredential(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", cred.AccessToken)
	assert.Equal(t, "rt-1", cred.RefreshToken)
	assert.True(t, cred.AccessTokenExpiresAt.Equal(newExpiry))

	// Re-authorization overwrites in place
	require.NoError(t, store.UpsertCredential(ctx, &Credential{PrincipalID: "seller-1", AccessToken: "at-3"}))
	cred, err = store.GetCredential(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, "at-3", cred.AccessToken)
	assert.False(t, cred.HasRefreshToken())
	assert.True(t, cred.AccessTokenExpiresAt.IsZero())
}

func TestStorage_UpdateAccessToken_Unknown(t *testing.T) {
	store := newTestStorage(t)
	err := store.UpdateAccessToken(context.Background(), "nobody", "x", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_UpsertOrder_ReportsCreated(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	rawID, err := store.SaveRawPayload(ctx, "ebay.getOrders", []byte(`{"orderId":"A"}`))
	require.NoError(t, err)

	order := &Order{
		MarketplaceOrderID: "A",
		CreatedAt:          time.Date(2025, 8, 31, 14, 12, 3, 0, time.UTC),
		Buyer:              strPtr("buyer_one"),
		TotalCents:         4250,
		TaxCents:           350,
		ShippingCents:      500,
		RawPayloadID:       rawID,
	}
	id, created, err := store.UpsertOrder(ctx, order)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, id, order.ID)

	order.TotalCents = 5000
	id2, created, err := store.UpsertOrder(ctx, order)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, id2)

	got, err := store.GetOrderByMarketplaceID(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.TotalCents)
	assert.Equal(t, "buyer_one", *got.Buyer)
	assert.Equal(t, rawID, got.RawPayloadID)
	assert.True(t, got.CreatedAt.Equal(order.CreatedAt))

	payload, err := store.GetRawPayload(ctx, rawID)
	require.NoError(t, err)
	assert.Equal(t, `{"orderId":"A"}`, string(payload.Payload))
	assert.Equal(t, "ebay.getOrders", payload.Source)
}

func TestStorage_UpsertOrder_NullableFields(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	_, _, err := store.UpsertOrder(ctx, &Order{MarketplaceOrderID: "B"})
	require.NoError(t, err)

	got, err := store.GetOrderByMarketplaceID(ctx, "B")
	require.NoError(t, err)
	assert.Nil(t, got.Buyer)
	assert.True(t, got.CreatedAt.IsZero())
	assert.Zero(t, got.RawPayloadID)

	_, err = store.GetOrderByMarketplaceID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_OrderLines_KeepInventoryReference(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	orderID, _, err := store.UpsertOrder(ctx, &Order{MarketplaceOrderID: "C"})
	require.NoError(t, err)
	itemID, err := store.UpsertInventoryItem(ctx, &InventoryItem{SKU: "INV-1", Title: "Widget"})
	require.NoError(t, err)

	line := &OrderLine{
		OrderID:           orderID,
		LineKey:           LineKey(strPtr("L1"), 0),
		MarketplaceLineID: strPtr("L1"),
		SKU:               strPtr("INV-1"),
		Quantity:          1,
		ItemPriceCents:    3400,
	}
	lineID, created, err := store.UpsertOrderLine(ctx, line)
	require.NoError(t, err)
	assert.True(t, created)

	changed, err := store.SetLineInventoryItem(ctx, lineID, itemID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = store.SetLineInventoryItem(ctx, lineID, itemID)
	require.NoError(t, err)
	assert.False(t, changed, "re-linking the same item is a no-op")

	// Re-upsert with the same SKU keeps the reference
	line.Quantity = 2
	again, created, err := store.UpsertOrderLine(ctx, line)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, lineID, again)

	lines, err := store.ListOrderLines(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	require.NotNil(t, lines[0].InventoryItemID)
	assert.Equal(t, itemID, *lines[0].InventoryItemID)
	assert.Nil(t, lines[0].MarketplaceItemID)
}

func TestStorage_OrderLines_SKUChangeDropsInventoryReference(t *testing.T) {
	tests := []struct {
		name string
		sku  *string
	}{
		{name: "sku removed", sku: nil},
		{name: "sku replaced", sku: strPtr("INV-UNKNOWN")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStorage(t)

			orderID, _, err := store.UpsertOrder(ctx, &Order{MarketplaceOrderID: "D"})
			require.NoError(t, err)
			itemID, err := store.UpsertInventoryItem(ctx, &InventoryItem{SKU: "INV-1", Title: "Widget"})
			require.NoError(t, err)

			line := &OrderLine{
				OrderID:        orderID,
				LineKey:        LineKey(strPtr("L1"), 0),
				SKU:            strPtr("INV-1"),
				Quantity:       1,
				ItemPriceCents: 3400,
			}
			lineID, _, err := store.UpsertOrderLine(ctx, line)
			require.NoError(t, err)
			_, err = store.SetLineInventoryItem(ctx, lineID, itemID)
			require.NoError(t, err)

			line.SKU = tt.sku
			_, created, err := store.UpsertOrderLine(ctx, line)
			require.NoError(t, err)
			assert.False(t, created)

			lines, err := store.ListOrderLines(ctx, orderID)
			require.NoError(t, err)
			require.Len(t, lines, 1)
			assert.Equal(t, tt.sku, lines[0].SKU)
			assert.Nil(t, lines[0].InventoryItemID)
		})
	}
}

func TestStorage_Ping(t *testing.T) {
	store := newTestStorage(t)
	assert.NoError(t, store.Ping(context.Background()))

	require.NoError(t, store.Close())
	assert.Error(t, store.Ping(context.Background()))
}

func TestStorage_OrderLines_PositionalKeys(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	orderID, _, err := store.UpsertOrder(ctx, &Order{MarketplaceOrderID: "D"})
	require.NoError(t, err)

	for pos := 0; pos < 2; pos++ {
		_, created, err := store.UpsertOrderLine(ctx, &OrderLine{OrderID: orderID, LineKey: LineKey(nil, pos), Quantity: 1})
		require.NoError(t, err)
		assert.True(t, created)
	}

	lines, err := store.ListOrderLines(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "#0", lines[0].LineKey)
	assert.Equal(t, "#1", lines[1].LineKey)
}

func TestStorage_FindInventoryItemBySKU(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	_, err := store.FindInventoryItemBySKU(ctx, "INV-2509-AAA001")
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := store.UpsertInventoryItem(ctx, &InventoryItem{SKU: "INV-2509-AAA001", Title: "First", CostCents: 1000})
	require.NoError(t, err)

	// Upsert by SKU keeps the id
	id2, err := store.UpsertInventoryItem(ctx, &InventoryItem{SKU: "INV-2509-AAA001", Title: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	item, err := store.FindInventoryItemBySKU(ctx, "INV-2509-AAA001")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", item.Title)
}

func TestStorage_SyncRuns(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	ok, err := store.StartSyncRun(ctx, "seller-1", 90)
	require.NoError(t, err)
	require.NoError(t, store.CompleteSyncRun(ctx, ok, SyncRunStats{Pages: 1, OrdersProcessed: 2, LinesProcessed: 3, OrdersCreated: 2, LinesMatched: 2}))

	bad, err := store.StartSyncRun(ctx, "seller-1", 30)
	require.NoError(t, err)
	require.NoError(t, store.FailSyncRun(ctx, bad, "transient fetch error"))

	runs, err := store.ListSyncRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, bad, runs[0].ID)
	assert.Equal(t, SyncRunFailed, runs[0].Status)
	assert.Equal(t, "transient fetch error", runs[0].ErrorMessage)
	assert.Equal(t, SyncRunCompleted, runs[1].Status)
	assert.Equal(t, 3, runs[1].LinesProcessed)
	assert.NotNil(t, runs[1].CompletedAt)

	_, err = store.GetSyncRun(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_ListOrders(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"O1", "O2", "O3"} {
		_, _, err := store.UpsertOrder(ctx, &Order{MarketplaceOrderID: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	res, err := store.ListOrders(ctx, OrderFilters{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
	require.Len(t, res.Orders, 2)
	assert.Equal(t, "O3", res.Orders[0].MarketplaceOrderID)
	assert.Equal(t, "O2", res.Orders[1].MarketplaceOrderID)
}

func TestStorage_ClosedDatabaseReturnsPersistenceError(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.Close())

	_, _, err := store.UpsertOrder(context.Background(), &Order{MarketplaceOrderID: "X"})
	require.Error(t, err)

	var perr *PersistenceError
	assert.True(t, errors.As(err, &perr))
}
