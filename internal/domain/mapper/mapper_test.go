package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace/fixture"
)

func TestMap_FixtureOrder1001(t *testing.T) {
	o := Map(fixture.DefaultOrders()[0])

	assert.Equal(t, "MOCK-ORDER-1001", o.MarketplaceOrderID)
	assert.Equal(t, time.Date(2025, 8, 31, 14, 12, 3, 0, time.UTC), o.CreatedAt)
	require.NotNil(t, o.Buyer)
	assert.Equal(t, "buyer_one", *o.Buyer)
	assert.Equal(t, int64(4250), o.TotalCents)
	assert.Equal(t, int64(350), o.TaxCents)
	assert.Equal(t, int64(500), o.ShippingCents)

	require.Len(t, o.Lines, 1)
	l := o.Lines[0]
	assert.Equal(t, "LI-1001-1", *l.MarketplaceLineID)
	assert.Equal(t, "INV-2509-AAA001", *l.SKU)
	assert.Equal(t, "MOCK-ITEM-9001", *l.MarketplaceItemID)
	assert.Equal(t, 1, l.Quantity)
	assert.Equal(t, int64(3400), l.ItemPriceCents)
}

func TestMap_FixtureOrder1002(t *testing.T) {
	o := Map(fixture.DefaultOrders()[1])

	assert.Equal(t, "MOCK-ORDER-1002", o.MarketplaceOrderID)
	assert.Equal(t, "buyer_two", *o.Buyer)
	assert.Equal(t, int64(12000), o.TotalCents)
	assert.Zero(t, o.TaxCents)
	assert.Zero(t, o.ShippingCents)

	require.Len(t, o.Lines, 2)
	assert.Equal(t, "LI-1002-1", *o.Lines[0].MarketplaceLineID)
	assert.Nil(t, o.Lines[0].SKU, "null sku stays absent")
	assert.Equal(t, "MOCK-ITEM-9002", *o.Lines[0].MarketplaceItemID)
	assert.Equal(t, 2, o.Lines[0].Quantity)
	assert.Equal(t, int64(5000), o.Lines[0].ItemPriceCents)

	assert.Equal(t, "INV-2509-AAA002", *o.Lines[1].SKU)
	assert.Equal(t, 1, o.Lines[1].Quantity)
	assert.Equal(t, int64(2000), o.Lines[1].ItemPriceCents)
}

func TestMap_MissingFields(t *testing.T) {
	o := Map([]byte(`{"orderId":"X","creationDate":"2025-01-01T00:00:00.000Z","pricingSummary":{},"lineItems":[{}]}`))

	assert.Equal(t, "X", o.MarketplaceOrderID)
	assert.Nil(t, o.Buyer)
	assert.Zero(t, o.TotalCents)
	assert.Zero(t, o.TaxCents)
	assert.Zero(t, o.ShippingCents)

	require.Len(t, o.Lines, 1)
	l := o.Lines[0]
	assert.Nil(t, l.MarketplaceLineID)
	assert.Nil(t, l.SKU)
	assert.Nil(t, l.MarketplaceItemID)
	assert.Equal(t, 1, l.Quantity)
	assert.Zero(t, l.ItemPriceCents)
}

func TestMap_LenientTypes(t *testing.T) {
	o := Map([]byte(`{
		"orderId": 12345,
		"creationDate": "not a date",
		"buyer": "just-a-string",
		"pricingSummary": {"total": {"value": 19.99}, "tax": {"value": "abc"}},
		"lineItems": [
			{"lineItemId": 7, "sku": "", "itemId": "", "quantity": "3", "lineItemCost": {"value": "1.005"}},
			{"quantity": 0},
			{"quantity": -2},
			{"quantity": 2.7}
		]
	}`))

	assert.Equal(t, "12345", o.MarketplaceOrderID)
	assert.True(t, o.CreatedAt.IsZero(), "invalid date maps to unknown")
	assert.Nil(t, o.Buyer)
	assert.Equal(t, int64(1999), o.TotalCents)
	assert.Zero(t, o.TaxCents)

	require.Len(t, o.Lines, 4)
	assert.Equal(t, "7", *o.Lines[0].MarketplaceLineID)
	assert.Nil(t, o.Lines[0].SKU, "empty sku is treated as absent")
	assert.Nil(t, o.Lines[0].MarketplaceItemID)
	assert.Equal(t, 3, o.Lines[0].Quantity)
	assert.Equal(t, int64(101), o.Lines[0].ItemPriceCents)
	assert.Equal(t, 1, o.Lines[1].Quantity)
	assert.Equal(t, 1, o.Lines[2].Quantity)
	assert.Equal(t, 2, o.Lines[3].Quantity)
}

func TestMap_NotJSON(t *testing.T) {
	o := Map([]byte("<html>"))
	assert.Empty(t, o.MarketplaceOrderID)
	assert.Empty(t, o.Lines)
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"42.50", 4250},
		{"3.50", 350},
		{"0.00", 0},
		{"120", 12000},
		{"0.005", 1},
		{"0.004", 0},
		{"-1.005", -101},
		{"19.999", 2000},
		{" 7.10 ", 710},
		{"", 0},
		{"abc", 0},
		{"1e2", 10000},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ToMinorUnits(tt.in))
		})
	}
}
