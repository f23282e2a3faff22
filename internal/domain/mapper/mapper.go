// Package mapper converts raw marketplace orders into normalized records.
// Mapping is pure and never fails: anything missing or malformed degrades to
// a zero value, nil, or a documented default.
package mapper

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the normalized form of one marketplace order
type Order struct {
	MarketplaceOrderID string
	CreatedAt          time.Time // zero when absent or unparseable
	Buyer              *string
	TotalCents         int64
	TaxCents           int64
	ShippingCents      int64
	Lines              []Line
}

// Line is the normalized form of one order line
type Line struct {
	MarketplaceLineID *string
	SKU               *string
	MarketplaceItemID *string
	Quantity          int // always >= 1
	ItemPriceCents    int64
}

type rawAmount struct {
	Value flexString `json:"value"`
}

type rawLine struct {
	LineItemID   flexString `json:"lineItemId"`
	SKU          flexString `json:"sku"`
	ItemID       flexString `json:"itemId"`
	Quantity     flexInt    `json:"quantity"`
	LineItemCost rawAmount  `json:"lineItemCost"`
}

type rawOrder struct {
	OrderID      flexString `json:"orderId"`
	CreationDate flexString `json:"creationDate"`
	Buyer        struct {
		Username flexString `json:"username"`
	} `json:"buyer"`
	PricingSummary struct {
		Total        rawAmount `json:"total"`
		Tax          rawAmount `json:"tax"`
		DeliveryCost rawAmount `json:"deliveryCost"`
	} `json:"pricingSummary"`
	LineItems []rawLine `json:"lineItems"`
}

// Map normalizes a raw order. Type mismatches in individual fields are
// skipped; a payload that is not JSON at all maps to an empty Order.
func Map(raw []byte) Order {
	var r rawOrder
	// Unmarshal fills every field it can before reporting a type error.
	_ = json.Unmarshal(raw, &r)

	o := Order{
		MarketplaceOrderID: r.OrderID.String(),
		CreatedAt:          parseTime(r.CreationDate.String()),
		Buyer:              r.Buyer.Username.Ptr(),
		TotalCents:         ToMinorUnits(r.PricingSummary.Total.Value.String()),
		TaxCents:           ToMinorUnits(r.PricingSummary.Tax.Value.String()),
		ShippingCents:      ToMinorUnits(r.PricingSummary.DeliveryCost.Value.String()),
		Lines:              make([]Line, 0, len(r.LineItems)),
	}

	for _, li := range r.LineItems {
		qty := 1
		if li.Quantity.set && li.Quantity.n >= 1 {
			qty = li.Quantity.n
		}
		o.Lines = append(o.Lines, Line{
			MarketplaceLineID: li.LineItemID.Ptr(),
			SKU:               li.SKU.Ptr(),
			MarketplaceItemID: li.ItemID.Ptr(),
			Quantity:          qty,
			ItemPriceCents:    ToMinorUnits(li.LineItemCost.Value.String()),
		})
	}
	return o
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a decimal amount string to integer cents, rounding
// half away from zero. Empty or unparseable input yields 0.
func ToMinorUnits(v string) int64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0
	}
	return d.Mul(hundred).Round(0).IntPart()
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
