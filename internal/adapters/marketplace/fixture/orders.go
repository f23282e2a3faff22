package fixture

import "github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace"

const order1001 = `{
  "orderId": "MOCK-ORDER-1001",
  "creationDate": "2025-08-31T14:12:03.000Z",
  "buyer": {"username": "buyer_one"},
  "pricingSummary": {
    "total": {"value": "42.50", "currency": "USD"},
    "deliveryCost": {"value": "5.00", "currency": "USD"},
    "tax": {"value": "3.50", "currency": "USD"}
  },
  "lineItems": [
    {
      "lineItemId": "LI-1001-1",
      "sku": "INV-2509-AAA001",
      "itemId": "MOCK-ITEM-9001",
      "quantity": 1,
      "lineItemCost": {"value": "34.00", "currency": "USD"}
    }
  ]
}`

const order1002 = `{
  "orderId": "MOCK-ORDER-1002",
  "creationDate": "2025-09-01T09:47:55.000Z",
  "buyer": {"username": "buyer_two"},
  "pricingSummary": {
    "total": {"value": "120.00", "currency": "USD"},
    "deliveryCost": {"value": "0.00", "currency": "USD"},
    "tax": {"value": "0.00", "currency": "USD"}
  },
  "lineItems": [
    {
      "lineItemId": "LI-1002-1",
      "sku": null,
      "itemId": "MOCK-ITEM-9002",
      "quantity": 2,
      "lineItemCost": {"value": "50.00", "currency": "USD"}
    },
    {
      "lineItemId": "LI-1002-2",
      "sku": "INV-2509-AAA002",
      "itemId": "MOCK-ITEM-9003",
      "quantity": 1,
      "lineItemCost": {"value": "20.00", "currency": "USD"}
    }
  ]
}`

// Fixture SKUs that exist in the seeded inventory
const (
	SeedSKU1 = "INV-2509-AAA001"
	SeedSKU2 = "INV-2509-AAA002"
)

// DefaultOrders returns the two-order, three-line development fixture
func DefaultOrders() []marketplace.RawOrder {
	return []marketplace.RawOrder{
		marketplace.RawOrder(order1001),
		marketplace.RawOrder(order1002),
	}
}
