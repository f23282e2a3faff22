package sync

import (
	"context"
	"fmt"

	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace"
	"github.com/eshaffer321/marketplace-order-sync/internal/domain/mapper"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/storage"
)

// processOrder persists one raw order and its lines. Every write is an upsert,
// so replaying the same order converges to the same rows.
func (o *Orchestrator) processOrder(ctx context.Context, raw marketplace.RawOrder, result *Result) error {
	mapped := mapper.Map(raw)

	payloadID, err := o.repo.SaveRawPayload(ctx, RawPayloadSource, raw)
	if err != nil {
		return fmt.Errorf("save raw payload: %w", err)
	}

	if mapped.MarketplaceOrderID == "" {
		o.logger.Warn("Skipping order without marketplace id", "raw_payload_id", payloadID)
		result.OrdersSkipped++
		return nil
	}

	orderID, created, err := o.repo.UpsertOrder(ctx, &storage.Order{
		MarketplaceOrderID: mapped.MarketplaceOrderID,
		CreatedAt:          mapped.CreatedAt,
		Buyer:              mapped.Buyer,
		TotalCents:         mapped.TotalCents,
		TaxCents:           mapped.TaxCents,
		ShippingCents:      mapped.ShippingCents,
		RawPayloadID:       payloadID,
	})
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", mapped.MarketplaceOrderID, err)
	}
	if created {
		result.OrdersCreated++
	} else {
		result.OrdersUpdated++
	}

	for i, line := range mapped.Lines {
		if err := o.processLine(ctx, orderID, i, line, result); err != nil {
			return fmt.Errorf("order %s: %w", mapped.MarketplaceOrderID, err)
		}
	}

	result.OrdersProcessed++
	o.logger.Debug("Processed order",
		"order_id", mapped.MarketplaceOrderID,
		"created", created,
		"lines", len(mapped.Lines),
	)
	return nil
}

func (o *Orchestrator) processLine(ctx context.Context, orderID int64, position int, line mapper.Line, result *Result) error {
	lineKey := storage.LineKey(line.MarketplaceLineID, position)

	lineID, created, err := o.repo.UpsertOrderLine(ctx, &storage.OrderLine{
		OrderID:           orderID,
		LineKey:           lineKey,
		MarketplaceLineID: line.MarketplaceLineID,
		SKU:               line.SKU,
		MarketplaceItemID: line.MarketplaceItemID,
		Quantity:          line.Quantity,
		ItemPriceCents:    line.ItemPriceCents,
	})
	if err != nil {
		return fmt.Errorf("upsert line %s: %w", lineKey, err)
	}
	result.LinesProcessed++
	if created {
		result.LinesCreated++
	}

	match, err := o.matcher.FindMatch(ctx, line.SKU)
	if err != nil {
		return fmt.Errorf("match line %s: %w", lineKey, err)
	}
	if match == nil {
		return nil
	}

	if _, err := o.repo.SetLineInventoryItem(ctx, lineID, match.InventoryItemID); err != nil {
		return fmt.Errorf("link line %s to inventory: %w", lineKey, err)
	}
	result.LinesMatched++
	return nil
}
