package storage

import (
	"context"
	"database/sql"
	"errors"
)

// FindInventoryItemBySKU looks up an inventory item by exact SKU
func (s *Storage) FindInventoryItemBySKU(ctx context.Context, sku string) (*InventoryItem, error) {
	item := &InventoryItem{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sku, title, cost_cents, quantity_on_hand
		FROM inventory_items WHERE sku = ?`, sku,
	).Scan(&item.ID, &item.SKU, &item.Title, &item.CostCents, &item.QuantityOnHand)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("find inventory item", err)
	}
	return item, nil
}

// UpsertInventoryItem creates or updates an item by SKU
func (s *Storage) UpsertInventoryItem(ctx context.Context, item *InventoryItem) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO inventory_items (sku, title, cost_cents, quantity_on_hand)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sku) DO UPDATE SET
			title = excluded.title,
			cost_cents = excluded.cost_cents,
			quantity_on_hand = excluded.quantity_on_hand
		RETURNING id`,
		item.SKU, item.Title, item.CostCents, item.QuantityOnHand,
	).Scan(&id)
	if err != nil {
		return 0, persistErr("upsert inventory item", err)
	}
	item.ID = id
	return id, nil
}
