package storage

import (
	"context"
	"database/sql"
	"errors"
)

// SaveRawPayload appends a payload to the audit log and returns its id
func (s *Storage) SaveRawPayload(ctx context.Context, source string, payload []byte) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO raw_payloads (source, payload, received_at) VALUES (?, ?, ?)`,
		source, payload, s.now())
	if err != nil {
		return 0, persistErr("save raw payload", err)
	}
	id, err := res.LastInsertId()
	return id, persistErr("save raw payload", err)
}

// GetRawPayload retrieves a stored payload by id
func (s *Storage) GetRawPayload(ctx context.Context, id int64) (*RawPayload, error) {
	p := &RawPayload{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, payload, received_at FROM raw_payloads WHERE id = ?`, id,
	).Scan(&p.ID, &p.Source, &p.Payload, &p.ReceivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get raw payload", err)
	}
	return p, nil
}

// UpsertOrder inserts or updates an order keyed by MarketplaceOrderID.
// The existence check and the write share a transaction so created is exact.
func (s *Storage) UpsertOrder(ctx context.Context, o *Order) (int64, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, persistErr("upsert order", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	var rawID sql.NullInt64
	if o.RawPayloadID != 0 {
		rawID = sql.NullInt64{Int64: o.RawPayloadID, Valid: true}
	}

	var id int64
	created := false
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM orders WHERE marketplace_order_id = ?`, o.MarketplaceOrderID,
	).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `
			INSERT INTO orders
			(marketplace_order_id, created_at, buyer, total_cents, tax_cents, shipping_cents,
			 raw_payload_id, imported_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.MarketplaceOrderID, nullTime(o.CreatedAt), nullString(o.Buyer),
			o.TotalCents, o.TaxCents, o.ShippingCents, rawID, now, now)
		if err != nil {
			return 0, false, persistErr("insert order", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, false, persistErr("insert order", err)
		}
		created = true
	case err != nil:
		return 0, false, persistErr("lookup order", err)
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE orders
			SET created_at = ?, buyer = ?, total_cents = ?, tax_cents = ?, shipping_cents = ?,
			    raw_payload_id = COALESCE(?, raw_payload_id), updated_at = ?
			WHERE id = ?`,
			nullTime(o.CreatedAt), nullString(o.Buyer), o.TotalCents, o.TaxCents, o.ShippingCents,
			rawID, now, id)
		if err != nil {
			return 0, false, persistErr("update order", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, persistErr("upsert order", err)
	}
	o.ID = id
	return id, created, nil
}

// UpsertOrderLine inserts or updates a line keyed by (OrderID, LineKey).
// inventory_item_id is set by SetLineInventoryItem; an update keeps it only
// while the SKU is unchanged, so a removed or replaced SKU drops the link.
func (s *Storage) UpsertOrderLine(ctx context.Context, l *OrderLine) (int64, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, persistErr("upsert order line", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	created := false
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM order_lines WHERE order_id = ? AND line_key = ?`, l.OrderID, l.LineKey,
	).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `
			INSERT INTO order_lines
			(order_id, line_key, marketplace_line_id, sku, marketplace_item_id, quantity, item_price_cents)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			l.OrderID, l.LineKey, nullString(l.MarketplaceLineID), nullString(l.SKU),
			nullString(l.MarketplaceItemID), l.Quantity, l.ItemPriceCents)
		if err != nil {
			return 0, false, persistErr("insert order line", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, false, persistErr("insert order line", err)
		}
		created = true
	case err != nil:
		return 0, false, persistErr("lookup order line", err)
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE order_lines
			SET marketplace_line_id = ?, sku = ?, marketplace_item_id = ?, quantity = ?, item_price_cents = ?,
			    inventory_item_id = CASE WHEN sku IS ? THEN inventory_item_id ELSE NULL END
			WHERE id = ?`,
			nullString(l.MarketplaceLineID), nullString(l.SKU), nullString(l.MarketplaceItemID),
			l.Quantity, l.ItemPriceCents, nullString(l.SKU), id)
		if err != nil {
			return 0, false, persistErr("update order line", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, persistErr("upsert order line", err)
	}
	l.ID = id
	return id, created, nil
}

// SetLineInventoryItem links a line to an inventory item. Re-linking to the
// same item is a no-op and reports false.
func (s *Storage) SetLineInventoryItem(ctx context.Context, lineID, inventoryItemID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE order_lines SET inventory_item_id = ?
		WHERE id = ? AND (inventory_item_id IS NULL OR inventory_item_id != ?)`,
		inventoryItemID, lineID, inventoryItemID)
	if err != nil {
		return false, persistErr("set line inventory item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistErr("set line inventory item", err)
	}
	return n > 0, nil
}

const orderColumns = `id, marketplace_order_id, created_at, buyer, total_cents, tax_cents, shipping_cents,
	raw_payload_id, imported_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	o := &Order{}
	var createdAt sql.NullTime
	var buyer sql.NullString
	var rawID sql.NullInt64
	err := row.Scan(&o.ID, &o.MarketplaceOrderID, &createdAt, &buyer,
		&o.TotalCents, &o.TaxCents, &o.ShippingCents, &rawID, &o.ImportedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		o.CreatedAt = createdAt.Time
	}
	o.Buyer = stringPtr(buyer)
	o.RawPayloadID = rawID.Int64
	return o, nil
}

// GetOrderByMarketplaceID retrieves an order by its marketplace identifier
func (s *Storage) GetOrderByMarketplaceID(ctx context.Context, marketplaceOrderID string) (*Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE marketplace_order_id = ?`, marketplaceOrderID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get order", err)
	}
	return o, nil
}

// ListOrderLines returns the lines of an order in insertion order
func (s *Storage) ListOrderLines(ctx context.Context, orderID int64) ([]OrderLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, line_key, marketplace_line_id, sku, marketplace_item_id,
		       quantity, item_price_cents, inventory_item_id
		FROM order_lines WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, persistErr("list order lines", err)
	}
	defer func() { _ = rows.Close() }()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		var lineID, sku, itemID sql.NullString
		var invID sql.NullInt64
		if err := rows.Scan(&l.ID, &l.OrderID, &l.LineKey, &lineID, &sku, &itemID,
			&l.Quantity, &l.ItemPriceCents, &invID); err != nil {
			return nil, persistErr("list order lines", err)
		}
		l.MarketplaceLineID = stringPtr(lineID)
		l.SKU = stringPtr(sku)
		l.MarketplaceItemID = stringPtr(itemID)
		l.InventoryItemID = int64Ptr(invID)
		lines = append(lines, l)
	}
	return lines, persistErr("list order lines", rows.Err())
}

// ListOrders returns orders newest first
func (s *Storage) ListOrders(ctx context.Context, filters OrderFilters) (*OrderListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	result := &OrderListResult{Orders: []*Order{}, Limit: filters.Limit, Offset: filters.Offset}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&result.TotalCount); err != nil {
		return nil, persistErr("count orders", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		filters.Limit, filters.Offset)
	if err != nil {
		return nil, persistErr("list orders", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, persistErr("list orders", err)
		}
		result.Orders = append(result.Orders, o)
	}
	return result, persistErr("list orders", rows.Err())
}
