// Package matcher links order lines to locally known inventory by SKU.
//
// Matching is exact: a line matches when an inventory item carries the same
// SKU string. Lines without a SKU are never looked up.
//
// Example usage:
//
//	m := matcher.NewMatcher(repo)
//	result, err := m.FindMatch(ctx, line.SKU)
//	if result != nil {
//		// link line to result.InventoryItemID
//	}
package matcher

import (
	"context"
	"errors"

	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/storage"
)

// InventoryLookup is the storage capability the matcher needs
type InventoryLookup interface {
	FindInventoryItemBySKU(ctx context.Context, sku string) (*storage.InventoryItem, error)
}

// MatchResult identifies the inventory item a line resolves to
type MatchResult struct {
	InventoryItemID int64
	SKU             string
	Title           string
}

// Matcher resolves SKUs against inventory
type Matcher struct {
	lookup InventoryLookup
}

// NewMatcher creates a new matcher backed by lookup
func NewMatcher(lookup InventoryLookup) *Matcher {
	return &Matcher{lookup: lookup}
}

// FindMatch performs at most one inventory lookup. It returns nil, nil when
// sku is nil or empty, or when no item has that SKU.
func (m *Matcher) FindMatch(ctx context.Context, sku *string) (*MatchResult, error) {
	if sku == nil || *sku == "" {
		return nil, nil
	}

	item, err := m.lookup.FindInventoryItemBySKU(ctx, *sku)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &MatchResult{
		InventoryItemID: item.ID,
		SKU:             item.SKU,
		Title:           item.Title,
	}, nil
}
