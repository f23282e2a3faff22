package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace/fixture"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/config"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/storage"
)

// SeedItems are the demo inventory items whose SKUs match the fixture orders.
var SeedItems = []storage.InventoryItem{
	{SKU: fixture.SeedSKU1, Title: "Vintage Brass Desk Lamp", CostCents: 1800, QuantityOnHand: 1},
	{SKU: fixture.SeedSKU2, Title: "Cast Iron Wall Hook (pair)", CostCents: 450, QuantityOnHand: 4},
}

// ErrSeedLiveCredential rejects seeding a mock credential against a live marketplace.
var ErrSeedLiveCredential = errors.New("mock credentials can only be seeded in mock mode")

// RunSeed upserts SeedItems and, when principal is set, a mock credential for it.
func RunSeed(ctx context.Context, cfg *config.Config, principal string, logger *slog.Logger) error {
	if principal != "" && cfg.Marketplace.IsLive() {
		return fmt.Errorf("%w (mode=%s)", ErrSeedLiveCredential, cfg.Marketplace.Mode)
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	for i := range SeedItems {
		item := SeedItems[i]
		id, err := store.UpsertInventoryItem(ctx, &item)
		if err != nil {
			return fmt.Errorf("seed inventory item %s: %w", item.SKU, err)
		}
		logger.Info("seeded inventory item", slog.String("sku", item.SKU), slog.Int64("id", id))
	}

	if principal == "" {
		return nil
	}

	grant, err := fixture.New(fixture.Config{}).ExchangeAuthorizationCode(ctx, "seed")
	if err != nil {
		return fmt.Errorf("mint mock grant: %w", err)
	}
	if err := store.UpsertCredential(ctx, &storage.Credential{
		PrincipalID:          principal,
		AccessToken:          grant.AccessToken,
		RefreshToken:         grant.RefreshToken,
		AccessTokenExpiresAt: grant.AccessTokenExpiresAt,
		ExternalUserID:       grant.ExternalUserID,
	}); err != nil {
		return fmt.Errorf("seed credential: %w", err)
	}
	logger.Info("seeded mock credential", slog.String("principal_id", principal))
	return nil
}
