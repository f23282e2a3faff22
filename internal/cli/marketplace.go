package cli

import (
	"log/slog"

	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace"
	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace/ebay"
	"github.com/eshaffer321/marketplace-order-sync/internal/adapters/marketplace/fixture"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/config"
)

// NewMarketplaceClient returns the fixture client in mock mode and the live
// eBay client for sandbox and prod.
func NewMarketplaceClient(cfg config.MarketplaceConfig, logger *slog.Logger) marketplace.Client {
	if !cfg.IsLive() {
		return fixture.New(fixture.Config{
			AuthorizeURL: cfg.MockAuthorizeURL,
			ClientID:     cfg.ClientID,
			RuName:       cfg.RuName,
		})
	}

	return ebay.New(ebay.Config{
		Environment:       cfg.Mode,
		ClientID:          cfg.ClientID,
		ClientSecret:      cfg.ClientSecret,
		RuName:            cfg.RuName,
		Scopes:            cfg.Scopes,
		RetryDelay:        cfg.RetryDelay,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger.With("system", "ebay"),
	})
}
