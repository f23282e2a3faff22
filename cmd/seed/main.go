// Command seed loads the demo inventory items whose SKUs match the fixture
// marketplace orders, and optionally a mock credential for a principal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/eshaffer321/marketplace-order-sync/internal/cli"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/logging"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Configuration file path")
		principal  = flag.String("principal", "", "Also store a mock credential for this principal")
	)
	flag.Parse()

	if err := run(*configPath, *principal); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, principal string) error {
	cfg, err := cli.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "seed")

	return cli.RunSeed(context.Background(), cfg, principal, logger)
}
