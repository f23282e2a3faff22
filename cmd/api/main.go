// Command api serves the order sync HTTP API: OAuth connect/callback, sync
// triggers and read endpoints over the synced orders.
package main

import (
	"fmt"
	"os"

	"github.com/eshaffer321/marketplace-order-sync/internal/cli"
)

func main() {
	flags := cli.ParseServeFlags()

	cfg, err := cli.LoadConfig(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cli.RunServe(cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
