// Command sync runs one order sync for a principal and prints a summary.
//
// Usage:
//
//	sync -principal seller-1 [-days 90] [-page-size 50] [-config config.yaml]
package main

import (
	"fmt"
	"os"

	"github.com/eshaffer321/marketplace-order-sync/internal/cli"
)

func main() {
	flags := cli.ParseSyncFlags()
	if flags.PrincipalID == "" {
		fmt.Fprintln(os.Stderr, "-principal is required")
		os.Exit(2)
	}

	cfg, err := cli.LoadConfig(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cli.RunSync(cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "sync failed: %v\n", err)
		os.Exit(1)
	}
}
