package cli

import (
	"flag"
	"os"

	"github.com/eshaffer321/marketplace-order-sync/internal/application/service"
)

// SyncFlags are the flags of the sync command
type SyncFlags struct {
	ConfigPath  string
	PrincipalID string
	WindowDays  int
	PageSize    int
	Verbose     bool
}

// ParseSyncFlags parses sync flags from the command line
func ParseSyncFlags() SyncFlags {
	flags, _ := parseSyncFlags(flag.CommandLine, os.Args[1:])
	return flags
}

func parseSyncFlags(fs *flag.FlagSet, args []string) (SyncFlags, error) {
	var flags SyncFlags
	fs.StringVar(&flags.ConfigPath, "config", "config.yaml", "Configuration file path")
	fs.StringVar(&flags.PrincipalID, "principal", "", "Principal (seller) to sync")
	fs.IntVar(&flags.WindowDays, "days", 0, "Number of days to look back (0 = configured default)")
	fs.IntVar(&flags.PageSize, "page-size", 0, "Orders per page (0 = configured default)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	err := fs.Parse(args)
	return flags, err
}

// ToSyncRequest converts SyncFlags to a sync request
func (f SyncFlags) ToSyncRequest() service.SyncRequest {
	return service.SyncRequest{
		PrincipalID: f.PrincipalID,
		WindowDays:  f.WindowDays,
		PageSize:    f.PageSize,
	}
}
