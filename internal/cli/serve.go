package cli

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/marketplace-order-sync/internal/api"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/config"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/logging"
)

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	ConfigPath string
	Port       int
	Verbose    bool
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags() *ServeFlags {
	flags := &ServeFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "Configuration file path")
	flag.IntVar(&flags.Port, "port", 0, "Port to listen on (0 = configured port)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}

// RunServe runs the API server.
func RunServe(cfg *config.Config, flags *ServeFlags) error {
	// Set up logging
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	app, err := NewApp(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	app.SyncService.StartBackgroundCleanup(5 * time.Minute)
	defer app.SyncService.StopBackgroundCleanup()

	// Create API config
	apiCfg := api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Marketplace:    app.Client.Name(),
	}
	if flags.Port > 0 {
		apiCfg.Port = flags.Port
	}

	// Create and start server
	server := api.NewServer(apiCfg, app.Store, app.SyncService, app.OAuth, app.Credentials, logger)

	// Handle graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		for _, job := range app.SyncService.ListActiveSyncJobs() {
			_ = app.SyncService.CancelSync(job.ID)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}

// RunSync runs one sync in the foreground and prints a summary.
// SIGINT cancels the run before its next page.
func RunSync(cfg *config.Config, flags SyncFlags) error {
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "cli")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	req := flags.ToSyncRequest()

	PrintHeader(app.Client.Name(), cfg.Marketplace.Mode)
	window := req.WindowDays
	if window <= 0 {
		window = cfg.Sync.DefaultWindowDays
	}
	PrintConfiguration(req.PrincipalID, window, req.PageSize)

	result, err := app.SyncService.RunSync(ctx, req)
	if err != nil {
		return err
	}

	PrintSyncSummary(ctx, result, app.Store)
	return nil
}

// LoadConfig loads path if it exists and falls back to the environment
func LoadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err == nil {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}
