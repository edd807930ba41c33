package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/quantfish/ammbot/internal/amm"
	"github.com/quantfish/ammbot/internal/config"
	"github.com/quantfish/ammbot/internal/constants"
	"github.com/quantfish/ammbot/internal/jito"
	"github.com/quantfish/ammbot/internal/rpc"
	"github.com/quantfish/ammbot/internal/server"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the API server
// It initializes all dependencies and starts the HTTP server with graceful shutdown
func main() {
	// Initialize structured logger with custom formatting
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	// Load and validate configuration from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Initialize Solana RPC client for pool and confirmation lookups
	chain := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		RateLimit:    cfg.RPCRateLimit,
		Logger:       logger,
	})

	// Initialize relay client for tip floor and bundle status lookups
	relay, err := jito.NewClient(jito.ClientConfig{
		Regions: cfg.RelayRegions,
		UUID:    cfg.RelayUUID,
		Logger:  logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create relay client")
	}

	// Fee schedule for quote responses; fall back to the published defaults
	// when the chain is unreachable at startup
	fees := amm.FeeConfig{
		LPFeeBps:       constants.DefaultLPFeeBps,
		ProtocolFeeBps: constants.DefaultProtocolFeeBps,
		CreatorFeeBps:  constants.DefaultCreatorFeeBps,
	}
	if global, err := amm.FetchGlobalConfig(ctx, chain); err != nil {
		logger.WithError(err).Warn("failed to fetch global config, using default fees")
	} else {
		fees = global.FeeConfig()
	}

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Chain:   chain,
		Relay:   relay,
		Fees:    fees,
		DevMode: cfg.DevMode,
		Logger:  logger,
	}

	// Create HTTP server with configuration and handlers
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	// Setup graceful shutdown in a separate goroutine
	go func() {
		<-sigCh // Wait for shutdown signal
		logger.Info("shutting down")
		cancel()                               // Cancel context to stop ongoing operations
		_ = srv.Shutdown(context.Background()) // Gracefully shutdown HTTP server
	}()

	// Start the HTTP server
	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil {
		// "http: Server closed" is expected during graceful shutdown
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("api server failed")
	}

	// Wait for server to be fully shut down
	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
