package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/zgpcy/aws-cost-api/internal/aws"
	"github.com/zgpcy/aws-cost-api/internal/clock"
	"github.com/zgpcy/aws-cost-api/internal/config"
	"github.com/zgpcy/aws-cost-api/internal/logger"
	"github.com/zgpcy/aws-cost-api/internal/metrics"
	"github.com/zgpcy/aws-cost-api/internal/report"
	"github.com/zgpcy/aws-cost-api/internal/server"
	"github.com/zgpcy/aws-cost-api/internal/version"
)

const (
	// DefaultShutdownTimeout is the maximum time to wait for graceful shutdown
	DefaultShutdownTimeout = 30 * time.Second

	// verifyTimeout bounds the optional credential check at startup
	verifyTimeout = 15 * time.Second
)

var (
	configPath = flag.String("config", "", "Path to an optional YAML configuration file")
	envFile    = flag.String("env-file", ".env", "Path to a dotenv file loaded into the environment if present")
	host       = flag.String("host", "", "Listen host (overrides config and environment)")
	port       = flag.Int("port", 0, "Listen port (overrides config and environment)")
)

func main() {
	flag.Parse()

	// Variables already set in the environment win over the dotenv file
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath, config.WithHost(*host), config.WithPort(*port))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel)
	info := version.Info()
	logger.Info("AWS Cost Explorer API starting",
		"version", info.Version,
		"git_commit", info.GitCommit,
		"config_path", *configPath)

	logger.Info("Configuration loaded successfully",
		"address", cfg.Address(),
		"region", aws.Region,
		"api_timeout_seconds", cfg.APITimeout,
		"verify_credentials", cfg.VerifyCredentials)

	// Refuse to serve without credentials
	ctx := context.Background()
	client, err := aws.NewClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create Cost Explorer client", "error", err)
		os.Exit(1)
	}
	logger.Info("Cost Explorer client initialized successfully")

	if cfg.VerifyCredentials {
		verifyCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
		account, err := client.VerifyIdentity(verifyCtx)
		cancel()
		if err != nil {
			logger.Error("Failed to verify AWS credentials", "error", err)
			os.Exit(1)
		}
		logger.Info("AWS credentials verified", "account", account)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		logger.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}

	reports := report.NewService(client, clock.RealClock{}, logger, m)
	srv := server.NewServer(cfg, reports, m, reg, logger)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("Server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		logger.Info("Received shutdown signal, starting graceful shutdown", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during server shutdown", "error", err)
			os.Exit(1)
		}

		logger.Info("Server stopped gracefully")
	}
}
