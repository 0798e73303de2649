package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"insight_server/config"
	"insight_server/internal/bootstrap"
	"insight_server/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 30 * time.Second // Maximum time to wait for graceful shutdown
)

func main() {
	mode := flag.String("mode", "all", "Run mode: api, worker, all, analyze")
	input := flag.String("input", "-", "analyze mode: JSON mail batch file, - for stdin")
	period := flag.Int("period", 0, "analyze mode: only count the last N days (0 = all time)")
	flag.Parse()

	// analyze mode prints its result on stdout
	logOut := os.Stdout
	if *mode == "analyze" {
		logOut = os.Stderr
	}
	logger.Init(logger.Config{
		Level:   logger.LevelInfo,
		Service: "insight",
		Output:  logOut,
	})

	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	ctx := context.Background()

	if *mode == "analyze" {
		if err := bootstrap.RunAnalyze(ctx, cfg, *input, *period, os.Stdout); err != nil {
			logger.Fatal("Analysis failed: %v", err)
		}
		return
	}

	deps, cleanup, err := bootstrap.NewDependencies(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies: %v", err)
	}
	defer cleanup()

	switch *mode {
	case "api":
		runAPI(cfg, deps, nil)
	case "worker":
		runWorker(cfg, deps)
	case "all":
		w := bootstrap.NewWorker(cfg, deps)
		go w.Start()
		runAPI(cfg, deps, w)
	default:
		logger.Fatal("Unknown mode: %s", *mode)
	}
}

// runAPI serves until SIGINT/SIGTERM; w, when set, is stopped first.
func runAPI(cfg *config.Config, deps *bootstrap.Dependencies, w *bootstrap.Worker) {
	app := bootstrap.NewAPI(cfg, deps)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server (timeout: %v)...", shutdownTimeout)

		if w != nil {
			w.Stop()
		}

		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("Error shutting down: %v", err)
		} else {
			logger.Info("API server shut down gracefully")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("Starting API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

func runWorker(cfg *config.Config, deps *bootstrap.Dependencies) {
	w := bootstrap.NewWorker(cfg, deps)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker (timeout: %v)...", shutdownTimeout)

		done := make(chan struct{})
		go func() {
			w.Stop()
			close(done)
		}()

		select {
		case <-done:
			logger.Info("Worker shut down gracefully")
		case <-time.After(shutdownTimeout):
			logger.Warn("Worker shutdown timed out, forcing exit")
			os.Exit(1)
		}
	}()

	logger.Info("Starting worker...")
	w.Start()
}
