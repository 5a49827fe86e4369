package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/flowman-io/flowman/pkg/api"
	"github.com/flowman-io/flowman/pkg/config"
	"github.com/flowman-io/flowman/pkg/engine"
	"github.com/flowman-io/flowman/pkg/logging"
	"github.com/flowman-io/flowman/pkg/scheduler"
	"github.com/flowman-io/flowman/pkg/storage"
	"github.com/flowman-io/flowman/pkg/tasks"
)

const version = "0.1.0"

func main() {
	// Load environment variables from a .env file if present
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flowman %s\n", version)
		return
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg = config.FromEnv()
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Output:   cfg.Logging.Output,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", logging.F("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	// Storage backend for flow definitions and execution state
	provider, err := storage.NewProvider(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage provider: %w", err)
	}
	if err := provider.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer provider.Close()

	logger.Info("storage initialized", logging.F("type", cfg.Storage.Type))

	// Built-in task types
	registry := engine.NewTaskRegistry(logger)
	tasks.RegisterBuiltins(registry, tasks.Deps{
		Logger: logger,
		Store:  tasks.NewMemoryDataStore(),
	})

	// Execution events feed websocket subscribers
	ws := api.NewWebSocketManager(logger)

	eng := engine.NewEngine(registry, logger,
		engine.WithExecutionStore(provider.GetExecutionStore()),
		engine.WithListener(ws),
	)

	server := api.NewServer(cfg, eng, provider.GetFlowStore(), ws, logger)

	// Cron-triggered flows
	sched := scheduler.NewScheduler(eng, provider.GetFlowStore(), logger)
	if cfg.Scheduler.Enabled {
		for flowID, spec := range cfg.Scheduler.Schedules {
			if err := sched.Schedule(flowID, spec); err != nil {
				logger.Warn("skipping schedule", logging.F("flow_id", flowID), logging.F("error", err.Error()))
			}
		}
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", logging.F("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Stop(ctx)
}
