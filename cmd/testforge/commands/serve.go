package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/testforge/testforge/am"
	"github.com/testforge/testforge/artifact"
	"github.com/testforge/testforge/db"
	"github.com/testforge/testforge/errors"
	"github.com/testforge/testforge/execution"
	"github.com/testforge/testforge/gen"
	"github.com/testforge/testforge/logger"
	"github.com/testforge/testforge/runner"
	"github.com/testforge/testforge/server"
	"github.com/testforge/testforge/testcase"
	"github.com/testforge/testforge/version"
)

// ServeCmd starts the TestForge HTTP API server
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the TestForge API server",
	Long: `Launch the HTTP API: test generation previews, saved test cases,
and asynchronous executions (Maven builds, browser checks, load tests).`,
	RunE: runServe,
}

var (
	serveDBPath string
	servePort   int
)

func init() {
	ServeCmd.Flags().StringVar(&serveDBPath, "db-path", "", "Custom database path (overrides config)")
	ServeCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if serveDBPath != "" {
		cfg.Database.Path = serveDBPath
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	log := logger.Logger
	defer logger.Sync()

	database, err := db.Open(cfg.Database.Path, log)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	if err := db.Migrate(database, log); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	artifacts, err := artifact.NewStore(cfg.Artifacts.Dir)
	if err != nil {
		return errors.Wrap(err, "failed to create artifact store")
	}

	dispatcher := execution.NewDispatcher(context.Background(), execution.DispatcherConfig{
		Workers:    cfg.Dispatch.Workers,
		QueueDepth: cfg.Dispatch.QueueDepth,
	}, log)
	dispatcher.Start()
	defer dispatcher.Stop()

	genClient := gen.NewOllamaClient(&cfg.Generate)

	registry := execution.NewRegistry()
	runner.RegisterAll(registry, &cfg.Runners, genClient, artifacts, log)

	execStore := execution.NewStore(log)
	orchestrator := execution.NewOrchestrator(execStore, dispatcher, registry, log)

	srv := server.NewServer(cfg, orchestrator, testcase.NewStore(database), artifacts, genClient, log)

	watchConfigReloads(log)

	printBanner(cfg)

	// Shut the dispatcher down cleanly on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case sig := <-sigCh:
		log.Infow("Shutting down", "signal", sig.String())
		return nil
	case err := <-errCh:
		return errors.Wrap(err, "server stopped")
	}
}

// watchConfigReloads logs config file changes; a restart is still
// required for settings read at startup.
func watchConfigReloads(log *zap.SugaredLogger) {
	configPath := "testforge.toml"
	if _, err := os.Stat(configPath); err != nil {
		return
	}

	watcher, err := am.NewConfigWatcher(configPath)
	if err != nil {
		log.Warnw("Config watcher unavailable", "error", err)
		return
	}
	watcher.OnReload(func(cfg *am.Config) error {
		log.Infow("Config file changed",
			"path", configPath,
			"hint", "restart to apply server settings")
		return nil
	})
	watcher.Start()
}

func printBanner(cfg *am.Config) {
	pterm.DefaultBox.WithTitle("TestForge " + version.Get().Short()).Println(
		fmt.Sprintf("API      http://localhost:%d\nDatabase %s\nModel    %s\nWorkers  %d",
			cfg.Server.Port, cfg.Database.Path, cfg.Generate.Model, cfg.Dispatch.Workers))
}
