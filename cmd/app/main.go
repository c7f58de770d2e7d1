package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"AeroPulse/internal/di"
	"AeroPulse/pkg/config"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	prettyPrint bool
)

func main() {
	root := &cobra.Command{
		Use:           "aeropulse",
		Short:         "Airport KPI aggregation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the refresh loop and the dashboard API",
		RunE:  runServe,
	}
	snapshot := &cobra.Command{
		Use:   "snapshot",
		Short: "Run one aggregation cycle and print the dashboard as JSON",
		RunE:  runSnapshot,
	}
	snapshot.Flags().BoolVar(&prettyPrint, "pretty", false, "indent JSON output")
	health := &cobra.Command{
		Use:   "health",
		Short: "Test every source connection and print the results",
		RunE:  runHealth,
	}
	health.Flags().BoolVar(&prettyPrint, "pretty", false, "indent JSON output")

	root.AddCommand(serve, snapshot, health)
	root.RunE = runServe

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "aeropulse: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Wire DI: Initialize all dependencies
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	return app.Run(ctxOf(cmd))
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, cleanup, err := di.InitializeEngine(cfg)
	if err != nil {
		return fmt.Errorf("engine initialization failed: %w", err)
	}
	defer cleanup()

	return printJSON(engine.Run(ctxOf(cmd)))
}

func runHealth(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, cleanup, err := di.InitializeEngine(cfg)
	if err != nil {
		return fmt.Errorf("engine initialization failed: %w", err)
	}
	defer cleanup()

	return printJSON(engine.HealthCheck(ctxOf(cmd)))
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	if prettyPrint {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
