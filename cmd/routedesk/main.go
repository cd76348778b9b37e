package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"RouteDesk/internal/config"
	"RouteDesk/internal/store"
	"RouteDesk/internal/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	pipelineURL string
	addressURL  string
	dbPath      string
	debug       bool
)

var rootCmd = &cobra.Command{
	Use:           "routedesk",
	Short:         "Chat with the support pipeline and plan address routes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultConfigFile, "Path to YAML config file")
	pf.StringVar(&pipelineURL, "pipeline-url", "", "Chatbot pipeline endpoint")
	pf.StringVar(&addressURL, "address-url", "", "Address optimization API base URL")
	pf.StringVar(&dbPath, "db", "", "SQLite database path")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(chatCmd, addressesCmd)
}

// app holds what every subcommand needs once flags are parsed
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	inst    telemetry.Instruments
	store   *store.SQLiteStore
	cleanup []func()
}

func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

// loadConfig merges file, environment and explicitly set flags
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("pipeline-url") {
		cfg.PipelineURL = pipelineURL
	}
	if flags.Changed("address-url") {
		cfg.AddressURL = addressURL
	}
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("debug") {
		cfg.Debug = debug
	}
	return cfg, nil
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{cfg: cfg}

	logger, logFile, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	a.cleanup = append(a.cleanup, func() { logFile.Close() })

	tracer, meter, shutdown, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.inst = telemetry.Instruments{Tracer: tracer, Meter: meter}
	a.cleanup = append(a.cleanup, shutdown)

	st, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.store = st
	a.cleanup = append(a.cleanup, func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	})

	return a, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
