package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/civicscan/civicscan/internal/browser"
	"github.com/civicscan/civicscan/internal/change"
	"github.com/civicscan/civicscan/internal/config"
	"github.com/civicscan/civicscan/internal/hashstore"
	"github.com/civicscan/civicscan/internal/logger"
	"github.com/civicscan/civicscan/internal/pipeline"
	"github.com/civicscan/civicscan/internal/scraper"
	"github.com/civicscan/civicscan/internal/sink"
	"github.com/civicscan/civicscan/internal/structurer"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitChanged = 2
)

var (
	flagConfig        string
	flagDataDir       string
	flagOutput        string
	flagFormat        string
	flagSources       []string
	flagNoStructure   bool
	flagRefresh       bool
	flagVerbose       bool
	flagSummaryFormat string
)

// exitCode is set by runScan and used by Execute.
var exitCode = ExitSuccess

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "civicscan",
		Short: "Scrape municipal project listings that changed since the last run",
		Long: `A CLI tool that re-checks municipal project listing pages, extracts
projects from the pages whose content changed since the last run, restructures
their descriptions with a text-generation service and writes them to a table
with a fixed column layout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runScan,
	}

	cmd.Flags().StringVar(&flagConfig, "config", config.DefaultPath, "Path to YAML config file")
	cmd.Flags().StringVar(&flagDataDir, "data-dir", "", "Data directory for stored fingerprints")
	cmd.Flags().StringVar(&flagOutput, "output", "", "Output file for the project table")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output table format: csv or json")
	cmd.Flags().StringArrayVar(&flagSources, "source", nil, "Source URL to check (repeatable, replaces configured sources)")
	cmd.Flags().BoolVar(&flagNoStructure, "no-structure", false, "Keep descriptions as scraped")
	cmd.Flags().BoolVar(&flagRefresh, "refresh", false, "Treat every source as changed")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging and summary")
	cmd.Flags().StringVar(&flagSummaryFormat, "summary-format", "text", "Summary format: text or json")

	return cmd
}

// loadConfig reads the config file and applies environment and flag overrides.
func loadConfig(cmd *cobra.Command, getenv func(string) string) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(getenv)

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = flagDataDir
	}
	if flags.Changed("output") {
		cfg.Output.Path = flagOutput
	}
	if flags.Changed("format") {
		cfg.Output.Format = strings.ToLower(flagFormat)
	}
	if flags.Changed("source") {
		cfg.Sources = flagSources
	}
	if flagNoStructure {
		cfg.Structurer.Backend = "none"
	}
	if flagVerbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runScan is the main command logic
func runScan(cmd *cobra.Command, args []string) error {
	summaryFormat := OutputFormat(strings.ToLower(flagSummaryFormat))
	if summaryFormat != FormatText && summaryFormat != FormatJSON {
		return fmt.Errorf("invalid summary format: %s (must be 'text' or 'json')", flagSummaryFormat)
	}

	cfg, err := loadConfig(cmd, os.Getenv)
	if err != nil {
		return err
	}

	logger.SetDefault(logger.New(logger.ParseLevel(cfg.Logging.Level), os.Stderr))
	logger.Debug("Configuration loaded", logger.Fields{
		"config": cfg.String(),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	selector, err := newSelector(cfg)
	if err != nil {
		return err
	}

	out, err := sink.New(sink.Format(cfg.Output.Format), cfg.Output.Path)
	if err != nil {
		return err
	}

	detector := change.NewDetector(store, cfg.Browser.WaitTimeout)
	detector.Force = flagRefresh

	metrics := logger.DefaultMetrics()
	orchestrator, err := pipeline.New(cfg.Sources, pipeline.Deps{
		Launcher: browser.NewChrome(browser.ChromeOptions{
			Headless:          cfg.Browser.Headless,
			ExecPath:          cfg.Browser.ExecPath,
			UserAgent:         cfg.Browser.UserAgent,
			NavigationTimeout: cfg.Browser.NavigationTimeout,
		}),
		Detector:   detector,
		Selector:   selector,
		Structurer: newStructurer(cfg).WithMetrics(metrics),
		Store:      store,
		Sink:       out,
		Metrics:    metrics,
	})
	if err != nil {
		return err
	}

	report, runErr := orchestrator.Run(ctx)

	summary := NewSummary(report, cfg.Output.Path, metrics.GetSnapshot(), runErr)
	if err := WriteSummary(os.Stdout, summary, summaryFormat, flagVerbose); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	if report.Changed() > 0 {
		exitCode = ExitChanged
	}
	return nil
}

// openStore returns the configured fingerprint store and a function that
// releases it.
func openStore(ctx context.Context, cfg *config.Config) (hashstore.Store, func(), error) {
	switch strings.ToLower(cfg.HashStore.Backend) {
	case "mongo":
		store, err := hashstore.NewMongoStore(ctx, cfg.HashStore.MongoURI, cfg.HashStore.Database, cfg.HashStore.Collection)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing hash store: %w", err)
		}
		release := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.Close(closeCtx); err != nil {
				logger.Warn("Closing hash store failed", logger.Fields{"reason": err.Error()})
			}
		}
		return store, release, nil
	default:
		store, err := hashstore.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing hash store: %w", err)
		}
		return store, func() {}, nil
	}
}

// newSelector builds the adapter selector with configured routes first.
func newSelector(cfg *config.Config) (*scraper.Selector, error) {
	opts := scraper.Options{
		WaitTimeout: cfg.Browser.WaitTimeout,
		SettleDelay: cfg.Browser.SettleDelay,
		ReturnDelay: cfg.Browser.ReturnDelay,
	}

	routes := make([]scraper.Route, 0, len(cfg.Adapters))
	for _, r := range cfg.Adapters {
		adapter, ok := scraper.ByName(r.Adapter, opts)
		if !ok {
			return nil, fmt.Errorf("unknown adapter %q for pattern %q", r.Adapter, r.Pattern)
		}
		routes = append(routes, scraper.Route{Pattern: r.Pattern, Adapter: adapter})
	}

	return scraper.NewSelector(opts, routes...), nil
}

// newStructurer returns a structurer for the configured backend. Backend
// "none" yields a pass-through structurer.
func newStructurer(cfg *config.Config) *structurer.Structurer {
	opts := structurer.Options{
		MaxTokens:         cfg.Structurer.MaxTokens,
		RequestsPerSecond: cfg.Structurer.RequestsPerSecond,
	}

	var gen structurer.Generator
	switch strings.ToLower(cfg.Structurer.Backend) {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("No OpenAI key set, descriptions will be kept as scraped", logger.Fields{
				"env": config.EnvOpenAIKey,
			})
		}
		gen = structurer.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.Structurer.Model, cfg.Structurer.BaseURL)
	case "ollama":
		gen = structurer.NewOllamaGenerator(cfg.Structurer.BaseURL, cfg.Structurer.Model)
	}

	return structurer.New(gen, opts)
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
	os.Exit(exitCode)
}
