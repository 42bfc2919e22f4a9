package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/searchcore/internal/config"
	"github.com/AleutianAI/searchcore/internal/httpapi"
	"github.com/AleutianAI/searchcore/internal/index"
	"github.com/AleutianAI/searchcore/internal/observability"
)

func newServeCommand() *cobra.Command {
	var (
		configPath        string
		indexDir          string
		port              int
		adminToken        string
		postingsCacheSize int
		textCacheSize     int
		maxInFlight       int
		logLevel          string
		metricsStdout     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search queries over a sealed index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configPath, config.Default())
			if err != nil {
				return err
			}
			cfg = config.ApplyEnv(cfg)

			if cmd.Flags().Changed("index") {
				cfg.IndexDir = indexDir
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("admin-token") {
				cfg.AdminToken = adminToken
			}
			if cmd.Flags().Changed("postings-cache-size") {
				cfg.PostingsCacheSize = postingsCacheSize
			}
			if cmd.Flags().Changed("text-cache-size") {
				cfg.TextCacheSize = textCacheSize
			}
			if cmd.Flags().Changed("max-in-flight") {
				cfg.MaxInFlight = maxInFlight
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("metrics-stdout") {
				cfg.MetricsStdout = metricsStdout
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx := cmd.Context()
			providers, err := observability.Setup(ctx, "searchcore", cfg.LogLevel, cfg.MetricsStdout)
			if err != nil {
				return fmt.Errorf("observability setup: %w", err)
			}
			defer func() { _ = providers.Shutdown(context.Background()) }()

			reader, err := index.Open(cfg.IndexDir, index.ReaderOptions{
				PostingsCacheSize: cfg.PostingsCacheSize,
				TextCacheSize:     cfg.TextCacheSize,
			})
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}

			router := httpapi.NewRouter(reader, cfg)
			printBanner(cfg, reader.NumDocs())

			runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			slog.Info("search-core listening", slog.Int("port", cfg.Port), slog.String("index_dir", cfg.IndexDir))
			addr := fmt.Sprintf(":%d", cfg.Port)
			return httpapi.Serve(runCtx, router, addr)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to an optional YAML config file")
	cmd.Flags().StringVar(&indexDir, "index", "", "directory containing a sealed index")
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on")
	cmd.Flags().StringVar(&adminToken, "admin-token", "", "bearer token required for /admin routes (disabled if empty)")
	cmd.Flags().IntVar(&postingsCacheSize, "postings-cache-size", 0, "postings LRU capacity, in terms")
	cmd.Flags().IntVar(&textCacheSize, "text-cache-size", 0, "text LRU capacity, in documents")
	cmd.Flags().IntVar(&maxInFlight, "max-in-flight", 0, "maximum concurrent in-flight requests")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&metricsStdout, "metrics-stdout", false, "also dump periodic metric snapshots to stdout")

	return cmd
}

func printBanner(cfg config.Config, numDocs uint32) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return
	}
	style := bannerStyle()
	fmt.Println(style.Render(fmt.Sprintf(
		"search-core\nindex: %s (%d docs)\nlistening on :%d",
		cfg.IndexDir, numDocs, cfg.Port,
	)))
}
