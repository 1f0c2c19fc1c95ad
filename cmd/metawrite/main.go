package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/metawrite/metawrite/internal/config"
	"github.com/metawrite/metawrite/internal/metrics"
	"github.com/metawrite/metawrite/internal/pipeline"
	"github.com/metawrite/metawrite/internal/rewrite"
	"github.com/metawrite/metawrite/internal/scrape"
	"github.com/metawrite/metawrite/internal/search"
	"github.com/metawrite/metawrite/internal/server"
	"github.com/metawrite/metawrite/pkg/useragent"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "metawrite",
	Short:        "Search, scrape and rewrite tour-guide pages into publishable copy",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to an optional config file (settings default to env vars)")
}

func run(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	searcher, err := search.NewClient(search.ClientConfig{
		APIKey:   cfg.GoogleAPIKey,
		CSEID:    cfg.GoogleCSEID,
		Excluded: search.NewExcludedDomains(cfg.ExcludedDomains),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	scraper, err := scrape.New(scrape.Config{
		Timeout:     cfg.ScrapeTimeout,
		ImagePrefix: cfg.ImagePrefix,
		UAPool:      useragent.NewPool(nil),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	rewriter, err := rewrite.New(rewrite.Config{
		APIKey:      cfg.OpenAIKey,
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: cfg.OpenAITemperature,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	pipe := pipeline.New(pipeline.Config{
		TargetSite: cfg.TargetSite,
		MaxResults: cfg.MaxResults,
		Logger:     logger,
	}, searcher, scraper, rewriter)

	srv := server.New(server.Config{
		Addr:       cfg.ListenAddr,
		TargetSite: cfg.TargetSite,
		Logger:     logger,
	}, pipe, searcher)

	msrv := metrics.Start(cfg.MetricsAddr)
	logger.Info("metrics server listening", "addr", cfg.MetricsAddr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gCtx)
	})
	g.Go(func() error {
		<-gCtx.Done()
		return msrv.Stop(context.Background())
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
