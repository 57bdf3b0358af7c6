package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/birdwall/internal/app"
	"github.com/JakeFAU/birdwall/internal/config"
	"github.com/JakeFAU/birdwall/internal/manifest"
	"github.com/JakeFAU/birdwall/internal/orchestrator"
	"github.com/JakeFAU/birdwall/internal/runlock"
)

// fetchApp is the part of app.App the fetch command drives.
type fetchApp interface {
	Run(ctx context.Context, index orchestrator.Index) (orchestrator.Summary, error)
	ExportMetrics(ctx context.Context) error
	Close()
}

// newApp is the application factory; tests replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (fetchApp, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

type fetchOptions struct {
	strategy    string
	backend     string
	maxImages   int
	lockTimeout time.Duration
	dryRun      bool
}

func newFetchCmd() *cobra.Command {
	opts := &fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Search, download and record wallpapers for every category",
		Long: `Runs one pass over the category catalog: searches the primary source (and
the fallback when it returns too few results), processes every candidate with
the configured strategy and saves the manifest once all categories finish.
A search failure or interrupt leaves the manifest on disk unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "override asset.strategy (local or rehost)")
	cmd.Flags().StringVar(&opts.backend, "storage", "", "override storage.backend (local, gcs or memory)")
	cmd.Flags().IntVar(&opts.maxImages, "max-images", -1, "override run.max_images (0 keeps every candidate)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "keep images and events in memory and leave the manifest untouched")
	cmd.Flags().DurationVar(&opts.lockTimeout, "lock-timeout", 0, "wait this long for another run to release the manifest")
	return cmd
}

func runFetch(cmd *cobra.Command, opts *fetchOptions) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	cfg := rt.cfg
	if opts.strategy != "" {
		cfg.Asset.Strategy = opts.strategy
	}
	if opts.backend != "" {
		cfg.Storage.Backend = opts.backend
	}
	if opts.maxImages >= 0 {
		cfg.Run.MaxImages = opts.maxImages
	}
	if opts.dryRun {
		cfg.Run.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := rt.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lock, err := runlock.Acquire(ctx, cfg.Manifest.Path, opts.lockTimeout)
	if err != nil {
		return err
	}
	logger.Debug("run lock acquired", zap.String("lock", lock.Path()))
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release run lock", zap.Error(err))
		}
	}()

	index := manifest.Load(cfg.Manifest.Path, logger.Named("manifest"))

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer a.Close()

	summary, runErr := a.Run(ctx, index)
	printSummary(cmd.OutOrStdout(), summary, index.Path(), cfg.Run.DryRun)

	if err := a.ExportMetrics(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("failed to export metrics", zap.Error(err))
	}
	return runErr
}

func printSummary(w io.Writer, summary orchestrator.Summary, manifestPath string, dryRun bool) {
	for _, c := range summary.Categories {
		fmt.Fprintf(w, "%-14s %3d candidates %3d stored %3d failed\n", c.Name, c.Candidates, c.Succeeded, c.Failed)
	}
	if dryRun {
		fmt.Fprintf(w, "dry run: %d records not written to %s\n", summary.Succeeded(), manifestPath)
		return
	}
	if summary.Saved {
		fmt.Fprintf(w, "saved %d new records to %s in %s\n", summary.Succeeded(), manifestPath, summary.Duration.Round(time.Millisecond))
		return
	}
	fmt.Fprintf(w, "manifest %s not updated\n", manifestPath)
}
