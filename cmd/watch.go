package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conneroisu/stencil/internal/config"
	"github.com/conneroisu/stencil/internal/logging"
	"github.com/conneroisu/stencil/internal/site"
	"github.com/conneroisu/stencil/internal/watcher"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Rebuild the site whenever a source file changes",
	Long: `Build the site, then watch the site root and rebuild on every change
without serving. Output and release directories, hidden files and editor
temp files are ignored. A failed rebuild is reported and watching continues.

Examples:
  stencil watch
  stencil watch --debounce 1s`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("debounce", 300*time.Millisecond, "how long to wait for more changes before rebuilding")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openSite(cfg, logger, false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Build(ctx); err != nil {
		logger.Error(ctx, err, "Initial build failed")
	}

	fw, err := startWatching(ctx, s, cfg, logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes... (Press Ctrl+C to stop)")
	<-ctx.Done()
	fmt.Fprintln(cmd.OutOrStdout(), "\nStopping file watcher...")
	return nil
}

// startWatching watches s and rebuilds it on every batch of changes,
// reporting each outcome to listeners. Callers must Stop the watcher.
func startWatching(ctx context.Context, s *site.Site, cfg *config.Config, logger logging.Logger, listeners ...watcher.BuildListener) (*watcher.FileWatcher, error) {
	fw, err := watcher.NewFileWatcher(cfg.Watch.Debounce, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	rebuilder := watcher.NewRebuilder(s, logger)
	for _, listener := range listeners {
		rebuilder.OnBuild(listener)
	}
	fw.AddHandler(rebuilder.Handler(ctx))

	err = watcher.WatchSite(fw, watcher.SiteOptions{
		Root:     s.Root(),
		SkipDirs: []string{s.OutputDir(), s.ReleaseDir()},
		Ignore:   cfg.Watch.Ignore,
	})
	if err != nil {
		fw.Stop()
		return nil, fmt.Errorf("failed to watch %s: %w", s.Root(), err)
	}

	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	logger.Info(ctx, "Watching site", "root", s.Root(), "dirs", len(fw.WatchList()))
	return fw, nil
}
