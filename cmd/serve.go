package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conneroisu/stencil/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Serve the site with live reload",
	Long: `Build the site, serve the output directory and rebuild on every change.
Open pages reload after a successful rebuild; a failed rebuild is logged to
the browser console and the last good output keeps being served.

Examples:
  stencil serve
  stencil serve --port 3000
  stencil serve --host 0.0.0.0 --no-live-reload`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveNoLiveReload bool

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8000, "port to serve on (0 picks a free port)")
	serveCmd.Flags().String("host", "localhost", "host to bind to")
	serveCmd.Flags().BoolVar(&serveNoLiveReload, "no-live-reload", false, "do not inject the live-reload script")

	AddFlagValidation(serveCmd.Flags(), "port", ValidatePort)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serveNoLiveReload {
		cfg.Server.LiveReload = false
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

	srv := server.New(s.Fs(), s.PublishDir(), server.Config{
		Host:       cfg.Server.Host,
		Port:       cfg.Server.Port,
		LiveReload: cfg.Server.LiveReload,
	}, logger)

	fw, err := startWatching(ctx, s, cfg, logger, srv.NotifyBuild)
	if err != nil {
		_ = srv.Shutdown(context.Background())
		return err
	}
	defer fw.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		_ = srv.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during server shutdown: %w", err)
	}
	return <-errCh
}
