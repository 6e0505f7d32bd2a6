package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"presenceanalyzer/internal/analyzer"
	"presenceanalyzer/internal/config"
	"presenceanalyzer/internal/directory"
	appLog "presenceanalyzer/internal/log"
	"presenceanalyzer/internal/web"
)

const shutdownTimeout = 10 * time.Second

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard and JSON API",
	Long: `Starts the HTTP server. When directory.url is configured the user
directory is refreshed on the directory.refresh cron schedule.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}

	ttl, err := cfg.CacheTTLDuration()
	if err != nil {
		return err
	}

	appLog.Info("effective config",
		"listen", cfg.Listen,
		"csv", cfg.Data.CSV,
		"xml", cfg.Data.XML,
		"cache_ttl", ttl,
		"timezone", cfg.Timezone,
		"locale", cfg.Locale,
		"directory_url_set", cfg.Directory.URL != "",
	)

	svc := analyzer.New(analyzer.Options{
		Source:    cfg.Data.CSV,
		Delimiter: cfg.Delimiter(),
		TTL:       ttl,
	})
	users := directory.NewProvider(cfg.Data.XML, ttl, nil)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Directory.URL != "" {
		sched, err := startDirectoryRefresh(ctx, cfg, users)
		if err != nil {
			return err
		}
		defer sched.Stop()
	}

	server := web.NewServer(cfg, svc, users)
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("http server listening", "addr", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http server shutdown failed", err)
		return err
	}
	appLog.Info("presence exiting")
	return nil
}

// startDirectoryRefresh schedules the XML directory download and drops the
// cached directory after each successful run.
func startDirectoryRefresh(ctx context.Context, cfg *config.Config, users *directory.Provider) (*cron.Cron, error) {
	timeout, err := cfg.DirectoryTimeout()
	if err != nil {
		return nil, err
	}
	fetcher := directory.NewFetcher(timeout)

	refresh := func() {
		res, err := fetcher.Fetch(ctx, cfg.Directory.URL, cfg.Data.XML)
		if err != nil {
			appLog.Error("directory refresh failed", err)
			return
		}
		if !res.NotModified {
			users.Invalidate()
		}
	}

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Directory.Refresh, refresh); err != nil {
		return nil, fmt.Errorf("invalid directory.refresh %q: %w", cfg.Directory.Refresh, err)
	}
	sched.Start()
	appLog.Info("directory refresh scheduled", "spec", cfg.Directory.Refresh)
	return sched, nil
}
