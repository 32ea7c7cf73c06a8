package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/config"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/internal/presentation/tui"
	httpAdapter "github.com/aretw0/intake/pkg/adapters/http"
	"github.com/aretw0/intake/pkg/locale"
	"github.com/aretw0/intake/pkg/observability"
	"github.com/aretw0/intake/pkg/submission"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the intake wizard behind a JSON API, with server-sent navigation events and Prometheus metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("addr") {
			cfg.Addr, _ = cmd.Flags().GetString("addr")
		}
		if err := runServe(cmd.Context(), cfg); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	backend, err := config.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	opts := []intake.Option{
		intake.WithLogger(logger),
		intake.WithRecordStore(backend.Store),
		intake.WithStoreName(cfg.Store.Name),
		intake.WithSource(cfg.Source),
		intake.WithClinical(cfg.Clinical),
		intake.WithLifecycleHooks(metrics.Hooks().Combine(observability.LogHooks(logger))),
	}
	if backend.Locker != nil {
		opts = append(opts, intake.WithLocker(backend.Locker))
	}
	if cfg.Submit.BaseURL != "" {
		client := submission.NewClient(cfg.Submit.BaseURL, cfg.Submit.Route, cfg.Submit.Timeout)
		opts = append(opts, intake.WithSubmitter(client))
		logger.Info("submissions enabled", "endpoint", client.Endpoint())
	} else {
		logger.Warn("submit.base_url not set, submissions are disabled")
	}
	opts = append(opts, intake.WithGuesser(newGuesser(cfg, backend, logger)))

	wiz, err := intake.New(opts...)
	if err != nil {
		return err
	}

	streams := httpAdapter.NewStreamManager()
	handlerOpts := []httpAdapter.Option{
		httpAdapter.WithLogger(logger),
		httpAdapter.WithGatherer(reg),
		httpAdapter.WithStreams(streams),
	}
	if cfg.TrustProxy {
		handlerOpts = append(handlerOpts, httpAdapter.WithTrustedProxy())
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpAdapter.NewHandler(wiz, handlerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Open event streams would otherwise hold Shutdown until its deadline.
	srv.RegisterOnShutdown(streams.Close)

	if term.IsTerminal(int(os.Stdout.Fd())) {
		tui.PrintBanner(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting intake server", "addr", srv.Addr, "store", cfg.Store.Backend, "version", intake.Version)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return srv.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("intake server stopped gracefully")
	return nil
}

func newGuesser(cfg config.Config, backend *config.Backend, logger *slog.Logger) *locale.Guesser {
	opts := []locale.GuesserOption{
		locale.WithLogger(logger),
		locale.WithCache(backend.Store, cfg.Store.Name),
	}
	if !cfg.Geo.Disabled {
		opts = append(opts, locale.WithLocator(locale.NewIPWho(cfg.Geo.LookupURL, cfg.Geo.Timeout)))
	}
	return locale.NewGuesser(opts...)
}
