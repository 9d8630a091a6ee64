package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vertwheel/pacman-p2/internal/actor"
	"github.com/vertwheel/pacman-p2/internal/config"
	"github.com/vertwheel/pacman-p2/internal/engine"
	"github.com/vertwheel/pacman-p2/internal/events"
	"github.com/vertwheel/pacman-p2/internal/health"
	httpServer "github.com/vertwheel/pacman-p2/internal/http"
	"github.com/vertwheel/pacman-p2/internal/metrics"
	"github.com/vertwheel/pacman-p2/internal/policy"
	"github.com/vertwheel/pacman-p2/internal/service"
	"github.com/vertwheel/pacman-p2/internal/storage"
)

func newRootCmd(v *viper.Viper) *cobra.Command {
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:   "pacman",
		Short: "Reactive pacman decision policies",
		Long: `Runs pacman decision policies against the built-in grid engine, or hosts
them behind an HTTP API so an external engine can ask for one action per tick.`,
		SilenceUsage: true,
	}

	// Storage, events and logging are shared by play and serve
	rootCmd.PersistentFlags().String("database-url", defaults.DatabaseURL, "PostgreSQL DSN (in-memory store when empty)")
	rootCmd.PersistentFlags().Int("max-transitions", defaults.MaxTransitions, "Transitions kept by the in-memory store")
	rootCmd.PersistentFlags().String("nats-url", defaults.NATSURL, "NATS server URL (events disabled when empty)")
	rootCmd.PersistentFlags().String("nats-subject", defaults.NATSSubject, "NATS subject prefix")
	rootCmd.PersistentFlags().String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")

	playCmd := &cobra.Command{
		Use:   "play",
		Short: "Play episodes of a policy on a layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, v)
		},
	}
	playCmd.Flags().String("policy", defaults.Policy, "Policy name (see 'pacman policies')")
	playCmd.Flags().String("layout", defaults.Layout, "Built-in layout name or path to a .lay file")
	playCmd.Flags().Int64("seed", defaults.Seed, "Base seed; 0 seeds every episode from the clock")
	playCmd.Flags().Int("max-episodes", defaults.MaxEpisodes, "Episodes to play (-1 for unlimited)")
	playCmd.Flags().Int("max-steps", defaults.MaxSteps, "Steps before an episode is truncated")
	playCmd.Flags().Duration("episode-timeout", defaults.EpisodeTimeout, "Timeout per episode")
	playCmd.Flags().Int("batch-size", defaults.BatchSize, "Transitions per storage batch")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Host policy sessions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, v)
		},
	}
	serveCmd.Flags().String("addr", defaults.Addr, "HTTP listen address")
	serveCmd.Flags().Duration("session-idle-timeout", defaults.SessionIdleTimeout, "Expire sessions idle this long")
	serveCmd.Flags().Duration("reap-interval", defaults.ReapInterval, "How often idle sessions are checked")
	serveCmd.Flags().Float64("rate-limit", defaults.RateLimit, "API requests per second (0 disables)")
	serveCmd.Flags().Int("rate-burst", defaults.RateBurst, "API request burst")

	policiesCmd := &cobra.Command{
		Use:   "policies",
		Short: "List policies and built-in layouts",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Policies:")
			for _, name := range policy.Names() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			fmt.Fprintln(out, "Layouts:")
			for _, name := range engine.BuiltinLayouts() {
				fmt.Fprintf(out, "  %s\n", name)
			}
		},
	}

	rootCmd.AddCommand(playCmd, serveCmd, policiesCmd)

	// Bind flags to viper for environment variable support
	v.BindPFlags(rootCmd.PersistentFlags())
	v.BindPFlags(playCmd.Flags())
	v.BindPFlags(serveCmd.Flags())
	v.SetEnvPrefix("PACMAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return rootCmd
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, _ := cfg.Level()
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.Recorder, error) {
	if cfg.DatabaseURL == "" {
		logger.Info().Int("max_transitions", cfg.MaxTransitions).Msg("using in-memory store")
		return storage.NewMemoryStore(cfg.MaxTransitions), nil
	}
	store, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("using postgres store")
	return store, nil
}

func openPublisher(cfg *config.Config, logger zerolog.Logger) (events.Publisher, func(), error) {
	if cfg.NATSURL == "" {
		return events.NoopPublisher{}, func() {}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	logger.Info().Str("url", cfg.NATSURL).Str("subject", cfg.NATSSubject).Msg("publishing events to NATS")
	return pub, pub.Close, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runPlay(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := newLogger(cfg, os.Stderr)

	ctx, cancel := signalContext()
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	publisher, closePublisher, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	a, err := actor.New(cfg, store, publisher, metrics.NewCollector(logger), logger)
	if err != nil {
		return fmt.Errorf("failed to create actor: %w", err)
	}
	defer a.Close()

	runErr := a.Run(ctx)
	summary := a.Summary()
	fmt.Fprintf(cmd.OutOrStdout(), "episodes=%d won=%d lost=%d truncated=%d failed=%d total_score=%d\n",
		summary.Episodes, summary.Won, summary.Lost, summary.Truncated, summary.Failed, summary.TotalScore)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := newLogger(cfg, os.Stdout)

	ctx, cancel := signalContext()
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	publisher, closePublisher, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	collector := metrics.NewCollector(logger)
	agents := service.NewAgentService(publisher, collector, &logger)
	monitor := health.NewMonitor(agents, collector, health.Config{
		CheckInterval:      cfg.ReapInterval,
		SessionIdleTimeout: cfg.SessionIdleTimeout,
	}, logger)
	go monitor.Start(ctx)

	h := httpServer.NewServer(agents, store, collector, &logger, httpServer.Options{
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("policy HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	<-errCh
	logger.Info().Msg("policy server stopped")
	return nil
}

func main() {
	// Load .env file if available
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, ".env could not be loaded: %v\n", err)
	}

	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
