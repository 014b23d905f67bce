package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/ldatranslate/pkg/audit"
	"mercator-hq/ldatranslate/pkg/audit/recorder"
	"mercator-hq/ldatranslate/pkg/audit/retention"
	"mercator-hq/ldatranslate/pkg/audit/storage"
	"mercator-hq/ldatranslate/pkg/cli"
	"mercator-hq/ldatranslate/pkg/config"
	"mercator-hq/ldatranslate/pkg/limits/ratelimit"
	"mercator-hq/ldatranslate/pkg/security/auth"
	sectls "mercator-hq/ldatranslate/pkg/security/tls"
	"mercator-hq/ldatranslate/pkg/server"
	"mercator-hq/ldatranslate/pkg/telemetry/health"
	"mercator-hq/ldatranslate/pkg/telemetry/metrics"
	"mercator-hq/ldatranslate/pkg/telemetry/tracing"
	"mercator-hq/ldatranslate/pkg/voting/engine"
	"mercator-hq/ldatranslate/pkg/voting/source"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	defs          string
	watch         bool
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP bridge",
	Long: `Start the HTTP bridge to the evaluation engine.

The server loads voting definitions from the configured source, reloads
them when files change (voting.watch) or the Git branch moves
(voting.git.poll), and on SIGHUP. SIGHUP also re-reads the engine section
of the configuration file. Every evaluation is recorded in the
audit trail unless audit.enabled is false.

Examples:
  # Start with default config
  ldatranslate serve

  # Start with custom config
  ldatranslate serve --config /etc/ldatranslate/config.yaml

  # Serve a definition directory with hot reload
  ldatranslate serve --defs votings/ --watch

  # Validate config and definitions without starting the server
  ldatranslate serve --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().StringVarP(&serveFlags.defs, "defs", "d", "", "override definition path (file mode)")
	serveCmd.Flags().BoolVar(&serveFlags.watch, "watch", false, "reload definitions when files change")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config and definitions without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger, err := newLogger(&cfg.Telemetry.Logging, os.Stderr, false)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	checker := health.New(2 * time.Second)

	src, err := source.New(&cfg.Voting, logger)
	if err != nil {
		return cli.NewConfigError("voting", err.Error())
	}

	opts := []engine.Option{engine.WithMetrics(collector), engine.WithTracer(tracer)}
	var store audit.Storage
	if cfg.Audit.Enabled && !serveFlags.dryRun {
		a, err := startAudit(ctx, cfg, collector, logger)
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer a.close()
		store = a.store
		opts = append(opts, engine.WithRecorder(a.recorder))
		checker.RegisterCheck("audit", func(ctx context.Context) error {
			_, err := a.store.Count(ctx, &audit.Query{Limit: 1})
			return err
		})
	}

	eng, err := engine.New(engine.FromConfig(cfg.Engine), src, logger, opts...)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	checker.RegisterCheck("registry", func(context.Context) error {
		if eng.LoadedAt().IsZero() {
			return errors.New("definitions not loaded")
		}
		return nil
	})

	secOpts, reloader, err := securityOptions(&cfg.Server, logger)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	if serveFlags.dryRun {
		reg := eng.Registry()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration valid\n✓ %d votings loaded from %s (version %s)\n",
			reg.Len(), src, reg.Version())
		return nil
	}

	if reloader != nil {
		go reloader.Run(ctx)
	}

	if watchEnabled(cfg) {
		go func() {
			if err := eng.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("definition watcher stopped", "error", err)
			}
		}()
	}
	go reloadOnSignal(ctx, eng, logger)

	srvOpts := append([]server.Option{
		server.WithTracer(tracer),
		server.WithHealth(checker),
	}, secOpts...)
	if cfg.Telemetry.Metrics.Enabled {
		srvOpts = append(srvOpts, server.WithMetrics(collector, cfg.Telemetry.Metrics.Path))
	}
	if store != nil {
		srvOpts = append(srvOpts, server.WithAudit(store, cfg.Audit.Query))
	}

	logger.Info("starting ldatranslate",
		"version", Version,
		"listen_address", cfg.Server.ListenAddress,
		"source", src.String(),
		"votings", eng.Registry().Len(),
		"audit", cfg.Audit.Enabled,
		"tracing", tracer.Enabled(),
		"tls", cfg.Server.TLS.Enabled,
		"auth", cfg.Server.Auth.Enabled,
	)
	srv := server.NewServer(&cfg.Server, eng, logger, srvOpts...)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}

// securityOptions builds the bridge's TLS, API key and rate limit options.
// The returned reloader is nil unless TLS is enabled.
func securityOptions(cfg *config.ServerConfig, logger *slog.Logger) ([]server.Option, *sectls.CertificateReloader, error) {
	var (
		opts     []server.Option
		reloader *sectls.CertificateReloader
	)

	if cfg.TLS.Enabled {
		var err error
		reloader, err = sectls.NewCertificateReloader(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.ReloadInterval, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("tls: %w", err)
		}
		tlsConfig, err := sectls.ServerConfig(&cfg.TLS, reloader)
		if err != nil {
			return nil, nil, fmt.Errorf("tls: %w", err)
		}
		opts = append(opts, server.WithTLS(tlsConfig, cfg.TLS.ClientIdentity))
	}

	if cfg.Auth.Enabled {
		validator := auth.FromConfig(&cfg.Auth)
		mw := auth.NewAPIKeyMiddleware(validator, auth.SourcesFromConfig(cfg.Auth.Sources), logger, server.AuthErrorWriter)
		opts = append(opts, server.WithAuth(mw))
		logger.Info("API key authentication enabled", "keys", len(validator.List()))
	}

	if cfg.RateLimit.Enabled {
		opts = append(opts, server.WithRateLimit(ratelimit.NewKeyed(cfg.RateLimit)))
	}
	return opts, reloader, nil
}

func applyServeOverrides(cfg *config.Config) {
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}
	if serveFlags.defs != "" {
		cfg.Voting.Mode = "file"
		cfg.Voting.Path = serveFlags.defs
	}
	if serveFlags.watch {
		cfg.Voting.Watch = true
	}
}

func watchEnabled(cfg *config.Config) bool {
	if cfg.Voting.Mode == "git" {
		return cfg.Voting.Git.Poll.Enabled
	}
	return cfg.Voting.Watch && cfg.Voting.Path != ""
}

func reloadOnSignal(ctx context.Context, eng *engine.Engine, logger *slog.Logger) {
	sig, stop := cli.ReloadSignal()
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			logger.Info("reload requested by signal")
			if err := reloadEngineConfig(eng); err != nil {
				logger.Error("config reload failed, keeping previous engine settings", "error", err)
			}
			if err := eng.Reload(ctx); err != nil {
				logger.Error("reload failed, keeping previous definitions", "error", err)
			}
		}
	}
}

// reloadEngineConfig re-reads --config and applies its engine section.
// Server, audit and telemetry settings apply on restart.
func reloadEngineConfig(eng *engine.Engine) error {
	if err := config.ReloadConfig(cfgFile); err != nil {
		return err
	}
	cfg := config.GetConfig()
	applyServeOverrides(cfg)
	return eng.Configure(engine.FromConfig(cfg.Engine))
}

// auditStack is the running audit trail: storage, the async recorder and
// the retention scheduler.
type auditStack struct {
	store     audit.Storage
	recorder  *recorder.Recorder
	scheduler *retention.Scheduler
	logger    *slog.Logger
}

func startAudit(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *slog.Logger) (*auditStack, error) {
	store, err := storage.New(&cfg.Audit, logger)
	if err != nil {
		return nil, err
	}

	rec := recorder.New(store, cfg.Audit.Recorder, logger)
	rec.OnWrite(collector.RecordAuditWrite)

	pruner := retention.NewPruner(store, cfg.Audit.Retention, logger)
	pruner.OnPrune(collector.RecordAuditPruned)
	scheduler := retention.NewScheduler(pruner)
	if err := scheduler.Start(ctx); err != nil {
		_ = rec.Close()
		_ = store.Close()
		return nil, err
	}

	return &auditStack{store: store, recorder: rec, scheduler: scheduler, logger: logger}, nil
}

// close stops pruning, drains queued records and closes storage, in that
// order.
func (a *auditStack) close() {
	a.scheduler.Stop()
	if err := a.recorder.Close(); err != nil {
		a.logger.Error("failed to close audit recorder", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close audit storage", "error", err)
	}
}
