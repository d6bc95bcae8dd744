package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ollamadash/internal/config"
	"ollamadash/internal/daemon"
	"ollamadash/internal/httpapi"
	"ollamadash/internal/library"
	"ollamadash/internal/usage"
)

var serveFlags struct {
	addr         string
	corsEnabled  bool
	corsOrigins  string
	maxBodyBytes int64
	libraryURL   string
	watch        bool
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the dashboard JSON API",
		Example: "  ollamadash serve --addr :8080 --server-url http://gpu-box:11434",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	f := cmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", "", "HTTP listen address, e.g. :8080 (defaults OLLAMADASH_ADDR or :8080)")
	f.BoolVar(&serveFlags.corsEnabled, "cors-enabled", false, "Enable CORS")
	f.StringVar(&serveFlags.corsOrigins, "cors-origins", "", "Comma-separated allowed origins")
	f.Int64Var(&serveFlags.maxBodyBytes, "max-body-bytes", 0, "Maximum JSON request body size (0 = 1 MiB)")
	f.StringVar(&serveFlags.libraryURL, "library-url", "", "Model library page used by search")
	f.BoolVar(&serveFlags.watch, "watch", false, "Reload --config when the file changes")
	return cmd
}

// applyServeFlags copies explicitly set serve flags into overrides.
func applyServeFlags(cmd *cobra.Command, o *config.Config) {
	if cmd.Name() != "serve" {
		return
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		o.Addr = serveFlags.addr
	}
	if flags.Changed("cors-enabled") {
		o.CORSEnabled = serveFlags.corsEnabled
	}
	if flags.Changed("cors-origins") {
		o.CORSOrigins = splitCSV(serveFlags.corsOrigins)
	}
	if flags.Changed("max-body-bytes") {
		o.MaxBodyBytes = serveFlags.maxBodyBytes
	}
	if flags.Changed("library-url") {
		o.LibraryURL = serveFlags.libraryURL
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	tracker := usage.NewTracker()
	dcfg := cfg.Daemon(&a.log)
	dcfg.Stats = tracker
	pool, err := daemon.NewPool(dcfg, cfg.PoolSize)
	if err != nil {
		return err
	}

	httpapi.SetLogger(a.log)
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	httpapi.SetBaseContext(ctx)

	handler := httpapi.NewMux(httpapi.Deps{
		Daemons: httpapi.NewPoolResolver(pool),
		Library: library.NewClient(cfg.LibraryURL, a.log),
		Usage:   tracker,
	})
	srv := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	if serveFlags.watch && a.cfgPath != "" {
		go a.watchConfig(ctx, pool, tracker)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", cfg.Addr).Str("daemon", pool.DefaultURL()).Msg("ollamadash listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("graceful shutdown error")
		return err
	}
	a.log.Info().Msg("server stopped")
	return nil
}

// watchConfig swaps daemon defaults and the request log level when the config
// file changes. Listener settings need a restart.
func (a *app) watchConfig(ctx context.Context, pool *daemon.Pool, stats daemon.StatsSource) {
	err := config.Watch(ctx, a.cfgPath, 0, func(c config.Config) {
		cfg := config.Merge(c, a.overrides)
		if err := cfg.Validate(); err != nil {
			a.log.Warn().Err(err).Msg("ignoring invalid config reload")
			return
		}
		dcfg := cfg.Daemon(&a.log)
		dcfg.Stats = stats
		pool.SetDefaults(dcfg)
		httpapi.SetDefaultLogLevel(cfg.LogLevel)
		a.log.Info().Str("daemon", pool.DefaultURL()).Msg("configuration reloaded")
	}, func(err error) {
		a.log.Warn().Err(err).Msg("config reload failed")
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("config watcher stopped")
	}
}
