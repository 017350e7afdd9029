package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillprobe/internal/config"
	"github.com/abhisek/skillprobe/internal/logger"
	"github.com/abhisek/skillprobe/internal/lookupcache"
	"github.com/abhisek/skillprobe/internal/recommend"
	"github.com/abhisek/skillprobe/internal/store"
	"github.com/abhisek/skillprobe/internal/tracing"
)

// runtime bundles what every command needs: configuration, a logger and
// an open store.
type runtime struct {
	cfg      config.Config
	log      *logger.Logger
	store    *store.Store
	shutdown tracing.ShutdownFunc
	closers  []func() error
}

// openRuntime loads configuration, applies persistent flag overrides,
// validates, and opens the store.
func openRuntime(cmd *cobra.Command) (*runtime, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.FromEnv(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DB.DSN = v
	}
	if v, _ := cmd.Flags().GetString("driver"); v != "" {
		cfg.DB.Driver = v
	}
	if v, _ := cmd.Flags().GetString("log"); v != "" {
		cfg.LogMode = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if cfg.DB.DSN == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		cfg.DB.DSN = p
	}
	st, err := store.Open(ctx, cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	shutdown, err := tracing.Init(ctx, log, tracing.Config{
		Enabled:     cfg.Tracing,
		ServiceName: "skillprobe",
		Version:     version,
		Writer:      cmd.ErrOrStderr(),
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	log.Debug("runtime ready", "driver", cfg.DB.Driver, "tracing", cfg.Tracing)
	return &runtime{cfg: cfg, log: log, store: st, shutdown: shutdown}, nil
}

// lookup returns the content catalog, behind the Redis cache when one is
// configured and reachable.
func (r *runtime) lookup(ctx context.Context) recommend.ContentLookup {
	catalog := r.store.Catalog()
	if r.cfg.Redis.Addr == "" {
		return catalog
	}
	backend, err := lookupcache.Dial(ctx, r.cfg.Redis.Addr)
	if err != nil {
		r.log.Warn("lookup cache disabled", "addr", r.cfg.Redis.Addr, "error", err)
		return catalog
	}
	r.closers = append(r.closers, backend.Close)
	return lookupcache.New(catalog, backend, r.cfg.Redis.TTL, r.log)
}

func (r *runtime) Close() {
	for _, c := range r.closers {
		_ = c()
	}
	if r.shutdown != nil {
		if err := r.shutdown(context.Background()); err != nil {
			r.log.Warn("tracing shutdown failed", "error", err)
		}
	}
	if err := r.store.Close(); err != nil {
		r.log.Warn("close store failed", "error", err)
	}
	r.log.Sync()
}
