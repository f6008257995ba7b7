package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/kvcache/internal/config"
	"github.com/roach88/kvcache/internal/store"
)

// loadConfig reads the config file (if any) and applies flag overrides.
// The result is kept on o, so later calls return it without reloading.
func (o *RootOptions) loadConfig() (config.Config, error) {
	if o.cfg != nil {
		return *o.cfg, nil
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}

	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.Database != "" {
		cfg.SQLite.Path = o.Database
	}
	if o.RedisAddr != "" {
		cfg.Redis.Addr = o.RedisAddr
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	o.cfg = &cfg
	return cfg, nil
}

// openStore resolves the configuration and opens the selected backend.
// Failures are command errors (exit code 2).
func (o *RootOptions) openStore(ctx context.Context) (store.Store, config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, cfg, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	var st store.Store
	switch cfg.Backend {
	case config.BackendRedis:
		st, err = store.OpenRedis(ctx, store.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case config.BackendSQLite:
		st, err = store.OpenSQLite(cfg.SQLite.Path)
	case config.BackendMemory:
		st = store.NewMemory()
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, cfg, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	slog.Debug("store opened", "backend", cfg.Backend)
	return st, cfg, nil
}
