package registry

import (
	"context"
	"fmt"

	"rollcall/internal/config"
)

// Open connects to the registration store selected in cfg.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("registry: config is required")
	}
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.Store.PostgresDSN, cfg.Store.PostgresMaxConns)
	case config.DriverSQLite, "":
		return OpenSQLite(cfg.Store.SQLitePath, WithBusyTimeout(cfg.BusyTimeout()))
	default:
		return nil, fmt.Errorf("registry: unsupported store driver %q", cfg.Store.Driver)
	}
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
