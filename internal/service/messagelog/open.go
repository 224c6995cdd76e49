package messagelog

import (
	"context"
	"fmt"

	"github.com/Victorugws/swift/internal/config"
)

// Open builds the store selected by cfg. The returned close function is never nil.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, noop, fmt.Errorf("messagelog: DATABASE_URL is required for the postgres driver")
		}
		store, err := OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		if cfg.Migrate {
			if err := store.Migrate(ctx); err != nil {
				_ = store.Close()
				return nil, noop, err
			}
		}
		return store, store.Close, nil
	case "sqlite":
		store, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		if cfg.Migrate {
			if err := store.Migrate(ctx); err != nil {
				_ = store.Close()
				return nil, noop, err
			}
		}
		return store, store.Close, nil
	case "memory":
		return NewMemoryStore(), noop, nil
	case "none", "":
		return DiscardStore{}, noop, nil
	default:
		return nil, noop, fmt.Errorf("messagelog: unknown driver %q", cfg.Driver)
	}
}
