// Package bootstrap turns a loaded Config into the running pieces both
// binaries share: the document store and the import service.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/autoimport/internal/config"
	"github.com/JonMunkholm/autoimport/internal/core"
	"github.com/JonMunkholm/autoimport/internal/docstore"
	"github.com/JonMunkholm/autoimport/internal/docstore/memstore"
	"github.com/JonMunkholm/autoimport/internal/docstore/pgstore"
	"github.com/JonMunkholm/autoimport/internal/docstore/sqlitestore"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenStore opens the backend named by cfg.Store.Driver and makes sure its
// schema exists. The caller owns the returned store and must Close it.
func OpenStore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		return openPostgres(ctx, &cfg.Store)

	case config.DriverSQLite:
		s, err := sqlitestore.Open(ctx, cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		slog.Info("opened sqlite store", "path", cfg.Store.Path)
		return s, nil

	case config.DriverMemory:
		slog.Warn("using in-memory store; documents are lost on exit")
		return memstore.New(), nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func openPostgres(ctx context.Context, cfg *config.StoreConfig) (docstore.Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	s := pgstore.New(pool, pool.Close)
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NewService builds the import service for store from cfg.Import.
func NewService(store docstore.Store, cfg *config.Config) (*core.Service, error) {
	fields, err := core.ResolveFieldSet(cfg.Import.NumericFieldsFile, cfg.Import.NumericFields)
	if err != nil {
		return nil, err
	}

	return core.NewService(store, core.Options{
		Collection:    cfg.Store.Collection,
		BatchSize:     cfg.Import.BatchSize,
		Fields:        fields,
		MaxConcurrent: cfg.Import.MaxConcurrent,
		MaxWait:       cfg.Import.MaxWaitTime,
	})
}
