package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/rezkam/tasklens/internal/application/todo"
	"github.com/rezkam/tasklens/internal/config"
	"github.com/rezkam/tasklens/internal/infrastructure/persistence/fs"
	"github.com/rezkam/tasklens/internal/infrastructure/persistence/gcs"
	"github.com/rezkam/tasklens/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/tasklens/internal/infrastructure/persistence/sqlite"
)

// taskStore is a repository that owns resources released on shutdown.
type taskStore interface {
	todo.Repository
	io.Closer
}

// openStore constructs the backend selected by cfg.Driver.
func openStore(ctx context.Context, cfg config.StorageConfig) (taskStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := postgres.NewStoreWithConfig(ctx, postgres.DBConfig{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Storage initialized", "driver", cfg.Driver, "url", maskPassword(cfg.DSN))
		return store, nil

	case config.DriverSQLite:
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Storage initialized", "driver", cfg.Driver, "path", cfg.SQLitePath)
		return store, nil

	case config.DriverFS:
		store, err := fs.NewStore(cfg.FSDir)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Storage initialized", "driver", cfg.Driver, "dir", cfg.FSDir)
		return store, nil

	case config.DriverGCS:
		store, err := gcs.NewStore(ctx, gcs.Config{
			Bucket:   cfg.GCSBucket,
			Prefix:   cfg.GCSPrefix,
			Endpoint: cfg.GCSEndpoint,
		})
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Storage initialized", "driver", cfg.Driver, "bucket", cfg.GCSBucket)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// maskPassword masks the password in a connection string for logging.
func maskPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		// Fall back to full redaction when the DSN is not a URL.
		return "[REDACTED]"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxxx")
		}
	}
	return u.String()
}
