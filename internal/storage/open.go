package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/offeradmin/internal/config"
	"github.com/BradenHooton/offeradmin/internal/database"
	pkglogger "github.com/BradenHooton/offeradmin/pkg/logger"
)

// Open builds the backend selected by cfg.Storage.Driver, wrapping it in
// Sealed when an encryption key is configured.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Storage, error) {
	sc := cfg.Storage

	var (
		store    Storage
		err      error
		location string
	)

	switch sc.Driver {
	case config.DriverMemory:
		store = NewMemory(sc.QuotaBytes)
	case config.DriverFile:
		store, err = NewFile(sc.Path, sc.QuotaBytes, logger)
		location = sc.Path
	case config.DriverSQLite:
		store, err = NewSQLite(ctx, sc.Path, sc.Namespace, sc.QuotaBytes)
		location = sc.Path
	case config.DriverPostgres:
		var db *database.DB
		db, err = database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			break
		}
		if err = db.Migrate(ctx); err != nil {
			db.Close()
			break
		}
		store = NewPostgres(db, sc.Namespace, sc.QuotaBytes, logger)
		location = cfg.Database.Host
	case config.DriverRedis:
		store, err = NewRedis(ctx, sc.RedisURL, sc.Namespace, sc.QuotaBytes, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", sc.Driver, err)
	}

	if sc.EncryptionKey != "" {
		sealed, err := NewSealed(store, sc.EncryptionKey, sc.Namespace)
		if err != nil {
			store.Close()
			return nil, err
		}
		logger.Info("storage encryption enabled")
		store = sealed
	}

	logger.Info("storage opened",
		slog.String("driver", sc.Driver),
		slog.String("namespace", sc.Namespace),
		slog.Int64("quota_bytes", sc.QuotaBytes),
		pkglogger.RedactedAttr("location", location, cfg.Server.Env),
	)
	return store, nil
}
