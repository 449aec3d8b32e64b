package app

import (
	"context"
	"fmt"

	"github.com/deusflow/energynews/internal/config"
	"github.com/deusflow/energynews/internal/logger"
	"github.com/deusflow/energynews/internal/storage"
)

// OpenSentStore opens the store selected by SENT_STORE.
func OpenSentStore(ctx context.Context, cfg *config.Config) (storage.SentStore, error) {
	switch cfg.SentStore {
	case config.StorePostgres:
		logger.Info("using PostgreSQL sent store")
		s, err := storage.OpenPostgres(ctx, cfg.DatabaseURL, cfg.CacheTTLHours)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return s, nil
	case config.StoreSQLite:
		logger.Info("using SQLite sent store", "path", cfg.SQLitePath)
		s, err := storage.OpenSQLite(ctx, cfg.SQLitePath, cfg.CacheTTLHours)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil
	case config.StoreFile, "":
		logger.Info("using file sent store", "path", cfg.CacheFilePath)
		s, err := storage.OpenFileCache(cfg.CacheFilePath, cfg.CacheTTLHours)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown sent store %q", cfg.SentStore)
}
