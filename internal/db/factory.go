package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"blog/internal/app"
	"blog/internal/blog"
	"blog/internal/db/memory"
	"blog/internal/db/postgres"
)

// NewStore builds the blog.Store selected by cfg.Database.Type and, for
// postgres, applies migrations when MigrateOnStart is set.
func NewStore(ctx context.Context, cfg app.DBConfig, logger *zap.SugaredLogger) (blog.Store, error) {
	switch cfg.Type {
	case "memory":
		logger.Infow("Using in-memory store")
		return memory.New(), nil
	case "postgres":
		sqlDB, err := Open(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		if cfg.MigrateOnStart {
			if err := Migrate(sqlDB); err != nil {
				_ = sqlDB.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			logger.Infow("Migrations applied")
		}
		logger.Infow("Using postgres store")
		return postgres.New(sqlDB), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
