// migrate применяет миграции схемы отдельно от сервера (DB_MIGRATE_ON_START=false).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"carousel-server/internal/config"
	internalDB "carousel-server/internal/database"
	"carousel-server/pkg/database"
	sharedLogger "carousel-server/pkg/logger"
	"carousel-server/pkg/migration"

	"go.uber.org/zap"
)

func main() {
	statusOnly := flag.Bool("status", false, "Print current schema version and exit")
	flag.Parse()

	logger, err := sharedLogger.New(sharedLogger.Config{Encoding: "console", Service: "carousel-migrate"})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnectTimeout)
	defer cancel()
	db, err := database.New(ctx, database.Config{DSN: cfg.GetDSN(), MaxConns: 2, ConnectTimeout: cfg.DBConnectTimeout}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: internalDB.MigrationsPath,
		MigrationsFS:   internalDB.MigrationsFS,
	}, db.Pool, logger)

	if !*statusOnly {
		if err := migrator.Up(); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		logger.Fatal("Failed to read schema version", zap.Error(err))
	}
	logger.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
}
