package main

import (
	"flag"
	"log"

	"storefront-service/config"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// usage: migrate [up|down|version] [-steps N]
func main() {
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Parse()

	cmd := "up"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	cfg := config.Load()
	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	switch cmd {
	case "up":
		if err := db.Migrate(); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		logger.Info("Migrations applied")
	case "down":
		if err := db.MigrateDown(*steps); err != nil {
			logger.Fatal("Failed to roll back migrations", zap.Error(err))
		}
		logger.Info("Migrations rolled back", zap.Int("steps", *steps))
	case "version":
		version, dirty, err := db.MigrationVersion()
		if err != nil {
			logger.Fatal("Failed to read migration version", zap.Error(err))
		}
		logger.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	default:
		logger.Fatal("Unknown command", zap.String("command", cmd))
	}
}
