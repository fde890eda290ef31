package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/denvolkov/playcart-backend/pkg/config"
	"github.com/denvolkov/playcart-backend/pkg/db"
	"github.com/denvolkov/playcart-backend/pkg/logger"
	"github.com/denvolkov/playcart-backend/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	seed := flag.Bool("seed", false, "load starter rewards, wheel prizes, and demo vouchers after migrating")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.Run(ctx, dbClient, logg); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}

	if *seed {
		if err := migrate.Seed(ctx, dbClient, logg); err != nil {
			logg.Error(ctx, "seeding failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "migrate complete")
}
