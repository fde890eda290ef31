// Package migrate keeps the schema in step with the gorm models.
package migrate

import (
	"context"
	"fmt"

	"github.com/denvolkov/playcart-backend/pkg/config"
	"github.com/denvolkov/playcart-backend/pkg/db"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

// Run applies the model schema to the connected database.
func Run(ctx context.Context, client *db.Client, logg *logger.Logger) error {
	if client == nil {
		return fmt.Errorf("database client required")
	}

	err := client.DB().WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.PromoCode{},
		&models.Review{},
		&models.Mission{},
		&models.UserMission{},
		&models.WheelPrize{},
		&models.Reward{},
		&models.TopUpCode{},
		&models.TopUpRequest{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "schema migrated")
	}
	return nil
}

// MaybeRunDev migrates on boot when explicitly enabled for dev setups.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || !cfg.App.IsDev() || !cfg.App.AutoMigrate {
		return nil
	}
	return Run(ctx, client, logg)
}
