package migrate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/denvolkov/playcart-backend/pkg/db"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

func strPtr(s string) *string { return &s }

// Seed loads the starter catalog of rewards, wheel prizes, and demo
// vouchers. Inserts are idempotent so re-running is safe.
func Seed(ctx context.Context, client *db.Client, logg *logger.Logger) error {
	if client == nil {
		return fmt.Errorf("database client required")
	}

	rewards := []models.Reward{
		{ID: 1, Title: "Welcome Bonus", Description: strPtr("50 coins for reaching level 2"), RequiredLevel: 2, Type: enums.RewardTypeCoins, Amount: decimal.NewFromInt(50), IsActive: true},
		{ID: 2, Title: "Rising Star", Description: strPtr("100 coins for reaching level 5"), RequiredLevel: 5, Type: enums.RewardTypeCoins, Amount: decimal.NewFromInt(100), IsActive: true},
		{ID: 3, Title: "Dragon's Blessing", Description: strPtr("500 coins exclusive reward"), RequiredLevel: 10, Type: enums.RewardTypeCoins, Amount: decimal.NewFromInt(500), IsActive: true},
		{ID: 4, Title: "XP Boost", Description: strPtr("200 bonus XP"), RequiredLevel: 15, Type: enums.RewardTypeXP, Amount: decimal.NewFromInt(200), IsActive: true},
		{ID: 5, Title: "Dragon Master", Description: strPtr("1000 coins exclusive reward"), RequiredLevel: 20, Type: enums.RewardTypeCoins, Amount: decimal.NewFromInt(1000), IsActive: true},
	}

	prizes := []models.WheelPrize{
		{Label: "10 Coins", Type: enums.RewardTypeCoins, Amount: decimal.NewFromInt(10), Probability: 0.3, Position: 0, IsActive: true},
		{Label: "25 Coins", Type: enums.RewardTypeCoins, Amount: decimal.NewFromInt(25), Probability: 0.25, Position: 1, IsActive: true},
		{Label: "50 Coins", Type: enums.RewardTypeCoins, Amount: decimal.NewFromInt(50), Probability: 0.2, Position: 2, IsActive: true},
		{Label: "100 Coins", Type: enums.RewardTypeCoins, Amount: decimal.NewFromInt(100), Probability: 0.1, Position: 3, IsActive: true},
		{Label: "50 XP", Type: enums.RewardTypeXP, Amount: decimal.NewFromInt(50), Probability: 0.1, Position: 4, IsActive: true},
		{Label: "200 Coins JACKPOT!", Type: enums.RewardTypeCoins, Amount: decimal.NewFromInt(200), Probability: 0.05, Position: 5, IsActive: true},
	}

	codes := []models.TopUpCode{
		{Code: "WELCOME100", Amount: decimal.NewFromInt(100)},
		{Code: "DRAGON500", Amount: decimal.NewFromInt(500)},
		{Code: "GAMING1000", Amount: decimal.NewFromInt(1000)},
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rewards).Error; err != nil {
			return fmt.Errorf("seed rewards: %w", err)
		}
		var prizeCount int64
		if err := tx.Model(&models.WheelPrize{}).Count(&prizeCount).Error; err != nil {
			return fmt.Errorf("count wheel prizes: %w", err)
		}
		if prizeCount == 0 {
			if err := tx.Create(&prizes).Error; err != nil {
				return fmt.Errorf("seed wheel prizes: %w", err)
			}
		}
		if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).Create(&codes).Error; err != nil {
			return fmt.Errorf("seed topup codes: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if logg != nil {
		logg.Info(ctx, "seed data loaded")
	}
	return nil
}
