package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/denvolkov/playcart-backend/pkg/enums"
)

// Reward is a one-time level perk. IDs are small stable integers so a
// user's claims can live in an array column on the user row.
type Reward struct {
	ID            int64            `gorm:"column:id;primaryKey"`
	Title         string           `gorm:"column:title;not null"`
	Description   *string          `gorm:"column:description"`
	RequiredLevel int              `gorm:"column:required_level;not null"`
	Type          enums.RewardType `gorm:"column:type;type:text;not null"`
	Amount        decimal.Decimal  `gorm:"column:amount;type:numeric(12,2);not null"`
	IsActive      bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
