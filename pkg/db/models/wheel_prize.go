package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/denvolkov/playcart-backend/pkg/enums"
)

// WheelPrize is one slot on the prize wheel. Probabilities are relative
// weights and are not required to sum to one.
type WheelPrize struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Label       string           `gorm:"column:label;not null"`
	Type        enums.RewardType `gorm:"column:type;type:text;not null"`
	Amount      decimal.Decimal  `gorm:"column:amount;type:numeric(12,2);not null"`
	Probability float64          `gorm:"column:probability;type:numeric(8,6);not null"`
	Position    int              `gorm:"column:position;not null;default:0"`
	IsActive    bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
