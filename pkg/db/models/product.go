package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product represents a catalog listing.
type Product struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string           `gorm:"column:name;not null"`
	Description     *string          `gorm:"column:description"`
	Category        string           `gorm:"column:category;not null;index"`
	Price           decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPercent decimal.Decimal  `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	XPReward        int              `gorm:"column:xp_reward;not null;default:0"`
	Sizes           pq.StringArray   `gorm:"column:sizes;type:text[];not null;default:ARRAY[]::text[]"`
	Tags            pq.StringArray   `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	ImageURL        *string          `gorm:"column:image_url"`
	Stock           int              `gorm:"column:stock;not null;default:0"`
	IsActive        bool             `gorm:"column:is_active;not null;default:true"`
	RatingAvg       *decimal.Decimal `gorm:"column:rating_avg;type:numeric(3,2)"`
	RatingCount     int              `gorm:"column:rating_count;not null;default:0"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
