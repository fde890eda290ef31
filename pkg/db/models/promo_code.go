package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromoCode represents a redeemable checkout discount.
type PromoCode struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string          `gorm:"column:code;type:text;not null;uniqueIndex"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	MaxUses         int             `gorm:"column:max_uses;not null;default:0"`
	UsedCount       int             `gorm:"column:used_count;not null;default:0"`
	ExpiresAt       *time.Time      `gorm:"column:expires_at"`
	IsActive        bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Exhausted reports whether the usage cap is reached. Zero means unlimited.
func (p *PromoCode) Exhausted() bool {
	return p.MaxUses > 0 && p.UsedCount >= p.MaxUses
}

// Expired reports whether the code is past its expiry.
func (p *PromoCode) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}
