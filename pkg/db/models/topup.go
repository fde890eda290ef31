package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/denvolkov/playcart-backend/pkg/enums"
)

// TopUpCode is a single-use voucher credited to whoever redeems it first.
type TopUpCode struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code       string          `gorm:"column:code;type:text;not null;uniqueIndex"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	RedeemedBy *uuid.UUID      `gorm:"column:redeemed_by;type:uuid"`
	RedeemedAt *time.Time      `gorm:"column:redeemed_at"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TopUpRequest is a manual balance credit awaiting staff review.
type TopUpRequest struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Amount     decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null"`
	Status     enums.TopUpStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Note       *string           `gorm:"column:note"`
	ReviewedBy *uuid.UUID        `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt *time.Time        `gorm:"column:reviewed_at"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
