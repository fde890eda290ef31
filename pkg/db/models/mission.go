package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/denvolkov/playcart-backend/pkg/enums"
)

// Mission is a staff-defined goal users progress toward through activity.
type Mission struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title        string            `gorm:"column:title;not null"`
	Description  *string           `gorm:"column:description"`
	Type         enums.MissionType `gorm:"column:type;type:text;not null"`
	Target       decimal.Decimal   `gorm:"column:target;type:numeric(12,2);not null"`
	MinLevel     int               `gorm:"column:min_level;not null;default:0"`
	RewardType   enums.RewardType  `gorm:"column:reward_type;type:text;not null"`
	RewardAmount decimal.Decimal   `gorm:"column:reward_amount;type:numeric(12,2);not null"`
	IsActive     bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// UserMission tracks one user's progress against a mission.
type UserMission struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_user_mission"`
	MissionID   uuid.UUID       `gorm:"column:mission_id;type:uuid;not null;uniqueIndex:idx_user_mission"`
	Progress    decimal.Decimal `gorm:"column:progress;type:numeric(12,2);not null;default:0"`
	Completed   bool            `gorm:"column:completed;not null;default:false"`
	CompletedAt *time.Time      `gorm:"column:completed_at"`
	Claimed     bool            `gorm:"column:claimed;not null;default:false"`
	ClaimedAt   *time.Time      `gorm:"column:claimed_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
