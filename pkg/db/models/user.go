package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/denvolkov/playcart-backend/pkg/enums"
)

// User represents the canonical identity and wallet entity.
type User struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username            string          `gorm:"column:username;type:text;not null;uniqueIndex"`
	PasswordHash        string          `gorm:"column:password_hash;not null"`
	Role                enums.Role      `gorm:"column:role;type:text;not null;default:'user'"`
	Balance             decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	XP                  int             `gorm:"column:xp;not null;default:0"`
	Level               int             `gorm:"column:level;not null;default:1"`
	WheelSpinsAvailable int             `gorm:"column:wheel_spins_available;not null;default:0"`
	ClaimedRewards      pq.Int64Array   `gorm:"column:claimed_rewards;type:bigint[];not null;default:ARRAY[]::bigint[]"`
	IsActive            bool            `gorm:"column:is_active;not null;default:true"`
	LastLoginAt         *time.Time      `gorm:"column:last_login_at"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// HasClaimedReward reports whether the reward for the given level
// threshold was already collected. The claimed set stores level
// thresholds, not catalog row ids.
func (u *User) HasClaimedReward(level int64) bool {
	for _, claimed := range u.ClaimedRewards {
		if claimed == level {
			return true
		}
	}
	return false
}
