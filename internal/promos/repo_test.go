package promos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/pkg/db/models"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
)

func setupPromoTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	promoCodes := `
CREATE TABLE IF NOT EXISTS promo_codes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_percent NUMERIC NOT NULL,
  max_uses INTEGER NOT NULL DEFAULT 0,
  used_count INTEGER NOT NULL DEFAULT 0,
  expires_at DATETIME,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(promoCodes).Error)
	return db
}

func newPromo(t *testing.T, db *gorm.DB, code string, maxUses int) *models.PromoCode {
	t.Helper()

	promo := &models.PromoCode{
		ID:              uuid.New(),
		Code:            code,
		DiscountPercent: decimal.NewFromInt(20),
		MaxUses:         maxUses,
		IsActive:        true,
	}
	require.NoError(t, db.Create(promo).Error)
	return promo
}

func TestFindByCodeIsCaseInsensitive(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	newPromo(t, db, "SAVE20", 0)

	promo, err := repo.FindByCode(ctx, "save20")
	require.NoError(t, err)
	assert.Equal(t, "SAVE20", promo.Code)
}

func TestIncrementUsageStopsAtCap(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	newPromo(t, db, "LIMITED2", 2)

	require.NoError(t, repo.IncrementUsage(ctx, "limited2"))
	require.NoError(t, repo.IncrementUsage(ctx, "LIMITED2"))

	err := repo.IncrementUsage(ctx, "LIMITED2")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	promo, err := repo.FindByCode(ctx, "LIMITED2")
	require.NoError(t, err)
	assert.Equal(t, 2, promo.UsedCount)
}

func TestIncrementUsageUnlimited(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	newPromo(t, db, "FOREVER", 0)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.IncrementUsage(ctx, "FOREVER"))
	}
	promo, err := repo.FindByCode(ctx, "FOREVER")
	require.NoError(t, err)
	assert.Equal(t, 5, promo.UsedCount)
}

func TestIncrementUsageInactiveCode(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	promo := newPromo(t, db, "RETIRED", 0)
	require.NoError(t, repo.Update(ctx, promo.ID, map[string]any{"is_active": false}))

	err := repo.IncrementUsage(ctx, "RETIRED")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}
