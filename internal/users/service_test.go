package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/internal/wallet"
	"github.com/denvolkov/playcart-backend/pkg/config"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  balance NUMERIC NOT NULL DEFAULT 0,
  xp INTEGER NOT NULL DEFAULT 0,
  level INTEGER NOT NULL DEFAULT 1,
  wheel_spins_available INTEGER NOT NULL DEFAULT 0,
  claimed_rewards TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

type usersFixture struct {
	db     *gorm.DB
	svc    Service
	repo   Repository
	wallet wallet.Ledger
}

func newUsersFixture(t *testing.T) *usersFixture {
	t.Helper()

	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ledger := wallet.NewLedger(db)
	logg := logger.New(logger.Options{ServiceName: "users-test"})

	svc, err := NewService(repo, ledger, testTxRunner{db: db}, logg, config.LevelsConfig{MaxDiscountPercent: 10})
	require.NoError(t, err)

	return &usersFixture{db: db, svc: svc, repo: repo, wallet: ledger}
}

func (f *usersFixture) newUser(t *testing.T, mutate func(*models.User)) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Username:     "member-" + uuid.NewString()[:8],
		PasswordHash: "x",
		Role:         enums.RoleUser,
		Level:        1,
		IsActive:     true,
	}
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func TestProfileDerivesLevelProgress(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()
	user := f.newUser(t, func(u *models.User) {
		u.XP = 120
		u.Level = 2
	})

	profile, err := f.svc.Profile(ctx, user.ID)
	require.NoError(t, err)

	// level 2 starts at 100 total XP and level 3 at 250.
	assert.Equal(t, 130, profile.XPToNextLevel)
	assert.Equal(t, 250, profile.NextLevelAt)
	assert.Equal(t, 2, profile.DiscountPercent)
}

func TestProfileCapsDiscount(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()
	user := f.newUser(t, func(u *models.User) {
		u.Level = 25
	})

	profile, err := f.svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, profile.DiscountPercent)
}

func TestProfileUnknownUserNotFound(t *testing.T) {
	f := newUsersFixture(t)

	_, err := f.svc.Profile(context.Background(), uuid.New())
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestAdjustBalanceCreditAndDebit(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()
	user := f.newUser(t, nil)

	updated, err := f.svc.AdjustBalance(ctx, user.ID, decimal.NewFromInt(150))
	require.NoError(t, err)
	assert.True(t, updated.Balance.Equal(decimal.NewFromInt(150)), "got %s", updated.Balance)

	updated, err = f.svc.AdjustBalance(ctx, user.ID, decimal.NewFromInt(-50))
	require.NoError(t, err)
	assert.True(t, updated.Balance.Equal(decimal.NewFromInt(100)), "got %s", updated.Balance)
}

func TestAdjustBalanceRejectsOverdraft(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()
	user := f.newUser(t, func(u *models.User) {
		u.Balance = decimal.NewFromInt(30)
	})

	_, err := f.svc.AdjustBalance(ctx, user.ID, decimal.NewFromInt(-100))
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(30)))
}

func TestAdjustBalanceRejectsZeroDelta(t *testing.T) {
	f := newUsersFixture(t)
	user := f.newUser(t, nil)

	_, err := f.svc.AdjustBalance(context.Background(), user.ID, decimal.Zero)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestGrantXPRestampsLevelAndAwardsSpins(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()
	user := f.newUser(t, func(u *models.User) {
		u.XP = 90
	})

	// 90 + 200 = 290 XP lands in level 3 (thresholds at 100 and 250).
	updated, err := f.svc.GrantXP(ctx, user.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, 290, updated.XP)
	assert.Equal(t, 3, updated.Level)
	assert.Equal(t, 2, updated.WheelSpinsAvailable)
}

func TestGrantXPWithinLevelKeepsSpins(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()
	user := f.newUser(t, func(u *models.User) {
		u.XP = 10
	})

	updated, err := f.svc.GrantXP(ctx, user.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, 30, updated.XP)
	assert.Equal(t, 1, updated.Level)
	assert.Equal(t, 0, updated.WheelSpinsAvailable)
}

func TestGrantXPRejectsNonPositive(t *testing.T) {
	f := newUsersFixture(t)
	user := f.newUser(t, nil)

	_, err := f.svc.GrantXP(context.Background(), user.ID, 0)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestUpdateRoleValidatesRole(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()
	user := f.newUser(t, nil)

	updated, err := f.svc.UpdateRole(ctx, user.ID, enums.RoleDelivery)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleDelivery, updated.Role)

	_, err = f.svc.UpdateRole(ctx, user.ID, enums.Role("superuser"))
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestSetActiveTogglesFlag(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()
	user := f.newUser(t, nil)

	updated, err := f.svc.SetActive(ctx, user.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	updated, err = f.svc.SetActive(ctx, user.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
}

func TestDeleteRemovesUser(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()
	user := f.newUser(t, nil)

	require.NoError(t, f.svc.Delete(ctx, user.ID))

	_, err := f.svc.Get(ctx, user.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())

	err = f.svc.Delete(ctx, uuid.New())
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
