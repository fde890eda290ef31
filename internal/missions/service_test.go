package missions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/internal/users"
	"github.com/denvolkov/playcart-backend/internal/wallet"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

func setupMissionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:missions_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
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
);`, `
CREATE TABLE IF NOT EXISTS missions (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT,
  type TEXT NOT NULL,
  target NUMERIC NOT NULL,
  min_level INTEGER NOT NULL DEFAULT 0,
  reward_type TEXT NOT NULL,
  reward_amount NUMERIC NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS user_missions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  mission_id TEXT NOT NULL,
  progress NUMERIC NOT NULL DEFAULT 0,
  completed INTEGER NOT NULL DEFAULT 0,
  completed_at DATETIME,
  claimed INTEGER NOT NULL DEFAULT 0,
  claimed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (user_id, mission_id)
);`}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
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

type missionFixture struct {
	db     *gorm.DB
	svc    Service
	users  users.Repository
	wallet wallet.Ledger
}

func newMissionFixture(t *testing.T) *missionFixture {
	t.Helper()

	db := setupMissionsTestDB(t)
	usersRepo := users.NewRepository(db)
	ledger := wallet.NewLedger(db)
	logg := logger.New(logger.Options{ServiceName: "missions-test"})

	svc, err := NewService(NewRepository(db), usersRepo, ledger, testTxRunner{db: db}, logg)
	require.NoError(t, err)

	return &missionFixture{db: db, svc: svc, users: usersRepo, wallet: ledger}
}

func (f *missionFixture) newUser(t *testing.T, level int) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Username:     "runner-" + uuid.NewString()[:8],
		PasswordHash: "x",
		Level:        level,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *missionFixture) newMission(t *testing.T, missionType enums.MissionType, target string, minLevel int, rewardType enums.RewardType, rewardAmount string) *models.Mission {
	t.Helper()

	mission := &models.Mission{
		ID:           uuid.New(),
		Title:        "test mission",
		Type:         missionType,
		Target:       decimal.RequireFromString(target),
		MinLevel:     minLevel,
		RewardType:   rewardType,
		RewardAmount: decimal.RequireFromString(rewardAmount),
		IsActive:     true,
	}
	require.NoError(t, f.db.Create(mission).Error)
	return mission
}

func TestRecordAccumulatesAndCompletes(t *testing.T) {
	f := newMissionFixture(t)
	ctx := context.Background()
	user := f.newUser(t, 1)
	mission := f.newMission(t, enums.MissionTypeOrdersCount, "3", 0, enums.RewardTypeCoins, "50")

	one := decimal.NewFromInt(1)
	require.NoError(t, f.svc.Record(ctx, user.ID, enums.MissionTypeOrdersCount, one))
	require.NoError(t, f.svc.Record(ctx, user.ID, enums.MissionTypeOrdersCount, one))

	repo := NewRepository(f.db)
	record, err := repo.FindUserMission(ctx, user.ID, mission.ID)
	require.NoError(t, err)
	assert.False(t, record.Completed)
	assert.True(t, record.Progress.Equal(decimal.NewFromInt(2)))

	// Reaching the target exactly counts as complete.
	require.NoError(t, f.svc.Record(ctx, user.ID, enums.MissionTypeOrdersCount, one))
	record, err = repo.FindUserMission(ctx, user.ID, mission.ID)
	require.NoError(t, err)
	assert.True(t, record.Completed)
	assert.NotNil(t, record.CompletedAt)
	assert.True(t, record.Progress.Equal(decimal.NewFromInt(3)))
}

func TestRecordOnCompletedMissionIsNoOp(t *testing.T) {
	f := newMissionFixture(t)
	ctx := context.Background()
	user := f.newUser(t, 1)
	mission := f.newMission(t, enums.MissionTypePurchase, "1", 0, enums.RewardTypeCoins, "10")

	one := decimal.NewFromInt(1)
	require.NoError(t, f.svc.Record(ctx, user.ID, enums.MissionTypePurchase, one))
	require.NoError(t, f.svc.Record(ctx, user.ID, enums.MissionTypePurchase, one))

	record, err := NewRepository(f.db).FindUserMission(ctx, user.ID, mission.ID)
	require.NoError(t, err)
	assert.True(t, record.Completed)
	assert.True(t, record.Progress.Equal(decimal.NewFromInt(1)), "got %s", record.Progress)
}

func TestRecordRespectsMinLevel(t *testing.T) {
	f := newMissionFixture(t)
	ctx := context.Background()
	user := f.newUser(t, 2)
	mission := f.newMission(t, enums.MissionTypeSpendAmount, "100", 5, enums.RewardTypeCoins, "10")

	require.NoError(t, f.svc.Record(ctx, user.ID, enums.MissionTypeSpendAmount, decimal.NewFromInt(50)))

	_, err := NewRepository(f.db).FindUserMission(ctx, user.ID, mission.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestClaimGrantsCoinsOnce(t *testing.T) {
	f := newMissionFixture(t)
	ctx := context.Background()
	user := f.newUser(t, 1)
	mission := f.newMission(t, enums.MissionTypePurchase, "1", 0, enums.RewardTypeCoins, "75.50")

	require.NoError(t, f.svc.Record(ctx, user.ID, enums.MissionTypePurchase, decimal.NewFromInt(1)))

	record, err := f.svc.Claim(ctx, user.ID, mission.ID)
	require.NoError(t, err)
	assert.True(t, record.Claimed)
	assert.NotNil(t, record.ClaimedAt)

	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("75.50")), "got %s", balance)

	_, err = f.svc.Claim(ctx, user.ID, mission.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	balance, err = f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("75.50")))
}

func TestClaimBeforeCompletionFails(t *testing.T) {
	f := newMissionFixture(t)
	ctx := context.Background()
	user := f.newUser(t, 1)
	mission := f.newMission(t, enums.MissionTypeOrdersCount, "5", 0, enums.RewardTypeCoins, "10")

	require.NoError(t, f.svc.Record(ctx, user.ID, enums.MissionTypeOrdersCount, decimal.NewFromInt(1)))

	_, err := f.svc.Claim(ctx, user.ID, mission.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestClaimXPRewardRelevels(t *testing.T) {
	f := newMissionFixture(t)
	ctx := context.Background()
	user := f.newUser(t, 1)
	mission := f.newMission(t, enums.MissionTypePurchase, "1", 0, enums.RewardTypeXP, "120")

	require.NoError(t, f.svc.Record(ctx, user.ID, enums.MissionTypePurchase, decimal.NewFromInt(1)))
	_, err := f.svc.Claim(ctx, user.ID, mission.ID)
	require.NoError(t, err)

	reloaded, err := f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, reloaded.XP)
	assert.Equal(t, 2, reloaded.Level)
	// Mission XP never carries level-up spins.
	assert.Equal(t, 0, reloaded.WheelSpinsAvailable)
}
