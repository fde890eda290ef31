package topup

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
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

func setupTopUpTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:topup_" + uuid.NewString() + "?mode=memory&cache=shared"
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
CREATE TABLE IF NOT EXISTS top_up_codes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  amount NUMERIC NOT NULL,
  redeemed_by TEXT,
  redeemed_at DATETIME,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS top_up_requests (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  note TEXT,
  reviewed_by TEXT,
  reviewed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
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

type topUpFixture struct {
	db     *gorm.DB
	svc    Service
	wallet wallet.Ledger
}

func newTopUpFixture(t *testing.T) *topUpFixture {
	t.Helper()

	db := setupTopUpTestDB(t)
	ledger := wallet.NewLedger(db)
	logg := logger.New(logger.Options{ServiceName: "topup-test"})

	svc, err := NewService(NewRepository(db), ledger, testTxRunner{db: db}, logg)
	require.NoError(t, err)

	return &topUpFixture{db: db, svc: svc, wallet: ledger}
}

func (f *topUpFixture) newUser(t *testing.T) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Username:     "payer-" + uuid.NewString()[:8],
		PasswordHash: "x",
		Level:        1,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func TestRedeemCreditsOnce(t *testing.T) {
	f := newTopUpFixture(t)
	ctx := context.Background()
	user := f.newUser(t)
	rival := f.newUser(t)

	_, err := f.svc.CreateCode(ctx, "GIFT100", decimal.NewFromInt(100))
	require.NoError(t, err)

	voucher, err := f.svc.Redeem(ctx, user.ID, "  gift100 ")
	require.NoError(t, err)
	require.NotNil(t, voucher.RedeemedBy)
	assert.Equal(t, user.ID, *voucher.RedeemedBy)
	assert.NotNil(t, voucher.RedeemedAt)

	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(100)), "got %s", balance)

	_, err = f.svc.Redeem(ctx, rival.ID, "GIFT100")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	rivalBalance, err := f.wallet.Balance(ctx, rival.ID)
	require.NoError(t, err)
	assert.True(t, rivalBalance.IsZero())
}

func TestRedeemUnknownCode(t *testing.T) {
	f := newTopUpFixture(t)
	ctx := context.Background()
	user := f.newUser(t)

	_, err := f.svc.Redeem(ctx, user.ID, "NOPE")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestCreateCodeGeneratesWhenEmpty(t *testing.T) {
	f := newTopUpFixture(t)
	ctx := context.Background()

	voucher, err := f.svc.CreateCode(ctx, "", decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.Len(t, voucher.Code, 12)

	_, err = f.svc.CreateCode(ctx, "x", decimal.Zero)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestReviewApprovalCreditsWallet(t *testing.T) {
	f := newTopUpFixture(t)
	ctx := context.Background()
	user := f.newUser(t)
	admin := f.newUser(t)

	request, err := f.svc.Request(ctx, user.ID, decimal.RequireFromString("49.99"), nil)
	require.NoError(t, err)
	assert.Equal(t, enums.TopUpStatusPending, request.Status)

	reviewed, err := f.svc.Review(ctx, admin.ID, request.ID, true)
	require.NoError(t, err)
	assert.Equal(t, enums.TopUpStatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, admin.ID, *reviewed.ReviewedBy)

	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("49.99")), "got %s", balance)

	// Review is one-shot.
	_, err = f.svc.Review(ctx, admin.ID, request.ID, true)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())

	balance, err = f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("49.99")))
}

func TestReviewRejectionLeavesBalance(t *testing.T) {
	f := newTopUpFixture(t)
	ctx := context.Background()
	user := f.newUser(t)
	admin := f.newUser(t)

	request, err := f.svc.Request(ctx, user.ID, decimal.NewFromInt(10), nil)
	require.NoError(t, err)

	reviewed, err := f.svc.Review(ctx, admin.ID, request.ID, false)
	require.NoError(t, err)
	assert.Equal(t, enums.TopUpStatusRejected, reviewed.Status)

	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}
