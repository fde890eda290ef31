package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/internal/pricing"
	"github.com/denvolkov/playcart-backend/internal/products"
	"github.com/denvolkov/playcart-backend/internal/promos"
	"github.com/denvolkov/playcart-backend/internal/users"
	"github.com/denvolkov/playcart-backend/internal/wallet"
	"github.com/denvolkov/playcart-backend/pkg/config"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
	"github.com/denvolkov/playcart-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
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
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  price NUMERIC NOT NULL,
  discount_percent NUMERIC NOT NULL DEFAULT 0,
  xp_reward INTEGER NOT NULL DEFAULT 0,
  sizes TEXT,
  tags TEXT,
  image_url TEXT,
  stock INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  rating_avg NUMERIC,
  rating_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
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
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  subtotal NUMERIC NOT NULL,
  discount NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL,
  total_xp INTEGER NOT NULL DEFAULT 0,
  promo_code TEXT,
  shipping_address TEXT NOT NULL,
  phone_number TEXT NOT NULL,
  comment TEXT,
  delivery_user_id TEXT,
  tracking_number TEXT,
  refunded_amount NUMERIC,
  return_reason TEXT,
  return_requested_at DATETIME,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  size TEXT,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  xp_reward INTEGER NOT NULL DEFAULT 0,
  line_total NUMERIC NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_status_entries (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  actor_id TEXT,
  note TEXT,
  created_at DATETIME
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

type missionCall struct {
	userID      uuid.UUID
	missionType enums.MissionType
	amount      decimal.Decimal
}

type missionRecorderStub struct {
	mu    sync.Mutex
	calls []missionCall
}

func (m *missionRecorderStub) Record(_ context.Context, userID uuid.UUID, missionType enums.MissionType, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, missionCall{userID: userID, missionType: missionType, amount: amount})
	return nil
}

type orderFixture struct {
	db       *gorm.DB
	svc      *service
	missions *missionRecorderStub
	users    users.Repository
	products products.Repository
	promos   promos.Repository
	wallet   wallet.Ledger
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	db := setupOrdersTestDB(t)
	missions := &missionRecorderStub{}
	usersRepo := users.NewRepository(db)
	productsRepo := products.NewRepository(db)
	promosRepo := promos.NewRepository(db)
	ledger := wallet.NewLedger(db)
	logg := logger.New(logger.Options{ServiceName: "orders-test"})

	svc, err := NewService(
		NewRepository(db),
		usersRepo,
		productsRepo,
		promosRepo,
		ledger,
		testTxRunner{db: db},
		missions,
		logg,
		config.OrdersConfig{ReturnWindow: 24 * time.Hour, RefundRatePercent: 90},
		config.LevelsConfig{MaxDiscountPercent: 15},
	)
	require.NoError(t, err)

	return &orderFixture{
		db:       db,
		svc:      svc.(*service),
		missions: missions,
		users:    usersRepo,
		products: productsRepo,
		promos:   promosRepo,
		wallet:   ledger,
	}
}

func (f *orderFixture) newUser(t *testing.T, balance string, xp, level int) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Username:     "buyer-" + uuid.NewString()[:8],
		PasswordHash: "x",
		Balance:      decimal.RequireFromString(balance),
		XP:           xp,
		Level:        level,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *orderFixture) newProduct(t *testing.T, price string, discountPercent string, xpReward, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:              uuid.New(),
		Name:            "hoodie",
		Category:        "apparel",
		Price:           decimal.RequireFromString(price),
		DiscountPercent: decimal.RequireFromString(discountPercent),
		XPReward:        xpReward,
		Stock:           stock,
		IsActive:        true,
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func (f *orderFixture) createOrder(t *testing.T, user *models.User, product *models.Product, qty int, promoCode *string) *CreateOrderResult {
	t.Helper()

	result, err := f.svc.Create(context.Background(), CreateOrderInput{
		UserID:          user.ID,
		Items:           []pricing.ItemRequest{{ProductID: product.ID, Quantity: qty}},
		DeliveryAddress: "12 Main Street, Springfield",
		PhoneNumber:     "+15550100",
		PromoCode:       promoCode,
	})
	require.NoError(t, err)
	return result
}

func TestCreateSettlesAtomically(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	user := f.newUser(t, "1000", 0, 1)
	product := f.newProduct(t, "100", "0", 120, 5)

	result := f.createOrder(t, user, product, 1, nil)

	// Level 1 buyer gets a 1% level discount: 100 -> 99.
	assert.Equal(t, "99", result.Order.Total.String())
	assert.Equal(t, 120, result.XPGained)
	assert.Equal(t, 2, result.NewLevel)
	assert.True(t, result.LevelUp)

	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("901")), "got %s", balance)

	reloaded, err := f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, reloaded.XP)
	assert.Equal(t, 2, reloaded.Level)
	assert.Equal(t, 1, reloaded.WheelSpinsAvailable)

	stocked, err := f.products.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stocked.Stock)

	require.Len(t, f.missions.calls, 3)
	assert.Equal(t, enums.MissionTypeOrdersCount, f.missions.calls[0].missionType)
	assert.Equal(t, enums.MissionTypeSpendAmount, f.missions.calls[1].missionType)
	assert.True(t, f.missions.calls[1].amount.Equal(result.Order.Total))
	assert.Equal(t, enums.MissionTypePurchase, f.missions.calls[2].missionType)

	stored, err := f.svc.Track(ctx, result.Order.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, stored.Status)
	require.Len(t, stored.StatusHistory, 1)
	assert.Equal(t, enums.OrderStatusPending, stored.StatusHistory[0].Status)
}

func TestCreateInsufficientBalanceRollsBack(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	user := f.newUser(t, "50", 10, 1)
	product := f.newProduct(t, "100", "0", 40, 5)

	_, err := f.svc.Create(ctx, CreateOrderInput{
		UserID:          user.ID,
		Items:           []pricing.ItemRequest{{ProductID: product.ID, Quantity: 1}},
		DeliveryAddress: "12 Main Street, Springfield",
		PhoneNumber:     "+15550100",
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("50")), "got %s", balance)

	reloaded, err := f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.XP)

	stocked, err := f.products.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stocked.Stock)

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.missions.calls)
}

func TestCreateAppliesPromoOnce(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	user := f.newUser(t, "2000", 0, 5)
	product := f.newProduct(t, "1000", "10", 0, 3)

	promo := &models.PromoCode{
		ID:              uuid.New(),
		Code:            "SAVE20",
		DiscountPercent: decimal.NewFromInt(20),
		MaxUses:         10,
		IsActive:        true,
	}
	require.NoError(t, f.db.Create(promo).Error)

	code := "save20"
	result := f.createOrder(t, user, product, 1, &code)

	// 1000 -> 900 -> 855 (5% level) -> 684 (20% promo).
	assert.Equal(t, "684", result.Order.Total.String())
	assert.Equal(t, "216", result.DiscountApplied.String())
	require.NotNil(t, result.Order.PromoCode)
	assert.Equal(t, "SAVE20", *result.Order.PromoCode)

	stored, err := f.promos.FindByCode(ctx, "SAVE20")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)
}

func TestRequestReturnWindow(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	user := f.newUser(t, "1000", 0, 1)
	product := f.newProduct(t, "100", "0", 0, 5)
	result := f.createOrder(t, user, product, 1, nil)

	f.svc.now = func() time.Time { return result.Order.CreatedAt.Add(25 * time.Hour) }
	err := f.svc.RequestReturn(ctx, result.Order.ID, user.ID, nil)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())

	f.svc.now = func() time.Time { return result.Order.CreatedAt.Add(23 * time.Hour) }
	require.NoError(t, f.svc.RequestReturn(ctx, result.Order.ID, user.ID, nil))

	order, err := f.svc.Track(ctx, result.Order.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReturnPending, order.Status)

	err = f.svc.RequestReturn(ctx, result.Order.ID, user.ID, nil)
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestRequestReturnOwnerOnly(t *testing.T) {
	f := newOrderFixture(t)
	user := f.newUser(t, "1000", 0, 1)
	stranger := f.newUser(t, "0", 0, 1)
	product := f.newProduct(t, "100", "0", 0, 5)
	result := f.createOrder(t, user, product, 1, nil)

	err := f.svc.RequestReturn(context.Background(), result.Order.ID, stranger.ID, nil)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestApproveReturnRefundsOnce(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	admin := f.newUser(t, "0", 0, 1)
	user := f.newUser(t, "2000", 0, 5)
	product := f.newProduct(t, "1000", "10", 0, 3)
	promo := &models.PromoCode{
		ID:              uuid.New(),
		Code:            "SAVE20",
		DiscountPercent: decimal.NewFromInt(20),
		IsActive:        true,
	}
	require.NoError(t, f.db.Create(promo).Error)

	code := "SAVE20"
	result := f.createOrder(t, user, product, 1, &code) // total 684.00
	require.NoError(t, f.svc.RequestReturn(ctx, result.Order.ID, user.ID, nil))

	balanceBefore, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)

	approved, err := f.svc.ApproveReturn(ctx, result.Order.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReturned, approved.Status)
	require.NotNil(t, approved.RefundedAmount)
	assert.Equal(t, "615.60", approved.RefundedAmount.StringFixed(2))

	balanceAfter, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balanceAfter.Sub(balanceBefore).Equal(decimal.RequireFromString("615.60")))

	_, err = f.svc.ApproveReturn(ctx, result.Order.ID, admin.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())

	balanceFinal, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balanceFinal.Equal(balanceAfter))
}

func TestClaimDeliveryFirstWriterWins(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	user := f.newUser(t, "1000", 0, 1)
	courier := f.newUser(t, "0", 0, 1)
	rival := f.newUser(t, "0", 0, 1)
	product := f.newProduct(t, "100", "0", 0, 5)
	result := f.createOrder(t, user, product, 1, nil)

	_, err := f.svc.UpdateStatus(ctx, StatusUpdateInput{
		OrderID: result.Order.ID,
		Status:  enums.OrderStatusConfirmed,
		ActorID: courier.ID,
	})
	require.NoError(t, err)

	claimed, err := f.svc.ClaimDelivery(ctx, result.Order.ID, courier.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, claimed.Status)
	require.NotNil(t, claimed.DeliveryUserID)
	assert.Equal(t, courier.ID, *claimed.DeliveryUserID)

	// Repeat claim by the recorded courier is a no-op.
	again, err := f.svc.ClaimDelivery(ctx, result.Order.ID, courier.ID)
	require.NoError(t, err)
	assert.Equal(t, courier.ID, *again.DeliveryUserID)

	_, err = f.svc.ClaimDelivery(ctx, result.Order.ID, rival.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	final, err := f.svc.Track(ctx, result.Order.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, courier.ID, *final.DeliveryUserID)
}

func TestUpdateStatusEnforcesTransitionTable(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	admin := f.newUser(t, "0", 0, 1)
	user := f.newUser(t, "1000", 0, 1)
	product := f.newProduct(t, "100", "0", 0, 5)
	result := f.createOrder(t, user, product, 1, nil)

	_, err := f.svc.UpdateStatus(ctx, StatusUpdateInput{
		OrderID: result.Order.ID,
		Status:  enums.OrderStatusDelivered,
		ActorID: admin.ID,
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())

	tracking := "TRK-42"
	for _, step := range []enums.OrderStatus{
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
	} {
		_, err = f.svc.UpdateStatus(ctx, StatusUpdateInput{
			OrderID:        result.Order.ID,
			Status:         step,
			ActorID:        admin.ID,
			TrackingNumber: &tracking,
		})
		require.NoError(t, err, "step %s", step)
	}

	delivered, err := f.svc.UpdateStatus(ctx, StatusUpdateInput{
		OrderID: result.Order.ID,
		Status:  enums.OrderStatusDelivered,
		ActorID: admin.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)
	require.NotNil(t, delivered.TrackingNumber)
	assert.Equal(t, "TRK-42", *delivered.TrackingNumber)
	// Creation plus four staff transitions.
	assert.Len(t, delivered.StatusHistory, 5)

	_, err = f.svc.UpdateStatus(ctx, StatusUpdateInput{
		OrderID: result.Order.ID,
		Status:  enums.OrderStatusPending,
		ActorID: admin.ID,
	})
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestDeleteRemovesOrderAndChildren(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	user := f.newUser(t, "1000", 0, 1)
	product := f.newProduct(t, "100", "0", 0, 5)
	result := f.createOrder(t, user, product, 1, nil)

	require.NoError(t, f.svc.Delete(ctx, result.Order.ID))

	_, err := f.svc.Track(ctx, result.Order.ID, user.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())

	var items int64
	require.NoError(t, f.db.Model(&models.OrderItem{}).Where("order_id = ?", result.Order.ID).Count(&items).Error)
	assert.Zero(t, items)
}

func TestListMineNewestFirst(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	user := f.newUser(t, "10000", 0, 1)
	product := f.newProduct(t, "10", "0", 0, 100)

	first := f.createOrder(t, user, product, 1, nil)
	require.NoError(t, f.db.Model(&models.Order{}).
		Where("id = ?", first.Order.ID).
		Update("created_at", time.Now().Add(-time.Hour)).Error)
	second := f.createOrder(t, user, product, 1, nil)

	list, err := f.svc.ListMine(ctx, user.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Orders, 2)
	assert.Equal(t, second.Order.ID, list.Orders[0].ID)
	assert.Equal(t, first.Order.ID, list.Orders[1].ID)
}
