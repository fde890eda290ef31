package reviews

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/internal/products"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

func setupReviewsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:reviews_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
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
  rating_avg NUMERIC,
  rating_count INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS reviews (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  rating INTEGER NOT NULL,
  text TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (product_id, user_id)
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

type missionRecorderStub struct {
	mu    sync.Mutex
	calls []enums.MissionType
}

func (s *missionRecorderStub) Record(_ context.Context, _ uuid.UUID, missionType enums.MissionType, _ decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, missionType)
	return nil
}

type reviewsFixture struct {
	db       *gorm.DB
	svc      Service
	products products.Repository
	missions *missionRecorderStub
}

func newReviewsFixture(t *testing.T) *reviewsFixture {
	t.Helper()

	db := setupReviewsTestDB(t)
	productsRepo := products.NewRepository(db)
	missions := &missionRecorderStub{}
	logg := logger.New(logger.Options{ServiceName: "reviews-test"})

	svc, err := NewService(NewRepository(db), productsRepo, missions, testTxRunner{db: db}, logg)
	require.NoError(t, err)

	return &reviewsFixture{db: db, svc: svc, products: productsRepo, missions: missions}
}

func (f *reviewsFixture) newProduct(t *testing.T) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:       uuid.New(),
		Name:     "hoodie",
		Category: "apparel",
		Price:    decimal.NewFromInt(60),
		Stock:    10,
		IsActive: true,
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func TestCreateUpdatesProductAggregate(t *testing.T) {
	f := newReviewsFixture(t)
	ctx := context.Background()
	product := f.newProduct(t)

	_, err := f.svc.Create(ctx, uuid.New(), product.ID, 5, nil)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, uuid.New(), product.ID, 4, nil)
	require.NoError(t, err)

	reloaded, err := f.products.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, reloaded.RatingAvg.InexactFloat64(), 0.001)
	assert.Equal(t, 2, reloaded.RatingCount)
}

func TestCreateSecondReviewBySameUserFails(t *testing.T) {
	f := newReviewsFixture(t)
	ctx := context.Background()
	product := f.newProduct(t)
	userID := uuid.New()

	_, err := f.svc.Create(ctx, userID, product.ID, 3, nil)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, userID, product.ID, 5, nil)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	reloaded, err := f.products.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.RatingCount)
}

func TestCreateValidatesRating(t *testing.T) {
	f := newReviewsFixture(t)
	ctx := context.Background()
	product := f.newProduct(t)

	for _, rating := range []int{0, 6, -1} {
		_, err := f.svc.Create(ctx, uuid.New(), product.ID, rating, nil)
		appErr := pkgerrors.As(err)
		require.NotNil(t, appErr, "rating %d", rating)
		assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
	}
}

func TestCreateUnknownProductFails(t *testing.T) {
	f := newReviewsFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, uuid.New(), uuid.New(), 4, nil)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestCreateRecordsMissionProgress(t *testing.T) {
	f := newReviewsFixture(t)
	ctx := context.Background()
	product := f.newProduct(t)

	_, err := f.svc.Create(ctx, uuid.New(), product.ID, 4, nil)
	require.NoError(t, err)

	f.missions.mu.Lock()
	defer f.missions.mu.Unlock()
	require.Len(t, f.missions.calls, 1)
	assert.Equal(t, enums.MissionTypeReview, f.missions.calls[0])
}

func TestDeleteRefreshesAggregate(t *testing.T) {
	f := newReviewsFixture(t)
	ctx := context.Background()
	product := f.newProduct(t)

	review, err := f.svc.Create(ctx, uuid.New(), product.ID, 2, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, review.ID, product.ID))

	reloaded, err := f.products.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.RatingCount)
	assert.InDelta(t, 0.0, reloaded.RatingAvg.InexactFloat64(), 0.001)
}
