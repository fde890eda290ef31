package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denvolkov/playcart-backend/pkg/db/models"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
)

func product(price string, discountPercent string, xp int, sizes ...string) models.Product {
	return models.Product{
		ID:              uuid.New(),
		Name:            "test product",
		Price:           decimal.RequireFromString(price),
		DiscountPercent: decimal.RequireFromString(discountPercent),
		XPReward:        xp,
		Sizes:           pq.StringArray(sizes),
		IsActive:        true,
	}
}

func TestPriceCartCompoundsDiscounts(t *testing.T) {
	p := product("1000", "10", 50)
	promo := &models.PromoCode{
		Code:            "SAVE20",
		DiscountPercent: decimal.NewFromInt(20),
		IsActive:        true,
	}

	quote, err := PriceCart(Input{
		Items:              []ItemRequest{{ProductID: p.ID, Quantity: 1}},
		Products:           map[uuid.UUID]models.Product{p.ID: p},
		UserLevel:          5,
		MaxDiscountPercent: 15,
		Promo:              promo,
		Now:                time.Now(),
	})
	require.NoError(t, err)

	// 1000 -> 900 after the product discount, -> 855 after the 5% level
	// discount, -> 684 after the 20% promo.
	assert.Equal(t, "900", quote.Subtotal.String())
	assert.Equal(t, "684", quote.Total.String())
	assert.Equal(t, "45", quote.LevelDiscount.String())
	assert.Equal(t, "171", quote.PromoDiscount.String())
	assert.Equal(t, "216", quote.DiscountApplied.String())
	assert.Equal(t, 50, quote.TotalXP)
	assert.True(t, quote.PromoApplied)
	assert.True(t, quote.Subtotal.Sub(quote.Total).Sub(quote.DiscountApplied).Abs().LessThanOrEqual(decimal.RequireFromString("0.01")))
}

func TestPriceCartLevelDiscountCapped(t *testing.T) {
	p := product("100", "0", 0)
	quote, err := PriceCart(Input{
		Items:              []ItemRequest{{ProductID: p.ID, Quantity: 1}},
		Products:           map[uuid.UUID]models.Product{p.ID: p},
		UserLevel:          40,
		MaxDiscountPercent: 15,
		Now:                time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "85", quote.Total.String())
}

func TestPriceCartIneligiblePromoIsSilentlyIgnored(t *testing.T) {
	p := product("100", "0", 0)

	exhausted := &models.PromoCode{
		Code:            "USED",
		DiscountPercent: decimal.NewFromInt(50),
		IsActive:        true,
		MaxUses:         5,
		UsedCount:       5,
	}
	quote, err := PriceCart(Input{
		Items:              []ItemRequest{{ProductID: p.ID, Quantity: 2}},
		Products:           map[uuid.UUID]models.Product{p.ID: p},
		UserLevel:          0,
		MaxDiscountPercent: 15,
		Promo:              exhausted,
		Now:                time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, quote.PromoApplied)
	assert.Equal(t, "200", quote.Total.String())
	assert.True(t, quote.PromoDiscount.IsZero())
}

func TestPriceCartUnknownProduct(t *testing.T) {
	_, err := PriceCart(Input{
		Items:    []ItemRequest{{ProductID: uuid.New(), Quantity: 1}},
		Products: map[uuid.UUID]models.Product{},
		Now:      time.Now(),
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestPriceCartInvalidSize(t *testing.T) {
	p := product("50", "0", 0, "S", "M")
	size := "XL"
	_, err := PriceCart(Input{
		Items:    []ItemRequest{{ProductID: p.ID, Quantity: 1, Size: &size}},
		Products: map[uuid.UUID]models.Product{p.ID: p},
		Now:      time.Now(),
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestPriceCartEmptyCart(t *testing.T) {
	_, err := PriceCart(Input{Now: time.Now()})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestPriceCartSizelessProductAcceptsNoSize(t *testing.T) {
	p := product("10.50", "0", 1)
	quote, err := PriceCart(Input{
		Items:              []ItemRequest{{ProductID: p.ID, Quantity: 3}},
		Products:           map[uuid.UUID]models.Product{p.ID: p},
		MaxDiscountPercent: 15,
		Now:                time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "31.5", quote.Total.String())
	assert.Equal(t, 3, quote.TotalXP)
}
