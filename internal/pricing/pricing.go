// Package pricing computes a cart's line items and discounted totals.
// Quote is a pure function over catalog, user, and promo state; it never
// touches storage.
package pricing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/denvolkov/playcart-backend/internal/levels"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// ItemRequest is one requested cart entry.
type ItemRequest struct {
	ProductID uuid.UUID
	Quantity  int
	Size      *string
}

// Line is a priced cart entry with the product state snapshotted.
type Line struct {
	ProductID   uuid.UUID
	ProductName string
	Size        *string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
	XPReward    int
}

// Quote is the pricing result handed to settlement.
type Quote struct {
	Lines           []Line
	Subtotal        decimal.Decimal
	Total           decimal.Decimal
	TotalXP         int
	LevelDiscount   decimal.Decimal
	PromoDiscount   decimal.Decimal
	DiscountApplied decimal.Decimal
	PromoApplied    bool
}

// Input carries everything Quote needs. Products are keyed by ID and must
// already be loaded; Promo may be nil.
type Input struct {
	Items              []ItemRequest
	Products           map[uuid.UUID]models.Product
	UserLevel          int
	MaxDiscountPercent int
	Promo              *models.PromoCode
	Now                time.Time
}

// PriceCart resolves every requested item against the catalog, applies the
// per-product discount, then the level discount, then the promo discount.
// The level and promo discounts compound multiplicatively: each applies to
// the already-reduced total. Totals are rounded to two decimal places.
func PriceCart(in Input) (*Quote, error) {
	if len(in.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	quote := &Quote{Lines: make([]Line, 0, len(in.Items))}
	subtotal := decimal.Zero

	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		product, ok := in.Products[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", item.ProductID))
		}
		if item.Size != nil && !containsSize(product.Sizes, *item.Size) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size %s not available", *item.Size))
		}

		unitPrice := product.Price.
			Mul(hundred.Sub(product.DiscountPercent)).
			Div(hundred).
			Round(2)
		qty := decimal.NewFromInt(int64(item.Quantity))
		lineTotal := unitPrice.Mul(qty)
		lineXP := product.XPReward * item.Quantity

		quote.Lines = append(quote.Lines, Line{
			ProductID:   product.ID,
			ProductName: product.Name,
			Size:        item.Size,
			Quantity:    item.Quantity,
			UnitPrice:   unitPrice,
			LineTotal:   lineTotal,
			XPReward:    product.XPReward,
		})
		subtotal = subtotal.Add(lineTotal)
		quote.TotalXP += lineXP
	}

	quote.Subtotal = subtotal.Round(2)

	levelPercent := decimal.NewFromInt(int64(levels.DiscountPercent(in.UserLevel, in.MaxDiscountPercent)))
	afterLevel := subtotal.Mul(hundred.Sub(levelPercent)).Div(hundred)
	levelDiscount := subtotal.Sub(afterLevel)

	promoPercent := decimal.Zero
	if in.Promo != nil && promoEligible(in.Promo, in.Now) {
		promoPercent = in.Promo.DiscountPercent
		quote.PromoApplied = true
	}
	afterPromo := afterLevel.Mul(hundred.Sub(promoPercent)).Div(hundred)
	promoDiscount := afterLevel.Sub(afterPromo)

	quote.Total = afterPromo.Round(2)
	quote.LevelDiscount = levelDiscount.Round(2)
	quote.PromoDiscount = promoDiscount.Round(2)
	quote.DiscountApplied = levelDiscount.Add(promoDiscount).Round(2)

	return quote, nil
}

// An inactive, exhausted, or expired promo contributes zero discount
// silently rather than failing the quote.
func promoEligible(promo *models.PromoCode, now time.Time) bool {
	if !promo.IsActive {
		return false
	}
	if promo.Exhausted() {
		return false
	}
	if promo.Expired(now) {
		return false
	}
	return true
}

func containsSize(sizes []string, size string) bool {
	for _, s := range sizes {
		if s == size {
			return true
		}
	}
	return false
}
