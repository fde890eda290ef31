package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/denvolkov/playcart-backend/api/responses"
	"github.com/denvolkov/playcart-backend/api/validators"
	internalpromos "github.com/denvolkov/playcart-backend/internal/promos"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

type validatePromoRequest struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

// ValidatePromo lets the storefront check a code before checkout. The
// final say still belongs to order settlement, which re-checks inside
// its transaction.
func ValidatePromo(repo internalpromos.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promos repository unavailable"))
			return
		}

		var req validatePromoRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := repo.FindByCode(r.Context(), internalpromos.Canonical(req.Code))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "promo code not found"))
			return
		}

		now := time.Now()
		switch {
		case !promo.IsActive:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "promo code is disabled"))
			return
		case promo.Expired(now):
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "promo code has expired"))
			return
		case promo.Exhausted():
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "promo code is used up"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"code":             promo.Code,
			"discount_percent": promo.DiscountPercent.StringFixed(2),
		})
	}
}

type promoRequest struct {
	Code            string  `json:"code" validate:"required,min=1,max=64"`
	DiscountPercent string  `json:"discount_percent" validate:"required"`
	MaxUses         int     `json:"max_uses" validate:"min=0"`
	ExpiresAt       *string `json:"expires_at,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

func (req *promoRequest) parse() (decimal.Decimal, *time.Time, error) {
	discount, err := parseAmount("discount_percent", req.DiscountPercent)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if discount.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeValidation, "discount cannot exceed 100 percent").WithDetails(map[string]any{"field": "discount_percent"})
	}
	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.ExpiresAt))
		if err != nil {
			return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeValidation, "expires_at must be RFC3339").WithDetails(map[string]any{"field": "expires_at"})
		}
		expiresAt = &parsed
	}
	return discount, expiresAt, nil
}

func ListPromos(repo internalpromos.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promos repository unavailable"))
			return
		}

		promos, err := repo.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list promo codes"))
			return
		}
		responses.WriteSuccess(w, promos)
	}
}

func CreatePromo(repo internalpromos.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promos repository unavailable"))
			return
		}

		var req promoRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discount, expiresAt, err := req.parse()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo := &models.PromoCode{
			Code:            internalpromos.Canonical(req.Code),
			DiscountPercent: discount,
			MaxUses:         req.MaxUses,
			ExpiresAt:       expiresAt,
			IsActive:        true,
		}
		if req.IsActive != nil {
			promo.IsActive = *req.IsActive
		}

		created, err := repo.Create(r.Context(), promo)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "promo code already exists"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func UpdatePromo(repo internalpromos.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promos repository unavailable"))
			return
		}

		promoID, err := validators.ParsePathUUID(r, "promoId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req promoRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discount, expiresAt, err := req.parse()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updates := map[string]any{
			"code":             internalpromos.Canonical(req.Code),
			"discount_percent": discount,
			"max_uses":         req.MaxUses,
		}
		if req.ExpiresAt != nil {
			updates["expires_at"] = expiresAt
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}

		if err := repo.Update(r.Context(), promoID, updates); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update promo code"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

func DeletePromo(repo internalpromos.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promos repository unavailable"))
			return
		}

		promoID, err := validators.ParsePathUUID(r, "promoId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := repo.Delete(r.Context(), promoID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete promo code"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
