package controllers

import (
	"net/http"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/denvolkov/playcart-backend/api/responses"
	"github.com/denvolkov/playcart-backend/api/validators"
	internalproducts "github.com/denvolkov/playcart-backend/internal/products"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

func ListProducts(repo internalproducts.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products repository unavailable"))
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := repo.List(r.Context(), params, internalproducts.Filters{
			Category:   strings.TrimSpace(r.URL.Query().Get("category")),
			Tag:        strings.TrimSpace(r.URL.Query().Get("tag")),
			OnlyActive: true,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ProductDetail(repo internalproducts.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products repository unavailable"))
			return
		}

		productID, err := validators.ParsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := repo.FindByID(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found"))
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type productRequest struct {
	Name            string   `json:"name" validate:"required,min=1,max=256"`
	Description     *string  `json:"description,omitempty" validate:"omitempty,max=4096"`
	Category        string   `json:"category" validate:"required,min=1,max=64"`
	Price           string   `json:"price" validate:"required"`
	DiscountPercent *string  `json:"discount_percent,omitempty"`
	XPReward        int      `json:"xp_reward" validate:"min=0,max=100000"`
	Sizes           []string `json:"sizes,omitempty" validate:"omitempty,max=32,dive,min=1,max=16"`
	Tags            []string `json:"tags,omitempty" validate:"omitempty,max=32,dive,min=1,max=64"`
	ImageURL        *string  `json:"image_url,omitempty" validate:"omitempty,url,max=1024"`
	Stock           int      `json:"stock" validate:"min=0"`
	IsActive        *bool    `json:"is_active,omitempty"`
}

// parseAmount turns a decimal string from a request body into a
// non-negative decimal.
func parseAmount(field, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal number").WithDetails(map[string]any{"field": field})
	}
	if value.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative").WithDetails(map[string]any{"field": field})
	}
	return value, nil
}

func CreateProduct(repo internalproducts.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products repository unavailable"))
			return
		}

		var req productRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parseAmount("price", req.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		discount := decimal.Zero
		if req.DiscountPercent != nil {
			if discount, err = parseAmount("discount_percent", *req.DiscountPercent); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		product := &models.Product{
			Name:            strings.TrimSpace(req.Name),
			Description:     req.Description,
			Category:        strings.TrimSpace(req.Category),
			Price:           price,
			DiscountPercent: discount,
			XPReward:        req.XPReward,
			Sizes:           pq.StringArray(req.Sizes),
			Tags:            pq.StringArray(req.Tags),
			ImageURL:        req.ImageURL,
			Stock:           req.Stock,
			IsActive:        true,
		}
		if req.IsActive != nil {
			product.IsActive = *req.IsActive
		}

		created, err := repo.Create(r.Context(), product)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func UpdateProduct(repo internalproducts.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products repository unavailable"))
			return
		}

		productID, err := validators.ParsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req productRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parseAmount("price", req.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updates := map[string]any{
			"name":      strings.TrimSpace(req.Name),
			"category":  strings.TrimSpace(req.Category),
			"price":     price,
			"xp_reward": req.XPReward,
			"stock":     req.Stock,
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.DiscountPercent != nil {
			discount, err := parseAmount("discount_percent", *req.DiscountPercent)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			updates["discount_percent"] = discount
		}
		if req.Sizes != nil {
			updates["sizes"] = pq.StringArray(req.Sizes)
		}
		if req.Tags != nil {
			updates["tags"] = pq.StringArray(req.Tags)
		}
		if req.ImageURL != nil {
			updates["image_url"] = *req.ImageURL
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}

		if err := repo.Update(r.Context(), productID, updates); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product"))
			return
		}

		product, err := repo.FindByID(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found"))
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func DeleteProduct(repo internalproducts.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products repository unavailable"))
			return
		}

		productID, err := validators.ParsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := repo.Delete(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
