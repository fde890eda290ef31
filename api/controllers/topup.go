package controllers

import (
	"net/http"
	"strings"

	"github.com/denvolkov/playcart-backend/api/middleware"
	"github.com/denvolkov/playcart-backend/api/responses"
	"github.com/denvolkov/playcart-backend/api/validators"
	internaltopup "github.com/denvolkov/playcart-backend/internal/topup"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

type redeemCodeRequest struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

func RedeemTopUpCode(svc internaltopup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topup service unavailable"))
			return
		}

		var req redeemCodeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.Redeem(r.Context(), middleware.UserIDFromContext(r.Context()), req.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"code":   code.Code,
			"amount": code.Amount.StringFixed(2),
		})
	}
}

type topUpRequestBody struct {
	Amount string  `json:"amount" validate:"required"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=1024"`
}

func RequestTopUp(svc internaltopup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topup service unavailable"))
			return
		}

		var req topUpRequestBody
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := parseAmount("amount", req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Request(r.Context(), middleware.UserIDFromContext(r.Context()), amount, req.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

func ListMyTopUpRequests(svc internaltopup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topup service unavailable"))
			return
		}

		requests, err := svc.ListMyRequests(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests)
	}
}

func ListTopUpRequests(svc internaltopup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topup service unavailable"))
			return
		}

		var status *enums.TopUpStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed := enums.TopUpStatus(strings.ToLower(raw))
			if !parsed.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			status = &parsed
		}

		requests, err := svc.ListRequests(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests)
	}
}

// ResolveTopUpRequest settles a pending request; the decision is part of
// the route.
func ResolveTopUpRequest(svc internaltopup.Service, approve bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topup service unavailable"))
			return
		}

		requestID, err := validators.ParsePathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Review(r.Context(), middleware.UserIDFromContext(r.Context()), requestID, approve)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

type createTopUpCodeRequest struct {
	Code   string `json:"code,omitempty" validate:"omitempty,min=4,max=64"`
	Amount string `json:"amount" validate:"required"`
}

func CreateTopUpCode(svc internaltopup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topup service unavailable"))
			return
		}

		var req createTopUpCodeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := parseAmount("amount", req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.CreateCode(r.Context(), req.Code, amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, code)
	}
}

func ListTopUpCodes(svc internaltopup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topup service unavailable"))
			return
		}

		codes, err := svc.ListCodes(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, codes)
	}
}
