package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/denvolkov/playcart-backend/api/middleware"
	"github.com/denvolkov/playcart-backend/api/responses"
	"github.com/denvolkov/playcart-backend/api/validators"
	internalwheel "github.com/denvolkov/playcart-backend/internal/wheel"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

func SpinWheel(svc internalwheel.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wheel service unavailable"))
			return
		}

		result, err := svc.Spin(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"prize":           result.Prize,
			"spins_remaining": result.SpinsRemaining,
		})
	}
}

func ListWheelPrizes(svc internalwheel.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wheel service unavailable"))
			return
		}

		prizes, err := svc.ListPrizes(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, prizes)
	}
}

type wheelPrizeRequest struct {
	Label       string  `json:"label" validate:"required,min=1,max=128"`
	Type        string  `json:"type" validate:"required"`
	Amount      string  `json:"amount" validate:"required"`
	Probability float64 `json:"probability" validate:"required,gt=0"`
	Position    int     `json:"position" validate:"min=0"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func (req *wheelPrizeRequest) parse() (enums.RewardType, decimal.Decimal, error) {
	rewardType, err := enums.ParseRewardType(strings.ToLower(strings.TrimSpace(req.Type)))
	if err != nil {
		return "", decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid prize type")
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return "", decimal.Zero, err
	}
	return rewardType, amount, nil
}

func CreateWheelPrize(repo internalwheel.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wheel repository unavailable"))
			return
		}

		var req wheelPrizeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rewardType, amount, err := req.parse()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		prize := &models.WheelPrize{
			Label:       strings.TrimSpace(req.Label),
			Type:        rewardType,
			Amount:      amount,
			Probability: req.Probability,
			Position:    req.Position,
			IsActive:    true,
		}
		if req.IsActive != nil {
			prize.IsActive = *req.IsActive
		}

		created, err := repo.Create(r.Context(), prize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wheel prize"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func UpdateWheelPrize(repo internalwheel.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wheel repository unavailable"))
			return
		}

		prizeID, err := validators.ParsePathUUID(r, "prizeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req wheelPrizeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rewardType, amount, err := req.parse()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updates := map[string]any{
			"label":       strings.TrimSpace(req.Label),
			"type":        rewardType,
			"amount":      amount,
			"probability": req.Probability,
			"position":    req.Position,
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}

		if err := repo.Update(r.Context(), prizeID, updates); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wheel prize"))
			return
		}

		prize, err := repo.FindByID(r.Context(), prizeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "wheel prize not found"))
			return
		}
		responses.WriteSuccess(w, prize)
	}
}

func DeleteWheelPrize(repo internalwheel.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wheel repository unavailable"))
			return
		}

		prizeID, err := validators.ParsePathUUID(r, "prizeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := repo.Delete(r.Context(), prizeID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete wheel prize"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
