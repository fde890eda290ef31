package controllers

import (
	"net/http"
	"strings"

	"github.com/denvolkov/playcart-backend/api/middleware"
	"github.com/denvolkov/playcart-backend/api/responses"
	"github.com/denvolkov/playcart-backend/api/validators"
	internalrewards "github.com/denvolkov/playcart-backend/internal/rewards"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

type rewardView struct {
	Reward   models.Reward `json:"reward"`
	Unlocked bool          `json:"unlocked"`
	Claimed  bool          `json:"claimed"`
}

func ListRewards(svc internalrewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rewards service unavailable"))
			return
		}

		views, err := svc.ListForUser(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]rewardView, 0, len(views))
		for _, view := range views {
			out = append(out, rewardView{Reward: view.Reward, Unlocked: view.Unlocked, Claimed: view.Claimed})
		}
		responses.WriteSuccess(w, out)
	}
}

func ClaimReward(svc internalrewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rewards service unavailable"))
			return
		}

		level, err := validators.ParsePathInt64(r, "level")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reward, err := svc.Claim(r.Context(), middleware.UserIDFromContext(r.Context()), int(level))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reward)
	}
}

type rewardRequest struct {
	ID            int64   `json:"id" validate:"required,min=1"`
	Title         string  `json:"title" validate:"required,min=1,max=256"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=2048"`
	RequiredLevel int     `json:"required_level" validate:"required,min=1"`
	Type          string  `json:"type" validate:"required"`
	Amount        string  `json:"amount" validate:"required"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

func CreateReward(repo internalrewards.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rewards repository unavailable"))
			return
		}

		var req rewardRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rewardType, err := enums.ParseRewardType(strings.ToLower(strings.TrimSpace(req.Type)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reward type"))
			return
		}
		amount, err := parseAmount("amount", req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reward := &models.Reward{
			ID:            req.ID,
			Title:         strings.TrimSpace(req.Title),
			Description:   req.Description,
			RequiredLevel: req.RequiredLevel,
			Type:          rewardType,
			Amount:        amount,
			IsActive:      true,
		}
		if req.IsActive != nil {
			reward.IsActive = *req.IsActive
		}

		created, err := repo.Create(r.Context(), reward)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reward"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func UpdateReward(repo internalrewards.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rewards repository unavailable"))
			return
		}

		rewardID, err := validators.ParsePathInt64(r, "rewardId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req rewardRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rewardType, err := enums.ParseRewardType(strings.ToLower(strings.TrimSpace(req.Type)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reward type"))
			return
		}
		amount, err := parseAmount("amount", req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updates := map[string]any{
			"title":          strings.TrimSpace(req.Title),
			"required_level": req.RequiredLevel,
			"type":           rewardType,
			"amount":         amount,
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}

		if err := repo.Update(r.Context(), rewardID, updates); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update reward"))
			return
		}

		reward, err := repo.FindByID(r.Context(), rewardID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "reward not found"))
			return
		}
		responses.WriteSuccess(w, reward)
	}
}

func DeleteReward(repo internalrewards.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rewards repository unavailable"))
			return
		}

		rewardID, err := validators.ParsePathInt64(r, "rewardId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := repo.Delete(r.Context(), rewardID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete reward"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
