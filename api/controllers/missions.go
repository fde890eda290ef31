package controllers

import (
	"net/http"
	"strings"

	"github.com/denvolkov/playcart-backend/api/middleware"
	"github.com/denvolkov/playcart-backend/api/responses"
	"github.com/denvolkov/playcart-backend/api/validators"
	internalmissions "github.com/denvolkov/playcart-backend/internal/missions"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

type missionView struct {
	Mission  models.Mission      `json:"mission"`
	Progress *models.UserMission `json:"progress,omitempty"`
}

func ListMissions(svc internalmissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "missions service unavailable"))
			return
		}

		views, err := svc.ListForUser(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]missionView, 0, len(views))
		for _, view := range views {
			out = append(out, missionView{Mission: view.Mission, Progress: view.Progress})
		}
		responses.WriteSuccess(w, out)
	}
}

func ClaimMission(svc internalmissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "missions service unavailable"))
			return
		}

		missionID, err := validators.ParsePathUUID(r, "missionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		progress, err := svc.Claim(r.Context(), middleware.UserIDFromContext(r.Context()), missionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, progress)
	}
}

type missionRequest struct {
	Title        string  `json:"title" validate:"required,min=1,max=256"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=2048"`
	Type         string  `json:"type" validate:"required"`
	Target       string  `json:"target" validate:"required"`
	MinLevel     int     `json:"min_level" validate:"min=0"`
	RewardType   string  `json:"reward_type" validate:"required"`
	RewardAmount string  `json:"reward_amount" validate:"required"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

func (req *missionRequest) parse() (*models.Mission, error) {
	missionType, err := enums.ParseMissionType(strings.ToLower(strings.TrimSpace(req.Type)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mission type")
	}
	rewardType, err := enums.ParseRewardType(strings.ToLower(strings.TrimSpace(req.RewardType)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reward type")
	}
	target, err := parseAmount("target", req.Target)
	if err != nil {
		return nil, err
	}
	if target.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target must be positive").WithDetails(map[string]any{"field": "target"})
	}
	rewardAmount, err := parseAmount("reward_amount", req.RewardAmount)
	if err != nil {
		return nil, err
	}

	mission := &models.Mission{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Type:         missionType,
		Target:       target,
		MinLevel:     req.MinLevel,
		RewardType:   rewardType,
		RewardAmount: rewardAmount,
		IsActive:     true,
	}
	if req.IsActive != nil {
		mission.IsActive = *req.IsActive
	}
	return mission, nil
}

func CreateMission(repo internalmissions.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "missions repository unavailable"))
			return
		}

		var req missionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mission, err := req.parse()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := repo.Create(r.Context(), mission)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create mission"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func UpdateMission(repo internalmissions.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "missions repository unavailable"))
			return
		}

		missionID, err := validators.ParsePathUUID(r, "missionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req missionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parsed, err := req.parse()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updates := map[string]any{
			"title":         parsed.Title,
			"type":          parsed.Type,
			"target":        parsed.Target,
			"min_level":     parsed.MinLevel,
			"reward_type":   parsed.RewardType,
			"reward_amount": parsed.RewardAmount,
			"is_active":     parsed.IsActive,
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}

		if err := repo.Update(r.Context(), missionID, updates); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update mission"))
			return
		}

		mission, err := repo.FindByID(r.Context(), missionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "mission not found"))
			return
		}
		responses.WriteSuccess(w, mission)
	}
}

func DeleteMission(repo internalmissions.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "missions repository unavailable"))
			return
		}

		missionID, err := validators.ParsePathUUID(r, "missionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := repo.Delete(r.Context(), missionID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete mission"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
