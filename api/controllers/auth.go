package controllers

import (
	"net/http"

	"github.com/denvolkov/playcart-backend/api/middleware"
	"github.com/denvolkov/playcart-backend/api/responses"
	"github.com/denvolkov/playcart-backend/api/validators"
	internalauth "github.com/denvolkov/playcart-backend/internal/auth"
	internalusers "github.com/denvolkov/playcart-backend/internal/users"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type sessionResponse struct {
	User  userView `json:"user"`
	Token string   `json:"token"`
}

type userView struct {
	ID                  string  `json:"id"`
	Username            string  `json:"username"`
	Role                string  `json:"role"`
	Balance             string  `json:"balance"`
	XP                  int     `json:"xp"`
	Level               int     `json:"level"`
	WheelSpinsAvailable int     `json:"wheel_spins_available"`
	ClaimedRewards      []int64 `json:"claimed_rewards"`
	IsActive            bool    `json:"is_active"`
}

func newUserView(user models.User) userView {
	claimed := []int64(user.ClaimedRewards)
	if claimed == nil {
		claimed = []int64{}
	}
	return userView{
		ID:                  user.ID.String(),
		Username:            user.Username,
		Role:                string(user.Role),
		Balance:             user.Balance.StringFixed(2),
		XP:                  user.XP,
		Level:               user.Level,
		WheelSpinsAvailable: user.WheelSpinsAvailable,
		ClaimedRewards:      claimed,
		IsActive:            user.IsActive,
	}
}

func Register(svc internalauth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req credentialsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Register(r.Context(), req.Username, req.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{
			User:  newUserView(result.User),
			Token: result.Token,
		})
	}
}

func Login(svc internalauth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req credentialsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionResponse{
			User:  newUserView(result.User),
			Token: result.Token,
		})
	}
}

func Logout(svc internalauth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		accessID := middleware.AccessIDFromContext(r.Context())
		if accessID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
			return
		}

		if err := svc.Logout(r.Context(), accessID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

type profileResponse struct {
	User            userView `json:"user"`
	XPToNextLevel   int      `json:"xp_to_next_level"`
	NextLevelAt     int      `json:"next_level_at"`
	DiscountPercent int      `json:"discount_percent"`
}

func Me(svc internalusers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		profile, err := svc.Profile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profileResponse{
			User:            newUserView(profile.User),
			XPToNextLevel:   profile.XPToNextLevel,
			NextLevelAt:     profile.NextLevelAt,
			DiscountPercent: profile.DiscountPercent,
		})
	}
}
