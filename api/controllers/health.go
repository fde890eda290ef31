package controllers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/api/responses"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
	"github.com/denvolkov/playcart-backend/pkg/redis"
)

func Live() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// Ready reports whether both backing stores answer.
func Ready(db *gorm.DB, rdb *redis.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(r.Context())
			}
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if rdb != nil {
			if err := rdb.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
