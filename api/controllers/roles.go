package controllers

import (
	"net/http"

	"github.com/angelmondragon/userbridge-backend/api/responses"
	"github.com/angelmondragon/userbridge-backend/internal/roles"
	"github.com/angelmondragon/userbridge-backend/pkg/logger"
)

func RolesList(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
