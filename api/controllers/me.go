package controllers

import (
	"net/http"

	"github.com/avalonhealth/carehub-backend/api/responses"
	"github.com/avalonhealth/carehub-backend/internal/users"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
	"github.com/avalonhealth/carehub-backend/pkg/logger"
)

// Me returns the authenticated user's own record.
func Me(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Get(r.Context(), a.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, user)
	}
}
