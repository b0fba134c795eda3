package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avalonhealth/carehub-backend/api/middleware"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
)

// actor is the authenticated caller reconstructed from the request context.
type actor struct {
	UserID     uuid.UUID
	HospitalID *uuid.UUID
	Role       enums.UserRole
}

func actorFromRequest(r *http.Request) (actor, error) {
	rawUser := middleware.UserIDFromContext(r.Context())
	if rawUser == "" {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}

	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}

	out := actor{UserID: userID, Role: role}
	if raw := middleware.HospitalIDFromContext(r.Context()); raw != "" {
		hospitalID, err := uuid.Parse(raw)
		if err != nil {
			return actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid hospital id")
		}
		out.HospitalID = &hospitalID
	}
	return out, nil
}

// scopedHospitalID resolves the hospital a request operates on. Admins may
// target any hospital through the query parameter; other roles are pinned
// to their own.
func scopedHospitalID(r *http.Request, a actor) (uuid.UUID, error) {
	if a.Role == enums.UserRoleAdmin {
		raw := strings.TrimSpace(r.URL.Query().Get("hospital_id"))
		if raw == "" {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "hospital_id is required")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid hospital_id")
		}
		return id, nil
	}
	if a.HospitalID == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "hospital scope missing")
	}
	return *a.HospitalID, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func parseBearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	token := raw
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}
