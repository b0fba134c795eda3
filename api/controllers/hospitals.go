package controllers

import (
	"net/http"

	"github.com/avalonhealth/carehub-backend/api/responses"
	"github.com/avalonhealth/carehub-backend/api/validators"
	"github.com/avalonhealth/carehub-backend/internal/hospitals"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
	"github.com/avalonhealth/carehub-backend/pkg/logger"
)

// CreateHospital handles the admin hospital creation endpoint.
func CreateHospital(svc hospitals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hospital service unavailable"))
			return
		}

		var body hospitals.CreateHospitalRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		hospital, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, hospital)
	}
}

func ListHospitals(svc hospitals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hospital service unavailable"))
			return
		}
		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func GetHospital(svc hospitals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hospital service unavailable"))
			return
		}
		id, err := uuidParam(r, "hospitalID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hospital, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, hospital)
	}
}

func UpdateHospital(svc hospitals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hospital service unavailable"))
			return
		}
		id, err := uuidParam(r, "hospitalID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body hospitals.UpdateHospitalRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hospital, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, hospital)
	}
}

func DeleteHospital(svc hospitals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hospital service unavailable"))
			return
		}
		id, err := uuidParam(r, "hospitalID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// HospitalOverview aggregates headline counts for one hospital.
func HospitalOverview(svc hospitals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hospital service unavailable"))
			return
		}
		id, err := uuidParam(r, "hospitalID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		overview, err := svc.GetOverview(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}

func CreateDepartment(svc hospitals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hospital service unavailable"))
			return
		}
		hospitalID, err := uuidParam(r, "hospitalID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body hospitals.DepartmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		department, err := svc.CreateDepartment(r.Context(), hospitalID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, department)
	}
}

func ListDepartments(svc hospitals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hospital service unavailable"))
			return
		}
		hospitalID, err := uuidParam(r, "hospitalID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListDepartments(r.Context(), hospitalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func UpdateDepartment(svc hospitals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hospital service unavailable"))
			return
		}
		hospitalID, err := uuidParam(r, "hospitalID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		departmentID, err := uuidParam(r, "departmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body hospitals.DepartmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		department, err := svc.UpdateDepartment(r.Context(), hospitalID, departmentID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, department)
	}
}

func DeleteDepartment(svc hospitals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hospital service unavailable"))
			return
		}
		hospitalID, err := uuidParam(r, "hospitalID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		departmentID, err := uuidParam(r, "departmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteDepartment(r.Context(), hospitalID, departmentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
