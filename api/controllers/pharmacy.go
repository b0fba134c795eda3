package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/avalonhealth/carehub-backend/api/responses"
	"github.com/avalonhealth/carehub-backend/api/validators"
	"github.com/avalonhealth/carehub-backend/internal/pharmacy"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
	"github.com/avalonhealth/carehub-backend/pkg/logger"
)

func patientScope(a actor) (uuid.UUID, error) {
	if a.Role != enums.UserRolePatient {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "patient role required")
	}
	if a.HospitalID == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "hospital scope missing")
	}
	return *a.HospitalID, nil
}

// PharmacyCatalog lists over-the-counter medications available to the caller's hospital.
func PharmacyCatalog(svc pharmacy.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pharmacy service unavailable"))
			return
		}
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hospitalID, err := scopedHospitalID(r, a)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := listParamsFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.Catalog(r.Context(), pharmacy.CatalogParams{HospitalID: hospitalID, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// PurchaseMedication performs a stock-safe over-the-counter purchase for the
// authenticated patient.
func PurchaseMedication(svc pharmacy.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pharmacy service unavailable"))
			return
		}
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hospitalID, err := patientScope(a)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body pharmacy.PurchaseRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		purchase, err := svc.Purchase(r.Context(), a.UserID, hospitalID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, purchase)
	}
}

// RedeemPrescription converts an active prescription into a purchase.
func RedeemPrescription(svc pharmacy.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pharmacy service unavailable"))
			return
		}
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hospitalID, err := patientScope(a)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		prescriptionID, err := uuidParam(r, "prescriptionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		purchase, err := svc.RedeemPrescription(r.Context(), a.UserID, hospitalID, prescriptionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, purchase)
	}
}

// IssuePrescription lets staff prescribe a medication to a patient in their hospital.
func IssuePrescription(svc pharmacy.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pharmacy service unavailable"))
			return
		}
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if a.Role == enums.UserRolePatient {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required"))
			return
		}
		var body pharmacy.IssuePrescriptionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		prescription, err := svc.IssuePrescription(r.Context(), a.UserID, a.HospitalID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, prescription)
	}
}

// ListPrescriptions shows the caller's own prescriptions for patients and the
// hospital-wide view for staff.
func ListPrescriptions(svc pharmacy.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pharmacy service unavailable"))
			return
		}
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if a.Role == enums.UserRolePatient {
			rows, err := svc.ListPrescriptionsForPatient(r.Context(), a.UserID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, rows)
			return
		}

		hospitalID, err := scopedHospitalID(r, a)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListPrescriptionsForHospital(r.Context(), hospitalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// PurchaseHistory returns the authenticated patient's purchase ledger.
func PurchaseHistory(svc pharmacy.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pharmacy service unavailable"))
			return
		}
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if a.Role != enums.UserRolePatient {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "patient role required"))
			return
		}
		rows, err := svc.PurchaseHistory(r.Context(), a.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
