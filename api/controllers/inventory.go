package controllers

import (
	"net/http"

	"github.com/avalonhealth/carehub-backend/api/responses"
	"github.com/avalonhealth/carehub-backend/api/validators"
	"github.com/avalonhealth/carehub-backend/internal/inventory"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
	"github.com/avalonhealth/carehub-backend/pkg/logger"
	"github.com/avalonhealth/carehub-backend/pkg/pagination"
)

func listParamsFromRequest(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}, nil
}

// CreateMedication adds a medication to the caller's hospital inventory.
func CreateMedication(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		var body inventory.CreateMedicationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		medication, err := svc.CreateMedication(r.Context(), hospitalID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, medication)
	}
}

func GetMedication(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		id, err := uuidParam(r, "medicationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		medication, err := svc.GetMedication(r.Context(), hospitalID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, medication)
	}
}

func ListMedications(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		list, err := svc.ListMedications(r.Context(), inventory.ListParams{HospitalID: hospitalID, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func UpdateMedication(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		id, err := uuidParam(r, "medicationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body inventory.UpdateMedicationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		medication, err := svc.UpdateMedication(r.Context(), hospitalID, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, medication)
	}
}

func DeleteMedication(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		id, err := uuidParam(r, "medicationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteMedication(r.Context(), hospitalID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func CreateSupply(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		var body inventory.CreateSupplyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supply, err := svc.CreateSupply(r.Context(), hospitalID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, supply)
	}
}

func GetSupply(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		id, err := uuidParam(r, "supplyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supply, err := svc.GetSupply(r.Context(), hospitalID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, supply)
	}
}

func ListSupplies(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		list, err := svc.ListSupplies(r.Context(), inventory.ListParams{HospitalID: hospitalID, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func UpdateSupply(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		id, err := uuidParam(r, "supplyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body inventory.UpdateSupplyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supply, err := svc.UpdateSupply(r.Context(), hospitalID, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, supply)
	}
}

func DeleteSupply(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		id, err := uuidParam(r, "supplyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteSupply(r.Context(), hospitalID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func CreateEquipment(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		var body inventory.CreateEquipmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		equipment, err := svc.CreateEquipment(r.Context(), hospitalID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, equipment)
	}
}

func GetEquipment(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		id, err := uuidParam(r, "equipmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		equipment, err := svc.GetEquipment(r.Context(), hospitalID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, equipment)
	}
}

func ListEquipment(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		list, err := svc.ListEquipment(r.Context(), inventory.ListParams{HospitalID: hospitalID, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func UpdateEquipment(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		id, err := uuidParam(r, "equipmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body inventory.UpdateEquipmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		equipment, err := svc.UpdateEquipment(r.Context(), hospitalID, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, equipment)
	}
}

func DeleteEquipment(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		id, err := uuidParam(r, "equipmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteEquipment(r.Context(), hospitalID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ListStockAlerts returns unread low stock alerts for the hospital.
func ListStockAlerts(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		alerts, err := svc.ListAlerts(r.Context(), hospitalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, alerts)
	}
}

func MarkStockAlertRead(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		id, err := uuidParam(r, "alertID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkAlertRead(r.Context(), hospitalID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}
