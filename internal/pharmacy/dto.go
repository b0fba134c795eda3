package pharmacy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	pkgpagination "github.com/avalonhealth/carehub-backend/pkg/pagination"
)

// PurchaseRequest is the patient payload for an over-the-counter purchase.
type PurchaseRequest struct {
	MedicationID uuid.UUID `json:"medication_id" validate:"required"`
	Quantity     int       `json:"quantity" validate:"required,gt=0"`
}

// IssuePrescriptionRequest is the staff payload for issuing a prescription.
type IssuePrescriptionRequest struct {
	PatientID    uuid.UUID `json:"patient_id" validate:"required"`
	MedicationID uuid.UUID `json:"medication_id" validate:"required"`
	Quantity     int       `json:"quantity" validate:"required,gt=0"`
}

// PurchaseDTO is the transport shape for a purchase ledger row.
type PurchaseDTO struct {
	ID           uuid.UUID       `json:"id"`
	PatientID    uuid.UUID       `json:"patient_id"`
	MedicationID uuid.UUID       `json:"medication_id"`
	HospitalID   *uuid.UUID      `json:"hospital_id,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PrescriptionDTO is the transport shape for a prescription.
type PrescriptionDTO struct {
	ID           uuid.UUID `json:"id"`
	PatientID    uuid.UUID `json:"patient_id"`
	MedicationID uuid.UUID `json:"medication_id"`
	PrescribedBy uuid.UUID `json:"prescribed_by"`
	Quantity     int       `json:"quantity"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CatalogParams carries hospital scope plus cursor pagination inputs.
type CatalogParams struct {
	HospitalID uuid.UUID
	pkgpagination.Params
}

// CatalogItem is a purchasable medication as shown to patients.
type CatalogItem struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Unit        string          `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	InStock     bool            `json:"in_stock"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CatalogPage is a cursor page of catalog items.
type CatalogPage struct {
	Items  []CatalogItem `json:"items"`
	Cursor string        `json:"cursor"`
}

func purchaseFromModel(p *models.Purchase) *PurchaseDTO {
	if p == nil {
		return nil
	}
	return &PurchaseDTO{
		ID:           p.ID,
		PatientID:    p.PatientID,
		MedicationID: p.MedicationID,
		HospitalID:   p.HospitalID,
		Quantity:     p.Quantity,
		UnitPrice:    p.UnitPrice,
		TotalPrice:   p.TotalPrice,
		CreatedAt:    p.CreatedAt,
	}
}

func prescriptionFromModel(p *models.Prescription) *PrescriptionDTO {
	if p == nil {
		return nil
	}
	return &PrescriptionDTO{
		ID:           p.ID,
		PatientID:    p.PatientID,
		MedicationID: p.MedicationID,
		PrescribedBy: p.PrescribedBy,
		Quantity:     p.Quantity,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
	}
}

func catalogItemFromModel(m *models.Medication) CatalogItem {
	return CatalogItem{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Unit:        m.Unit,
		Price:       m.Price,
		InStock:     m.Quantity > 0,
		CreatedAt:   m.CreatedAt,
	}
}
