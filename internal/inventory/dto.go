package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
	pkgpagination "github.com/avalonhealth/carehub-backend/pkg/pagination"
)

// ListParams carries hospital scope plus cursor pagination inputs.
type ListParams struct {
	HospitalID uuid.UUID
	pkgpagination.Params
}

// MedicationDTO is the transport shape for a medication.
type MedicationDTO struct {
	ID                   uuid.UUID       `json:"id"`
	HospitalID           *uuid.UUID      `json:"hospital_id,omitempty"`
	Name                 string          `json:"name"`
	Description          *string         `json:"description,omitempty"`
	Quantity             int             `json:"quantity"`
	Unit                 string          `json:"unit"`
	Price                decimal.Decimal `json:"price"`
	PrescriptionRequired bool            `json:"prescription_required"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// MedicationList is a cursor page of medications.
type MedicationList struct {
	Items  []MedicationDTO `json:"items"`
	Cursor string          `json:"cursor"`
}

// SupplyDTO is the transport shape for a medical supply.
type SupplyDTO struct {
	ID          uuid.UUID  `json:"id"`
	HospitalID  *uuid.UUID `json:"hospital_id,omitempty"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Quantity    int        `json:"quantity"`
	Unit        string     `json:"unit"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SupplyList is a cursor page of supplies.
type SupplyList struct {
	Items  []SupplyDTO `json:"items"`
	Cursor string      `json:"cursor"`
}

// EquipmentDTO is the transport shape for an equipment row.
type EquipmentDTO struct {
	ID          uuid.UUID             `json:"id"`
	HospitalID  *uuid.UUID            `json:"hospital_id,omitempty"`
	Name        string                `json:"name"`
	Description *string               `json:"description,omitempty"`
	Quantity    int                   `json:"quantity"`
	Status      enums.EquipmentStatus `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// EquipmentList is a cursor page of equipment.
type EquipmentList struct {
	Items  []EquipmentDTO `json:"items"`
	Cursor string         `json:"cursor"`
}

// AlertDTO is the transport shape for a stock alert.
type AlertDTO struct {
	ID           uuid.UUID  `json:"id"`
	HospitalID   *uuid.UUID `json:"hospital_id,omitempty"`
	MedicationID uuid.UUID  `json:"medication_id"`
	Quantity     int        `json:"quantity"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func medicationFromModel(m *models.Medication) *MedicationDTO {
	if m == nil {
		return nil
	}
	return &MedicationDTO{
		ID:                   m.ID,
		HospitalID:           m.HospitalID,
		Name:                 m.Name,
		Description:          m.Description,
		Quantity:             m.Quantity,
		Unit:                 m.Unit,
		Price:                m.Price,
		PrescriptionRequired: m.PrescriptionRequired,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func supplyFromModel(s *models.MedicalSupply) *SupplyDTO {
	if s == nil {
		return nil
	}
	return &SupplyDTO{
		ID:          s.ID,
		HospitalID:  s.HospitalID,
		Name:        s.Name,
		Description: s.Description,
		Quantity:    s.Quantity,
		Unit:        s.Unit,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func equipmentFromModel(e *models.Equipment) *EquipmentDTO {
	if e == nil {
		return nil
	}
	return &EquipmentDTO{
		ID:          e.ID,
		HospitalID:  e.HospitalID,
		Name:        e.Name,
		Description: e.Description,
		Quantity:    e.Quantity,
		Status:      e.Status,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func alertFromModel(a *models.StockAlert) *AlertDTO {
	if a == nil {
		return nil
	}
	return &AlertDTO{
		ID:           a.ID,
		HospitalID:   a.HospitalID,
		MedicationID: a.MedicationID,
		Quantity:     a.Quantity,
		ReadAt:       a.ReadAt,
		CreatedAt:    a.CreatedAt,
	}
}
