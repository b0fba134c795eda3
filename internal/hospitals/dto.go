package hospitals

import (
	"time"

	"github.com/google/uuid"

	"github.com/avalonhealth/carehub-backend/internal/users"
	"github.com/avalonhealth/carehub-backend/pkg/db/models"
)

// HospitalDTO is the transport shape for a hospital.
type HospitalDTO struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Address       *string   `json:"address,omitempty"`
	ContactNumber *string   `json:"contact_number,omitempty"`
	Email         *string   `json:"email,omitempty"`
	Description   *string   `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DepartmentDTO is the transport shape for a department.
type DepartmentDTO struct {
	ID         uuid.UUID `json:"id"`
	HospitalID uuid.UUID `json:"hospital_id"`
	Name       string    `json:"name"`
	Head       *string   `json:"head,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Overview aggregates the hospital dashboard counters.
type Overview struct {
	Hospital        HospitalDTO     `json:"hospital"`
	StaffCount      int64           `json:"staff_count"`
	PatientCount    int64           `json:"patient_count"`
	DepartmentCount int64           `json:"department_count"`
	MedicationCount int64           `json:"medication_count"`
	LowStockCount   int64           `json:"low_stock_count"`
	LatestPatients  []users.UserDTO `json:"latest_patients"`
}

func fromModel(h *models.Hospital) *HospitalDTO {
	if h == nil {
		return nil
	}
	return &HospitalDTO{
		ID:            h.ID,
		Name:          h.Name,
		Address:       h.Address,
		ContactNumber: h.ContactNumber,
		Email:         h.Email,
		Description:   h.Description,
		CreatedAt:     h.CreatedAt,
		UpdatedAt:     h.UpdatedAt,
	}
}

func departmentFromModel(d *models.Department) *DepartmentDTO {
	if d == nil {
		return nil
	}
	return &DepartmentDTO{
		ID:         d.ID,
		HospitalID: d.HospitalID,
		Name:       d.Name,
		Head:       d.Head,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}
