package reports

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
)

// CreateRequest is the payload for filing a new report.
type CreateRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description,omitempty"`
	FileURL     *string `json:"file_url,omitempty" validate:"omitempty,url"`
}

// UpdateRequest carries partial report updates.
type UpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	FileURL     *string `json:"file_url,omitempty" validate:"omitempty,url"`
}

// ReportDTO is the transport shape of a report.
type ReportDTO struct {
	ID          uuid.UUID  `json:"id"`
	HospitalID  uuid.UUID  `json:"hospital_id"`
	Title       string     `json:"title"`
	GeneratedBy *uuid.UUID `json:"generated_by,omitempty"`
	Description *string    `json:"description,omitempty"`
	FileURL     *string    `json:"file_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SummaryDTO is one day of purchase totals for a hospital.
type SummaryDTO struct {
	Day           time.Time       `json:"day"`
	PurchaseCount int             `json:"purchase_count"`
	UnitsSold     int             `json:"units_sold"`
	Revenue       decimal.Decimal `json:"revenue"`
}

func fromModel(r *models.Report) *ReportDTO {
	if r == nil {
		return nil
	}
	return &ReportDTO{
		ID:          r.ID,
		HospitalID:  r.HospitalID,
		Title:       r.Title,
		GeneratedBy: r.GeneratedBy,
		Description: r.Description,
		FileURL:     r.FileURL,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func summaryFromModel(s *models.PurchaseSummary) SummaryDTO {
	return SummaryDTO{
		Day:           s.Day,
		PurchaseCount: s.PurchaseCount,
		UnitsSold:     s.UnitsSold,
		Revenue:       s.Revenue,
	}
}
