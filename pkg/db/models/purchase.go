package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Purchase is an immutable ledger entry written only by the purchase
// primitive. The hospital reference is denormalized at purchase time so a
// later reassignment of the medication does not rewrite history.
type Purchase struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PatientID    uuid.UUID       `gorm:"column:patient_id;type:uuid;not null;index"`
	MedicationID uuid.UUID       `gorm:"column:medication_id;type:uuid;not null;index"`
	HospitalID   *uuid.UUID      `gorm:"column:hospital_id;type:uuid;index"`
	Quantity     int             `gorm:"column:quantity;not null"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	TotalPrice   decimal.Decimal `gorm:"column:total_price;type:numeric(10,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (p *Purchase) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
