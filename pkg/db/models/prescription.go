package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Prescription authorizes one patient to purchase a fixed quantity of one
// medication. It is created active and deactivated exactly once, either by
// redemption or by the expiry job.
type Prescription struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PatientID    uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	MedicationID uuid.UUID `gorm:"column:medication_id;type:uuid;not null;index"`
	PrescribedBy uuid.UUID `gorm:"column:prescribed_by;type:uuid;not null"`
	Quantity     int       `gorm:"column:quantity;not null;default:1"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Prescription) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
