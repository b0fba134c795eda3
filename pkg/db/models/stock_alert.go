package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockAlert notifies hospital staff that a purchase drained a medication
// below the configured threshold. Written inside the purchase transaction.
type StockAlert struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	HospitalID   *uuid.UUID `gorm:"column:hospital_id;type:uuid;index"`
	MedicationID uuid.UUID  `gorm:"column:medication_id;type:uuid;not null;index"`
	Quantity     int        `gorm:"column:quantity;not null"`
	ReadAt       *time.Time `gorm:"column:read_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (a *StockAlert) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
