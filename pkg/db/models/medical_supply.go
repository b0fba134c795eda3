package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MedicalSupply tracks consumable stock that is not sold through the pharmacy.
type MedicalSupply struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	HospitalID  *uuid.UUID `gorm:"column:hospital_id;type:uuid;index"`
	Name        string     `gorm:"column:name;not null"`
	Description *string    `gorm:"column:description"`
	Quantity    int        `gorm:"column:quantity;not null;default:0"`
	Unit        string     `gorm:"column:unit;not null;default:'pcs'"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *MedicalSupply) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
