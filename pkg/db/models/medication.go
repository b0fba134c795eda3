package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Medication is a sellable pharmacy item with an on-hand stock counter.
// The quantity column may only be written by the pharmacy purchase
// primitive and the inventory service; it never goes negative.
type Medication struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	HospitalID           *uuid.UUID      `gorm:"column:hospital_id;type:uuid;index"`
	Name                 string          `gorm:"column:name;not null"`
	Description          *string         `gorm:"column:description"`
	Quantity             int             `gorm:"column:quantity;not null;default:0"`
	Unit                 string          `gorm:"column:unit;not null;default:'pcs'"`
	Price                decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	PrescriptionRequired bool            `gorm:"column:prescription_required;not null;default:false"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *Medication) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
