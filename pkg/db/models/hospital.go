package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Hospital represents the canonical tenant model.
type Hospital struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name          string    `gorm:"column:name;not null"`
	Address       *string   `gorm:"column:address"`
	ContactNumber *string   `gorm:"column:contact_number"`
	Email         *string   `gorm:"column:email"`
	Description   *string   `gorm:"column:description"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (h *Hospital) BeforeCreate(_ *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// Department groups staff and services inside a hospital.
type Department struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	HospitalID uuid.UUID `gorm:"column:hospital_id;type:uuid;not null;index"`
	Name       string    `gorm:"column:name;not null"`
	Head       *string   `gorm:"column:head"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Department) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
