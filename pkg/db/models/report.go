package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Report is an administrative document scoped to a hospital.
type Report struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	HospitalID  uuid.UUID  `gorm:"column:hospital_id;type:uuid;not null;index"`
	Title       string     `gorm:"column:title;not null"`
	GeneratedBy *uuid.UUID `gorm:"column:generated_by;type:uuid"`
	Description *string    `gorm:"column:description"`
	FileURL     *string    `gorm:"column:file_url"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Report) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
