package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/enums"
)

// Equipment tracks durable assets and their operational status.
type Equipment struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	HospitalID  *uuid.UUID            `gorm:"column:hospital_id;type:uuid;index"`
	Name        string                `gorm:"column:name;not null"`
	Description *string               `gorm:"column:description"`
	Quantity    int                   `gorm:"column:quantity;not null;default:0"`
	Status      enums.EquipmentStatus `gorm:"column:status;type:text;not null;default:'working'"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (e *Equipment) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
