package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/enums"
)

// PatientProfile holds the clinical profile attached to a patient user.
type PatientProfile struct {
	ID                       uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID                   uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	DateOfBirth              time.Time        `gorm:"column:date_of_birth;not null"`
	Gender                   enums.Gender     `gorm:"column:gender;type:text;not null"`
	BloodType                *enums.BloodType `gorm:"column:blood_type;type:text"`
	PhoneNumber              *string          `gorm:"column:phone_number"`
	Address                  *string          `gorm:"column:address"`
	Allergies                *string          `gorm:"column:allergies"`
	ChronicConditions        *string          `gorm:"column:chronic_conditions"`
	Medications              *string          `gorm:"column:medications"`
	EmergencyContactName     *string          `gorm:"column:emergency_contact_name"`
	EmergencyContactNumber   *string          `gorm:"column:emergency_contact_number"`
	EmergencyContactRelation *string          `gorm:"column:emergency_contact_relation"`
	CreatedAt                time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PatientProfile) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
