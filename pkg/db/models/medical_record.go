package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MedicalRecord is a dated clinical note on a patient profile. Attachments
// live outside the platform and are referenced by URL.
type MedicalRecord struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProfileID     uuid.UUID `gorm:"column:profile_id;type:uuid;not null;index"`
	Description   string    `gorm:"column:description;not null"`
	AttachmentURL *string   `gorm:"column:attachment_url"`
	RecordDate    time.Time `gorm:"column:record_date;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *MedicalRecord) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Comment is an authored note on a medical record.
type Comment struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RecordID  uuid.UUID `gorm:"column:record_id;type:uuid;not null;index"`
	AuthorID  uuid.UUID `gorm:"column:author_id;type:uuid;not null"`
	Content   string    `gorm:"column:content;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
