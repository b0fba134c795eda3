package records

import (
	"time"

	"github.com/google/uuid"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
)

// CreateProfileRequest attaches a clinical profile to a patient user.
type CreateProfileRequest struct {
	UserID                   uuid.UUID        `json:"user_id" validate:"required"`
	DateOfBirth              time.Time        `json:"date_of_birth" validate:"required"`
	Gender                   enums.Gender     `json:"gender" validate:"required"`
	BloodType                *enums.BloodType `json:"blood_type,omitempty"`
	PhoneNumber              *string          `json:"phone_number,omitempty"`
	Address                  *string          `json:"address,omitempty"`
	Allergies                *string          `json:"allergies,omitempty"`
	ChronicConditions        *string          `json:"chronic_conditions,omitempty"`
	Medications              *string          `json:"medications,omitempty"`
	EmergencyContactName     *string          `json:"emergency_contact_name,omitempty"`
	EmergencyContactNumber   *string          `json:"emergency_contact_number,omitempty"`
	EmergencyContactRelation *string          `json:"emergency_contact_relation,omitempty"`
}

// UpdateProfileRequest carries partial profile updates.
type UpdateProfileRequest struct {
	DateOfBirth              *time.Time       `json:"date_of_birth,omitempty"`
	Gender                   *enums.Gender    `json:"gender,omitempty"`
	BloodType                *enums.BloodType `json:"blood_type,omitempty"`
	PhoneNumber              *string          `json:"phone_number,omitempty"`
	Address                  *string          `json:"address,omitempty"`
	Allergies                *string          `json:"allergies,omitempty"`
	ChronicConditions        *string          `json:"chronic_conditions,omitempty"`
	Medications              *string          `json:"medications,omitempty"`
	EmergencyContactName     *string          `json:"emergency_contact_name,omitempty"`
	EmergencyContactNumber   *string          `json:"emergency_contact_number,omitempty"`
	EmergencyContactRelation *string          `json:"emergency_contact_relation,omitempty"`
}

// ProfileDTO is the transport shape of a patient profile.
type ProfileDTO struct {
	ID                       uuid.UUID        `json:"id"`
	UserID                   uuid.UUID        `json:"user_id"`
	DateOfBirth              time.Time        `json:"date_of_birth"`
	Gender                   enums.Gender     `json:"gender"`
	BloodType                *enums.BloodType `json:"blood_type,omitempty"`
	PhoneNumber              *string          `json:"phone_number,omitempty"`
	Address                  *string          `json:"address,omitempty"`
	Allergies                *string          `json:"allergies,omitempty"`
	ChronicConditions        *string          `json:"chronic_conditions,omitempty"`
	Medications              *string          `json:"medications,omitempty"`
	EmergencyContactName     *string          `json:"emergency_contact_name,omitempty"`
	EmergencyContactNumber   *string          `json:"emergency_contact_number,omitempty"`
	EmergencyContactRelation *string          `json:"emergency_contact_relation,omitempty"`
	CreatedAt                time.Time        `json:"created_at"`
	UpdatedAt                time.Time        `json:"updated_at"`
}

// CreateRecordRequest opens a dated clinical note on a profile.
type CreateRecordRequest struct {
	ProfileID     uuid.UUID  `json:"profile_id" validate:"required"`
	Description   string     `json:"description" validate:"required"`
	AttachmentURL *string    `json:"attachment_url,omitempty"`
	RecordDate    *time.Time `json:"record_date,omitempty"`
}

// UpdateRecordRequest carries partial record updates.
type UpdateRecordRequest struct {
	Description   *string    `json:"description,omitempty"`
	AttachmentURL *string    `json:"attachment_url,omitempty"`
	RecordDate    *time.Time `json:"record_date,omitempty"`
}

// RecordDTO is the transport shape of a medical record.
type RecordDTO struct {
	ID            uuid.UUID `json:"id"`
	ProfileID     uuid.UUID `json:"profile_id"`
	Description   string    `json:"description"`
	AttachmentURL *string   `json:"attachment_url,omitempty"`
	RecordDate    time.Time `json:"record_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateCommentRequest adds an authored note to a record.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

// CommentDTO is the transport shape of a record comment.
type CommentDTO struct {
	ID        uuid.UUID `json:"id"`
	RecordID  uuid.UUID `json:"record_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func profileFromModel(p *models.PatientProfile) *ProfileDTO {
	if p == nil {
		return nil
	}
	return &ProfileDTO{
		ID:                       p.ID,
		UserID:                   p.UserID,
		DateOfBirth:              p.DateOfBirth,
		Gender:                   p.Gender,
		BloodType:                p.BloodType,
		PhoneNumber:              p.PhoneNumber,
		Address:                  p.Address,
		Allergies:                p.Allergies,
		ChronicConditions:        p.ChronicConditions,
		Medications:              p.Medications,
		EmergencyContactName:     p.EmergencyContactName,
		EmergencyContactNumber:   p.EmergencyContactNumber,
		EmergencyContactRelation: p.EmergencyContactRelation,
		CreatedAt:                p.CreatedAt,
		UpdatedAt:                p.UpdatedAt,
	}
}

func recordFromModel(m *models.MedicalRecord) *RecordDTO {
	if m == nil {
		return nil
	}
	return &RecordDTO{
		ID:            m.ID,
		ProfileID:     m.ProfileID,
		Description:   m.Description,
		AttachmentURL: m.AttachmentURL,
		RecordDate:    m.RecordDate,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func commentFromModel(c *models.Comment) *CommentDTO {
	if c == nil {
		return nil
	}
	return &CommentDTO{
		ID:        c.ID,
		RecordID:  c.RecordID,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}
