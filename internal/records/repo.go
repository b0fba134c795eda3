package records

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
)

// Repository wraps patient profile, medical record, and comment persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreateProfile(ctx context.Context, profile *models.PatientProfile) (*models.PatientProfile, error) {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *Repository) FindProfile(ctx context.Context, id uuid.UUID) (*models.PatientProfile, error) {
	var profile models.PatientProfile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindProfileByUserID returns the profile attached to the patient user.
func (r *Repository) FindProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.PatientProfile, error) {
	var profile models.PatientProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListProfilesByHospital returns profiles whose owning user belongs to the hospital.
func (r *Repository) ListProfilesByHospital(ctx context.Context, hospitalID uuid.UUID) ([]models.PatientProfile, error) {
	var profiles []models.PatientProfile
	err := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = patient_profiles.user_id").
		Where("users.hospital_id = ?", hospitalID).
		Order("patient_profiles.created_at DESC").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *Repository) UpdateProfileFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.PatientProfile{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) CreateRecord(ctx context.Context, record *models.MedicalRecord) (*models.MedicalRecord, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *Repository) FindRecord(ctx context.Context, id uuid.UUID) (*models.MedicalRecord, error) {
	var record models.MedicalRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) ListRecordsByProfile(ctx context.Context, profileID uuid.UUID) ([]models.MedicalRecord, error) {
	var rows []models.MedicalRecord
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("record_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) UpdateRecordFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.MedicalRecord{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.MedicalRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

func (r *Repository) ListComments(ctx context.Context, recordID uuid.UUID) ([]models.Comment, error) {
	var rows []models.Comment
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
