package hospitals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
)

// Repository exposes hospital and department persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a hospitals repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new hospital row.
func (r *Repository) Create(ctx context.Context, hospital *models.Hospital) (*models.Hospital, error) {
	if err := r.db.WithContext(ctx).Create(hospital).Error; err != nil {
		return nil, err
	}
	return hospital, nil
}

// FindByID loads a hospital by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Hospital, error) {
	var hospital models.Hospital
	if err := r.db.WithContext(ctx).First(&hospital, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &hospital, nil
}

// Exists reports whether a hospital row exists for the given ID.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Hospital{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// List returns all hospitals ordered by creation time.
func (r *Repository) List(ctx context.Context) ([]models.Hospital, error) {
	var rows []models.Hospital
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// UpdateFields applies a partial update to the hospital row.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Hospital{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Delete removes the hospital row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Hospital{}).Error
}

// CreateDepartment inserts a department under a hospital.
func (r *Repository) CreateDepartment(ctx context.Context, department *models.Department) (*models.Department, error) {
	if err := r.db.WithContext(ctx).Create(department).Error; err != nil {
		return nil, err
	}
	return department, nil
}

// ListDepartments returns the departments belonging to a hospital.
func (r *Repository) ListDepartments(ctx context.Context, hospitalID uuid.UUID) ([]models.Department, error) {
	var rows []models.Department
	err := r.db.WithContext(ctx).
		Where("hospital_id = ?", hospitalID).
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

// FindDepartment loads a department scoped to its hospital.
func (r *Repository) FindDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID) (*models.Department, error) {
	var department models.Department
	err := r.db.WithContext(ctx).
		First(&department, "id = ? AND hospital_id = ?", departmentID, hospitalID).Error
	if err != nil {
		return nil, err
	}
	return &department, nil
}

// UpdateDepartmentFields applies a partial update to a department.
func (r *Repository) UpdateDepartmentFields(ctx context.Context, hospitalID, departmentID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Department{}).
		Where("id = ? AND hospital_id = ?", departmentID, hospitalID).
		Updates(fields).Error
}

// DeleteDepartment removes a department scoped to its hospital.
func (r *Repository) DeleteDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND hospital_id = ?", departmentID, hospitalID).
		Delete(&models.Department{}).Error
}
