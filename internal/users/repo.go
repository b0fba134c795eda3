package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
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

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users, optionally filtered by hospital and role.
func (r *Repository) List(ctx context.Context, hospitalID *uuid.UUID, role *enums.UserRole) ([]models.User, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).Order("created_at DESC")
	if hospitalID != nil {
		query = query.Where("hospital_id = ?", *hospitalID)
	}
	if role != nil {
		query = query.Where("role = ?", *role)
	}
	var rows []models.User
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdateFields applies a partial update to the user row.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// CountByHospital returns the number of users in a hospital with the given role.
func (r *Repository) CountByHospital(ctx context.Context, hospitalID uuid.UUID, role enums.UserRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("hospital_id = ? AND role = ?", hospitalID, role).
		Count(&count).Error
	return count, err
}

// LatestByHospital returns the most recently created users for the hospital and role.
func (r *Repository) LatestByHospital(ctx context.Context, hospitalID uuid.UUID, role enums.UserRole, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []models.User
	err := r.db.WithContext(ctx).
		Where("hospital_id = ? AND role = ?", hospitalID, role).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
