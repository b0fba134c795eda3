package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	pkgpagination "github.com/avalonhealth/carehub-backend/pkg/pagination"
)

// Repository exposes persistence for medications, supplies, and equipment.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an inventory repo bound to the provided GORM DB.
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

type listQuery struct {
	hospitalID uuid.UUID
	limit      int
	cursor     *pkgpagination.Cursor
}

func applyCursor(query *gorm.DB, opts listQuery) *gorm.DB {
	query = query.Where("hospital_id = ?", opts.hospitalID)
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}
	return query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)
}

// CreateMedication inserts a new medication row.
func (r *Repository) CreateMedication(ctx context.Context, medication *models.Medication) (*models.Medication, error) {
	if err := r.db.WithContext(ctx).Create(medication).Error; err != nil {
		return nil, err
	}
	return medication, nil
}

// FindMedication loads a medication scoped to its hospital.
func (r *Repository) FindMedication(ctx context.Context, hospitalID, id uuid.UUID) (*models.Medication, error) {
	var medication models.Medication
	err := r.db.WithContext(ctx).
		First(&medication, "id = ? AND hospital_id = ?", id, hospitalID).Error
	if err != nil {
		return nil, err
	}
	return &medication, nil
}

// ListMedications returns hospital-scoped medications using cursor pagination.
func (r *Repository) ListMedications(ctx context.Context, opts listQuery) ([]models.Medication, error) {
	var rows []models.Medication
	query := applyCursor(r.db.WithContext(ctx).Model(&models.Medication{}), opts)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateMedicationFields applies a partial update to a medication.
func (r *Repository) UpdateMedicationFields(ctx context.Context, hospitalID, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Medication{}).
		Where("id = ? AND hospital_id = ?", id, hospitalID).
		Updates(fields).Error
}

// DeleteMedication removes a medication scoped to its hospital.
func (r *Repository) DeleteMedication(ctx context.Context, hospitalID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND hospital_id = ?", id, hospitalID).
		Delete(&models.Medication{}).Error
}

// CountMedications returns the number of medications in the hospital.
func (r *Repository) CountMedications(ctx context.Context, hospitalID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Medication{}).
		Where("hospital_id = ?", hospitalID).
		Count(&count).Error
	return count, err
}

// CountLowStock counts medications at or below the threshold.
func (r *Repository) CountLowStock(ctx context.Context, hospitalID uuid.UUID, threshold int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Medication{}).
		Where("hospital_id = ? AND quantity <= ?", hospitalID, threshold).
		Count(&count).Error
	return count, err
}

// CreateSupply inserts a new medical supply row.
func (r *Repository) CreateSupply(ctx context.Context, supply *models.MedicalSupply) (*models.MedicalSupply, error) {
	if err := r.db.WithContext(ctx).Create(supply).Error; err != nil {
		return nil, err
	}
	return supply, nil
}

// FindSupply loads a supply scoped to its hospital.
func (r *Repository) FindSupply(ctx context.Context, hospitalID, id uuid.UUID) (*models.MedicalSupply, error) {
	var supply models.MedicalSupply
	err := r.db.WithContext(ctx).
		First(&supply, "id = ? AND hospital_id = ?", id, hospitalID).Error
	if err != nil {
		return nil, err
	}
	return &supply, nil
}

// ListSupplies returns hospital-scoped supplies using cursor pagination.
func (r *Repository) ListSupplies(ctx context.Context, opts listQuery) ([]models.MedicalSupply, error) {
	var rows []models.MedicalSupply
	query := applyCursor(r.db.WithContext(ctx).Model(&models.MedicalSupply{}), opts)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateSupplyFields applies a partial update to a supply.
func (r *Repository) UpdateSupplyFields(ctx context.Context, hospitalID, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.MedicalSupply{}).
		Where("id = ? AND hospital_id = ?", id, hospitalID).
		Updates(fields).Error
}

// DeleteSupply removes a supply scoped to its hospital.
func (r *Repository) DeleteSupply(ctx context.Context, hospitalID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND hospital_id = ?", id, hospitalID).
		Delete(&models.MedicalSupply{}).Error
}

// CreateEquipment inserts a new equipment row.
func (r *Repository) CreateEquipment(ctx context.Context, equipment *models.Equipment) (*models.Equipment, error) {
	if err := r.db.WithContext(ctx).Create(equipment).Error; err != nil {
		return nil, err
	}
	return equipment, nil
}

// FindEquipment loads an equipment row scoped to its hospital.
func (r *Repository) FindEquipment(ctx context.Context, hospitalID, id uuid.UUID) (*models.Equipment, error) {
	var equipment models.Equipment
	err := r.db.WithContext(ctx).
		First(&equipment, "id = ? AND hospital_id = ?", id, hospitalID).Error
	if err != nil {
		return nil, err
	}
	return &equipment, nil
}

// ListEquipment returns hospital-scoped equipment using cursor pagination.
func (r *Repository) ListEquipment(ctx context.Context, opts listQuery) ([]models.Equipment, error) {
	var rows []models.Equipment
	query := applyCursor(r.db.WithContext(ctx).Model(&models.Equipment{}), opts)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateEquipmentFields applies a partial update to an equipment row.
func (r *Repository) UpdateEquipmentFields(ctx context.Context, hospitalID, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Equipment{}).
		Where("id = ? AND hospital_id = ?", id, hospitalID).
		Updates(fields).Error
}

// DeleteEquipment removes an equipment row scoped to its hospital.
func (r *Repository) DeleteEquipment(ctx context.Context, hospitalID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND hospital_id = ?", id, hospitalID).
		Delete(&models.Equipment{}).Error
}

// ListAlerts returns the hospital's stock alerts, unread first.
func (r *Repository) ListAlerts(ctx context.Context, hospitalID uuid.UUID) ([]models.StockAlert, error) {
	var rows []models.StockAlert
	err := r.db.WithContext(ctx).
		Where("hospital_id = ?", hospitalID).
		Order("read_at IS NOT NULL").
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// MarkAlertRead stamps the alert as read; zero rows means it is missing or already read.
func (r *Repository) MarkAlertRead(ctx context.Context, hospitalID, id uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.StockAlert{}).
		Where("id = ? AND hospital_id = ? AND read_at IS NULL", id, hospitalID).
		Update("read_at", at)
	return result.RowsAffected, result.Error
}
