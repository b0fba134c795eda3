package pharmacy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	pkgpagination "github.com/avalonhealth/carehub-backend/pkg/pagination"
)

// Repository exposes persistence for the pharmacy surface. Stock mutation
// goes through DecrementStock only.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a pharmacy repo bound to the provided GORM DB.
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

// FindMedicationForUpdate re-reads the medication row under a row lock so the
// stock check and decrement observe the same quantity.
func (r *Repository) FindMedicationForUpdate(ctx context.Context, id uuid.UUID) (*models.Medication, error) {
	var medication models.Medication
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&medication, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &medication, nil
}

// FindMedication loads the medication without locking.
func (r *Repository) FindMedication(ctx context.Context, id uuid.UUID) (*models.Medication, error) {
	var medication models.Medication
	if err := r.db.WithContext(ctx).First(&medication, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &medication, nil
}

// DecrementStock subtracts quantity from the medication's stock. The guard
// repeats the stock check in the WHERE clause; zero rows affected means the
// stock moved underneath us and the caller must abort.
func (r *Repository) DecrementStock(ctx context.Context, medicationID uuid.UUID, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE medications
		SET quantity = quantity - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND quantity >= ?
	`, quantity, medicationID, quantity)
	return res.RowsAffected, res.Error
}

// CreatePurchase appends a purchase ledger row.
func (r *Repository) CreatePurchase(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error) {
	if err := r.db.WithContext(ctx).Create(purchase).Error; err != nil {
		return nil, err
	}
	return purchase, nil
}

// CreateStockAlert records a low stock alert for hospital staff.
func (r *Repository) CreateStockAlert(ctx context.Context, alert *models.StockAlert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

// CreatePrescription inserts a new active prescription.
func (r *Repository) CreatePrescription(ctx context.Context, prescription *models.Prescription) (*models.Prescription, error) {
	if err := r.db.WithContext(ctx).Create(prescription).Error; err != nil {
		return nil, err
	}
	return prescription, nil
}

// FindPrescription loads a prescription by ID.
func (r *Repository) FindPrescription(ctx context.Context, id uuid.UUID) (*models.Prescription, error) {
	var prescription models.Prescription
	if err := r.db.WithContext(ctx).First(&prescription, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &prescription, nil
}

// DeactivatePrescription flips is_active exactly once. Zero rows affected
// means the prescription was already redeemed or expired.
func (r *Repository) DeactivatePrescription(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Prescription{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// ListPrescriptionsByPatient returns the patient's prescriptions, newest first.
func (r *Repository) ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Prescription, error) {
	var rows []models.Prescription
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListPrescriptionsByHospital returns prescriptions whose medication belongs
// to the hospital, newest first.
func (r *Repository) ListPrescriptionsByHospital(ctx context.Context, hospitalID uuid.UUID) ([]models.Prescription, error) {
	var rows []models.Prescription
	err := r.db.WithContext(ctx).
		Joins("JOIN medications ON medications.id = prescriptions.medication_id").
		Where("medications.hospital_id = ?", hospitalID).
		Order("prescriptions.created_at DESC").
		Find(&rows).Error
	return rows, err
}

// ExpirePrescriptions deactivates active prescriptions created before the
// cutoff and returns how many were expired.
func (r *Repository) ExpirePrescriptions(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Prescription{}).
		Where("is_active = ? AND created_at < ?", true, cutoff).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

type catalogQuery struct {
	hospitalID uuid.UUID
	limit      int
	cursor     *pkgpagination.Cursor
}

// ListCatalog returns over-the-counter medications for the hospital.
func (r *Repository) ListCatalog(ctx context.Context, opts catalogQuery) ([]models.Medication, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Medication{}).
		Where("hospital_id = ? AND prescription_required = ?", opts.hospitalID, false)

	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Medication
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPurchasesByPatient returns the patient's purchase history, newest first.
func (r *Repository) ListPurchasesByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Purchase, error) {
	var rows []models.Purchase
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
