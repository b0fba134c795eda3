package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
)

// Repository wraps report persistence and the purchase rollup tables.
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

func (r *Repository) Create(ctx context.Context, report *models.Report) (*models.Report, error) {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Repository) Find(ctx context.Context, hospitalID, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		First(&report, "id = ? AND hospital_id = ?", id, hospitalID).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *Repository) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]models.Report, error) {
	var rows []models.Report
	err := r.db.WithContext(ctx).
		Where("hospital_id = ?", hospitalID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) UpdateFields(ctx context.Context, hospitalID, id uuid.UUID, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ? AND hospital_id = ?", id, hospitalID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, hospitalID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&models.Report{}, "id = ? AND hospital_id = ?", id, hospitalID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DailyPurchaseTotal is one hospital's aggregated purchases for a day.
type DailyPurchaseTotal struct {
	HospitalID    uuid.UUID
	PurchaseCount int
	UnitsSold     int
	Revenue       decimal.Decimal
}

// AggregatePurchases totals the purchase ledger per hospital for the
// half-open interval [from, to).
func (r *Repository) AggregatePurchases(ctx context.Context, from, to time.Time) ([]DailyPurchaseTotal, error) {
	var rows []DailyPurchaseTotal
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Select("hospital_id, COUNT(*) AS purchase_count, SUM(quantity) AS units_sold, SUM(total_price) AS revenue").
		Where("hospital_id IS NOT NULL AND created_at >= ? AND created_at < ?", from, to).
		Group("hospital_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertSummary writes the rollup row for one hospital and day, replacing
// the totals when the job reruns.
func (r *Repository) UpsertSummary(ctx context.Context, summary *models.PurchaseSummary) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "hospital_id"}, {Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"purchase_count", "units_sold", "revenue", "updated_at",
			}),
		}).
		Create(summary).Error
}

// ListSummaries returns the rollups for a hospital, most recent day first.
func (r *Repository) ListSummaries(ctx context.Context, hospitalID uuid.UUID, limit int) ([]models.PurchaseSummary, error) {
	if limit <= 0 {
		limit = 30
	}
	var rows []models.PurchaseSummary
	err := r.db.WithContext(ctx).
		Where("hospital_id = ?", hospitalID).
		Order("day DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
