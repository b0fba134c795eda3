package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseSummary is the per-hospital daily rollup maintained by the cron
// worker and consumed by the reports surface.
type PurchaseSummary struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	HospitalID    uuid.UUID       `gorm:"column:hospital_id;type:uuid;not null;uniqueIndex:idx_purchase_summaries_hospital_day"`
	Day           time.Time       `gorm:"column:day;not null;uniqueIndex:idx_purchase_summaries_hospital_day"`
	PurchaseCount int             `gorm:"column:purchase_count;not null;default:0"`
	UnitsSold     int             `gorm:"column:units_sold;not null;default:0"`
	Revenue       decimal.Decimal `gorm:"column:revenue;type:numeric(12,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *PurchaseSummary) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
