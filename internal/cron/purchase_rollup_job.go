package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/avalonhealth/carehub-backend/internal/reports"
	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/logger"
)

type purchaseRollupStore interface {
	AggregatePurchases(ctx context.Context, from, to time.Time) ([]reports.DailyPurchaseTotal, error)
	UpsertSummary(ctx context.Context, summary *models.PurchaseSummary) error
}

// PurchaseRollupJobParams configure the daily purchase rollup.
type PurchaseRollupJobParams struct {
	Logger *logger.Logger
	Repo   purchaseRollupStore
}

// NewPurchaseRollupJob builds the job that upserts yesterday's per-hospital
// purchase totals.
func NewPurchaseRollupJob(params PurchaseRollupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	return &purchaseRollupJob{
		logg: params.Logger,
		repo: params.Repo,
		now:  time.Now,
	}, nil
}

type purchaseRollupJob struct {
	logg *logger.Logger
	repo purchaseRollupStore
	now  func() time.Time
}

func (j *purchaseRollupJob) Name() string { return "purchase-rollup" }

func (j *purchaseRollupJob) Run(ctx context.Context) error {
	day := j.now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	next := day.AddDate(0, 0, 1)

	totals, err := j.repo.AggregatePurchases(ctx, day, next)
	if err != nil {
		return fmt.Errorf("aggregate purchases: %w", err)
	}

	var errs []error
	count := 0
	for _, total := range totals {
		summary := models.PurchaseSummary{
			HospitalID:    total.HospitalID,
			Day:           day,
			PurchaseCount: total.PurchaseCount,
			UnitsSold:     total.UnitsSold,
			Revenue:       total.Revenue,
		}
		if err := j.repo.UpsertSummary(ctx, &summary); err != nil {
			errs = append(errs, fmt.Errorf("upsert summary for hospital %s: %w", total.HospitalID, err))
			continue
		}
		count++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"day": day.Format("2006-01-02"), "count": count})
	j.logg.Info(logCtx, "purchase rollup loop complete")
	return multierr.Combine(errs...)
}
