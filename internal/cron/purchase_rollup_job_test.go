package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avalonhealth/carehub-backend/internal/reports"
	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/logger"
)

type fakeRollupStore struct {
	from      time.Time
	to        time.Time
	totals    []reports.DailyPurchaseTotal
	upserts   []models.PurchaseSummary
	upsertErr error
}

func (f *fakeRollupStore) AggregatePurchases(ctx context.Context, from, to time.Time) ([]reports.DailyPurchaseTotal, error) {
	f.from = from
	f.to = to
	return f.totals, nil
}

func (f *fakeRollupStore) UpsertSummary(ctx context.Context, summary *models.PurchaseSummary) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, *summary)
	return nil
}

func newRollupJob(t *testing.T, store *fakeRollupStore, now time.Time) *purchaseRollupJob {
	t.Helper()
	jobIface, err := NewPurchaseRollupJob(PurchaseRollupJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Repo:   store,
	})
	if err != nil {
		t.Fatalf("NewPurchaseRollupJob: %v", err)
	}
	job := jobIface.(*purchaseRollupJob)
	job.now = func() time.Time { return now }
	return job
}

func TestPurchaseRollupJobUpsertsYesterday(t *testing.T) {
	now := time.Date(2026, 3, 15, 4, 30, 0, 0, time.UTC)
	hospitalID := uuid.New()
	store := &fakeRollupStore{
		totals: []reports.DailyPurchaseTotal{{
			HospitalID:    hospitalID,
			PurchaseCount: 7,
			UnitsSold:     19,
			Revenue:       decimal.RequireFromString("95.00"),
		}},
	}
	job := newRollupJob(t, store, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantDay := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if !store.from.Equal(wantDay) || !store.to.Equal(wantDay.AddDate(0, 0, 1)) {
		t.Fatalf("expected window [%s, %s), got [%s, %s)", wantDay, wantDay.AddDate(0, 0, 1), store.from, store.to)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected one upsert, got %d", len(store.upserts))
	}
	got := store.upserts[0]
	if got.HospitalID != hospitalID || !got.Day.Equal(wantDay) {
		t.Fatalf("unexpected summary %+v", got)
	}
	if got.PurchaseCount != 7 || got.UnitsSold != 19 {
		t.Fatalf("unexpected totals %+v", got)
	}
}

func TestPurchaseRollupJobReportsUpsertFailures(t *testing.T) {
	now := time.Date(2026, 3, 15, 4, 30, 0, 0, time.UTC)
	store := &fakeRollupStore{
		totals: []reports.DailyPurchaseTotal{
			{HospitalID: uuid.New(), PurchaseCount: 1, UnitsSold: 1, Revenue: decimal.NewFromInt(5)},
		},
		upsertErr: errors.New("boom"),
	}
	job := newRollupJob(t, store, now)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected run to surface the upsert failure")
	}
}
