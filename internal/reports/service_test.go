package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:reports_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Report{}, &models.Purchase{}, &models.PurchaseSummary{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestReportLifecycle(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()
	hospitalID := uuid.New()
	authorID := uuid.New()

	report, err := svc.Create(ctx, hospitalID, authorID, CreateRequest{Title: "Q3 utilization"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if report.GeneratedBy == nil || *report.GeneratedBy != authorID {
		t.Fatal("report must be stamped with its author")
	}

	title := "Q3 utilization (final)"
	updated, err := svc.Update(ctx, hospitalID, report.ID, UpdateRequest{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != title {
		t.Fatal("expected updated title")
	}

	rows, err := svc.List(ctx, hospitalID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one report, got %d", len(rows))
	}

	if err := svc.Delete(ctx, hospitalID, report.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = svc.Get(ctx, hospitalID, report.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND after delete, got %v", err)
	}
}

func TestReportHospitalScope(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()
	hospitalID := uuid.New()

	report, err := svc.Create(ctx, hospitalID, uuid.New(), CreateRequest{Title: "internal audit"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	otherHospital := uuid.New()
	if _, err := svc.Get(ctx, otherHospital, report.ID); err == nil {
		t.Fatal("foreign hospital must not see the report")
	}
	title := "leak"
	if _, err := svc.Update(ctx, otherHospital, report.ID, UpdateRequest{Title: &title}); err == nil {
		t.Fatal("foreign hospital must not update the report")
	}
	if err := svc.Delete(ctx, otherHospital, report.ID); err == nil {
		t.Fatal("foreign hospital must not delete the report")
	}
}

func TestAggregateAndUpsertSummaries(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	hospitalID := uuid.New()
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	for i, qty := range []int{2, 3} {
		purchase := models.Purchase{
			PatientID:    uuid.New(),
			MedicationID: uuid.New(),
			HospitalID:   &hospitalID,
			Quantity:     qty,
			UnitPrice:    decimal.RequireFromString("5.00"),
			TotalPrice:   decimal.NewFromInt(int64(qty * 5)),
		}
		if err := db.Create(&purchase).Error; err != nil {
			t.Fatalf("seed purchase: %v", err)
		}
		created := day.Add(time.Duration(i+1) * time.Hour)
		if err := db.Model(&models.Purchase{}).
			Where("id = ?", purchase.ID).
			UpdateColumn("created_at", created).Error; err != nil {
			t.Fatalf("stamp created_at: %v", err)
		}
	}

	totals, err := repo.AggregatePurchases(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(totals) != 1 {
		t.Fatalf("expected one hospital total, got %d", len(totals))
	}
	got := totals[0]
	if got.PurchaseCount != 2 || got.UnitsSold != 5 {
		t.Fatalf("unexpected totals %+v", got)
	}
	if !got.Revenue.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected revenue 25, got %s", got.Revenue)
	}

	summary := models.PurchaseSummary{
		HospitalID:    got.HospitalID,
		Day:           day,
		PurchaseCount: got.PurchaseCount,
		UnitsSold:     got.UnitsSold,
		Revenue:       got.Revenue,
	}
	if err := repo.UpsertSummary(ctx, &summary); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// A rerun with corrected totals must replace, not duplicate.
	rerun := models.PurchaseSummary{
		HospitalID:    got.HospitalID,
		Day:           day,
		PurchaseCount: 3,
		UnitsSold:     9,
		Revenue:       decimal.NewFromInt(45),
	}
	if err := repo.UpsertSummary(ctx, &rerun); err != nil {
		t.Fatalf("upsert rerun: %v", err)
	}

	rows, err := repo.ListSummaries(ctx, hospitalID, 0)
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a single rollup row, got %d", len(rows))
	}
	if rows[0].UnitsSold != 9 {
		t.Fatalf("rerun must replace totals, got %d units", rows[0].UnitsSold)
	}
}
