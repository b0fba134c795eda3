package pharmacy

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:pharmacy_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Hospital{},
		&models.Medication{},
		&models.Prescription{},
		&models.Purchase{},
		&models.StockAlert{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	db         *gorm.DB
	svc        Service
	hospitalID uuid.UUID
	patientID  uuid.UUID
	staffID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	hospital := models.Hospital{Name: "General"}
	if err := db.Create(&hospital).Error; err != nil {
		t.Fatalf("seed hospital: %v", err)
	}

	patient := models.User{
		Email:        "patient_" + uuid.NewString() + "@example.com",
		PasswordHash: "x",
		FirstName:    "Pat",
		LastName:     "Ent",
		Role:         enums.UserRolePatient,
		HospitalID:   &hospital.ID,
		IsActive:     true,
	}
	staff := models.User{
		Email:        "staff_" + uuid.NewString() + "@example.com",
		PasswordHash: "x",
		FirstName:    "Sta",
		LastName:     "Ff",
		Role:         enums.UserRoleStaff,
		HospitalID:   &hospital.ID,
		IsActive:     true,
	}
	if err := db.Create(&patient).Error; err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	if err := db.Create(&staff).Error; err != nil {
		t.Fatalf("seed staff: %v", err)
	}

	svc, err := NewService(ServiceParams{
		DB:                gormTxRunner{db: db},
		Repo:              NewRepository(db),
		Patients:          stubPatientDirectory{db: db},
		LowStockThreshold: 2,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &fixture{
		db:         db,
		svc:        svc,
		hospitalID: hospital.ID,
		patientID:  patient.ID,
		staffID:    staff.ID,
	}
}

type stubPatientDirectory struct {
	db *gorm.DB
}

func (s stubPatientDirectory) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (f *fixture) seedMedication(t *testing.T, name string, qty int, price string, rxOnly bool) uuid.UUID {
	t.Helper()
	med := models.Medication{
		HospitalID:           &f.hospitalID,
		Name:                 name,
		Quantity:             qty,
		Unit:                 "pcs",
		Price:                decimal.RequireFromString(price),
		PrescriptionRequired: rxOnly,
	}
	if err := f.db.Create(&med).Error; err != nil {
		t.Fatalf("seed medication: %v", err)
	}
	return med.ID
}

func (f *fixture) medicationQty(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var med models.Medication
	if err := f.db.First(&med, "id = ?", id).Error; err != nil {
		t.Fatalf("load medication: %v", err)
	}
	return med.Quantity
}

func (f *fixture) purchaseCount(t *testing.T, medicationID uuid.UUID) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&models.Purchase{}).Where("medication_id = ?", medicationID).Count(&count).Error; err != nil {
		t.Fatalf("count purchases: %v", err)
	}
	return count
}

func TestPurchaseDecrementsStockAndRecordsLedger(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	medID := f.seedMedication(t, "Aspirin", 10, "5.00", false)

	purchase, err := f.svc.Purchase(ctx, f.patientID, f.hospitalID, PurchaseRequest{
		MedicationID: medID,
		Quantity:     4,
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	if got := f.medicationQty(t, medID); got != 6 {
		t.Fatalf("expected quantity 6 after purchase, got %d", got)
	}
	if !purchase.UnitPrice.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("unexpected unit price %s", purchase.UnitPrice)
	}
	if !purchase.TotalPrice.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected total 20.00, got %s", purchase.TotalPrice)
	}
	if purchase.HospitalID == nil || *purchase.HospitalID != f.hospitalID {
		t.Fatalf("expected denormalized hospital id on the ledger row")
	}
}

func TestPurchaseInsufficientStockLeavesNoTrace(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	medID := f.seedMedication(t, "Aspirin", 6, "5.00", false)

	_, err := f.svc.Purchase(ctx, f.patientID, f.hospitalID, PurchaseRequest{
		MedicationID: medID,
		Quantity:     8,
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}

	if got := f.medicationQty(t, medID); got != 6 {
		t.Fatalf("denied purchase must not change stock, got %d", got)
	}
	if got := f.purchaseCount(t, medID); got != 0 {
		t.Fatalf("denied purchase must not write a ledger row, got %d", got)
	}
}

func TestCompetingPurchasesNeverOversell(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	medID := f.seedMedication(t, "Ibuprofen", 5, "3.50", false)

	// A single pooled connection serializes the sqlite writers so both
	// goroutines race the same row without tripping table locks; the
	// guarded decrement is what keeps one of them from overselling.
	// Postgres gets the same exclusion from the FOR UPDATE row lock.
	sqlDB, err := f.db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Purchase(ctx, f.patientID, f.hospitalID, PurchaseRequest{MedicationID: medID, Quantity: 3})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, denied int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
			denied++
			continue
		}
		t.Fatalf("unexpected purchase error: %v", err)
	}
	if succeeded != 1 || denied != 1 {
		t.Fatalf("expected exactly one success and one denial, got %d successes and %d denials", succeeded, denied)
	}

	if got := f.medicationQty(t, medID); got != 2 {
		t.Fatalf("expected final stock 2, got %d", got)
	}
	if got := f.purchaseCount(t, medID); got != 1 {
		t.Fatalf("expected one ledger row, got %d", got)
	}
}

func TestPurchaseRejectsPrescriptionMedication(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	medID := f.seedMedication(t, "Amoxicillin", 10, "12.00", true)

	_, err := f.svc.Purchase(ctx, f.patientID, f.hospitalID, PurchaseRequest{MedicationID: medID, Quantity: 1})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
	if got := f.medicationQty(t, medID); got != 10 {
		t.Fatalf("stock must be untouched, got %d", got)
	}
}

func TestPurchaseHidesOtherHospitalsMedication(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	other := models.Hospital{Name: "Elsewhere"}
	if err := f.db.Create(&other).Error; err != nil {
		t.Fatalf("seed hospital: %v", err)
	}
	med := models.Medication{
		HospitalID: &other.ID,
		Name:       "Aspirin",
		Quantity:   10,
		Unit:       "pcs",
		Price:      decimal.RequireFromString("5.00"),
	}
	if err := f.db.Create(&med).Error; err != nil {
		t.Fatalf("seed medication: %v", err)
	}

	_, err := f.svc.Purchase(ctx, f.patientID, f.hospitalID, PurchaseRequest{MedicationID: med.ID, Quantity: 1})
	if err == nil {
		t.Fatal("expected not found")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestLowStockAlertWritten(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	medID := f.seedMedication(t, "Paracetamol", 5, "2.00", false)

	if _, err := f.svc.Purchase(ctx, f.patientID, f.hospitalID, PurchaseRequest{MedicationID: medID, Quantity: 4}); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	var alerts []models.StockAlert
	if err := f.db.Where("medication_id = ?", medID).Find(&alerts).Error; err != nil {
		t.Fatalf("load alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected one stock alert, got %d", len(alerts))
	}
	if alerts[0].Quantity != 1 {
		t.Fatalf("alert should carry remaining quantity 1, got %d", alerts[0].Quantity)
	}
}

func TestIssueAndRedeemPrescription(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	medID := f.seedMedication(t, "Amoxicillin", 10, "12.00", true)

	hospital := f.hospitalID
	prescription, err := f.svc.IssuePrescription(ctx, f.staffID, &hospital, IssuePrescriptionRequest{
		PatientID:    f.patientID,
		MedicationID: medID,
		Quantity:     3,
	})
	if err != nil {
		t.Fatalf("issue prescription: %v", err)
	}
	if !prescription.IsActive {
		t.Fatal("expected active prescription")
	}

	purchase, err := f.svc.RedeemPrescription(ctx, f.patientID, f.hospitalID, prescription.ID)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if purchase.Quantity != 3 {
		t.Fatalf("expected quantity from prescription, got %d", purchase.Quantity)
	}
	if !purchase.TotalPrice.Equal(decimal.RequireFromString("36.00")) {
		t.Fatalf("expected total 36.00, got %s", purchase.TotalPrice)
	}
	if got := f.medicationQty(t, medID); got != 7 {
		t.Fatalf("expected stock 7, got %d", got)
	}

	// Second redemption must fail and leave state alone.
	_, err = f.svc.RedeemPrescription(ctx, f.patientID, f.hospitalID, prescription.ID)
	if err == nil {
		t.Fatal("expected second redemption to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if got := f.medicationQty(t, medID); got != 7 {
		t.Fatalf("stock must be unchanged after replayed redemption, got %d", got)
	}
	if got := f.purchaseCount(t, medID); got != 1 {
		t.Fatalf("expected single ledger row, got %d", got)
	}
}

func TestRedeemInsufficientStockKeepsPrescriptionActive(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	medID := f.seedMedication(t, "Amoxicillin", 2, "12.00", true)

	hospital := f.hospitalID
	prescription, err := f.svc.IssuePrescription(ctx, f.staffID, &hospital, IssuePrescriptionRequest{
		PatientID:    f.patientID,
		MedicationID: medID,
		Quantity:     3,
	})
	if err != nil {
		t.Fatalf("issue prescription: %v", err)
	}

	_, err = f.svc.RedeemPrescription(ctx, f.patientID, f.hospitalID, prescription.ID)
	if err == nil {
		t.Fatal("expected insufficient stock")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}

	// The rollback must restore the prescription for a later retry.
	var rx models.Prescription
	if err := f.db.First(&rx, "id = ?", prescription.ID).Error; err != nil {
		t.Fatalf("load prescription: %v", err)
	}
	if !rx.IsActive {
		t.Fatal("prescription must stay active when redemption is denied")
	}
	if got := f.medicationQty(t, medID); got != 2 {
		t.Fatalf("stock must be untouched, got %d", got)
	}
}

func TestRedeemRejectsForeignPrescription(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	medID := f.seedMedication(t, "Amoxicillin", 10, "12.00", true)

	other := models.User{
		Email:        "other_" + uuid.NewString() + "@example.com",
		PasswordHash: "x",
		FirstName:    "Ot",
		LastName:     "Her",
		Role:         enums.UserRolePatient,
		HospitalID:   &f.hospitalID,
		IsActive:     true,
	}
	if err := f.db.Create(&other).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	hospital := f.hospitalID
	prescription, err := f.svc.IssuePrescription(ctx, f.staffID, &hospital, IssuePrescriptionRequest{
		PatientID:    other.ID,
		MedicationID: medID,
		Quantity:     1,
	})
	if err != nil {
		t.Fatalf("issue prescription: %v", err)
	}

	_, err = f.svc.RedeemPrescription(ctx, f.patientID, f.hospitalID, prescription.ID)
	if err == nil {
		t.Fatal("expected not found for foreign prescription")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestIssuePrescriptionValidations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	otcID := f.seedMedication(t, "Aspirin", 10, "5.00", false)
	hospital := f.hospitalID

	_, err := f.svc.IssuePrescription(ctx, f.staffID, &hospital, IssuePrescriptionRequest{
		PatientID:    f.patientID,
		MedicationID: otcID,
		Quantity:     1,
	})
	if err == nil {
		t.Fatal("expected validation error for OTC medication")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION, got %v", err)
	}

	_, err = f.svc.IssuePrescription(ctx, f.staffID, &hospital, IssuePrescriptionRequest{
		PatientID:    f.staffID,
		MedicationID: otcID,
		Quantity:     1,
	})
	if err == nil {
		t.Fatal("expected not found for non-patient target")
	}

	drainedID := f.seedMedication(t, "Metformin", 0, "8.00", true)
	_, err = f.svc.IssuePrescription(ctx, f.staffID, &hospital, IssuePrescriptionRequest{
		PatientID:    f.patientID,
		MedicationID: drainedID,
		Quantity:     1,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION for out-of-stock medication, got %v", err)
	}
}

func TestCatalogReturnsOnlyOTCForHospital(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedMedication(t, "Aspirin", 10, "5.00", false)
	f.seedMedication(t, "Amoxicillin", 10, "12.00", true)

	page, err := f.svc.Catalog(ctx, CatalogParams{HospitalID: f.hospitalID})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected one OTC item, got %d", len(page.Items))
	}
	if page.Items[0].Name != "Aspirin" {
		t.Fatalf("unexpected catalog item %s", page.Items[0].Name)
	}
}

func TestPurchaseHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	medID := f.seedMedication(t, "Aspirin", 10, "5.00", false)

	if _, err := f.svc.Purchase(ctx, f.patientID, f.hospitalID, PurchaseRequest{MedicationID: medID, Quantity: 2}); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := f.svc.Purchase(ctx, f.patientID, f.hospitalID, PurchaseRequest{MedicationID: medID, Quantity: 1}); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	history, err := f.svc.PurchaseHistory(ctx, f.patientID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected two purchases, got %d", len(history))
	}
}
