package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
	"github.com/avalonhealth/carehub-backend/pkg/metrics"
	pkgpagination "github.com/avalonhealth/carehub-backend/pkg/pagination"
)

const (
	purchaseKindOTC          = "otc"
	purchaseKindPrescription = "prescription"
)

// Service is the only code path allowed to spend medication stock.
type Service interface {
	Purchase(ctx context.Context, patientID, hospitalID uuid.UUID, req PurchaseRequest) (*PurchaseDTO, error)
	RedeemPrescription(ctx context.Context, patientID, hospitalID, prescriptionID uuid.UUID) (*PurchaseDTO, error)
	IssuePrescription(ctx context.Context, prescribedBy uuid.UUID, actorHospital *uuid.UUID, req IssuePrescriptionRequest) (*PrescriptionDTO, error)
	ListPrescriptionsForPatient(ctx context.Context, patientID uuid.UUID) ([]PrescriptionDTO, error)
	ListPrescriptionsForHospital(ctx context.Context, hospitalID uuid.UUID) ([]PrescriptionDTO, error)
	Catalog(ctx context.Context, params CatalogParams) (*CatalogPage, error)
	PurchaseHistory(ctx context.Context, patientID uuid.UUID) ([]PurchaseDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type patientDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ServiceParams bundles the dependencies for the pharmacy service.
type ServiceParams struct {
	DB                txRunner
	Repo              *Repository
	Patients          patientDirectory
	Metrics           *metrics.PharmacyMetrics
	LowStockThreshold int
}

type service struct {
	db                txRunner
	repo              *Repository
	patients          patientDirectory
	metrics           *metrics.PharmacyMetrics
	lowStockThreshold int
}

// NewService constructs the pharmacy service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("pharmacy repository is required")
	}
	if params.Patients == nil {
		return nil, fmt.Errorf("patient directory is required")
	}
	threshold := params.LowStockThreshold
	if threshold <= 0 {
		threshold = 10
	}
	return &service{
		db:                params.DB,
		repo:              params.Repo,
		patients:          params.Patients,
		metrics:           params.Metrics,
		lowStockThreshold: threshold,
	}, nil
}

func (s *service) Purchase(ctx context.Context, patientID, hospitalID uuid.UUID, req PurchaseRequest) (*PurchaseDTO, error) {
	if req.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if req.MedicationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medication_id is required")
	}

	start := time.Now()
	var purchase *models.Purchase
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		medication, err := s.lockScopedMedication(ctx, repo, req.MedicationID, hospitalID)
		if err != nil {
			return err
		}
		if medication.PrescriptionRequired {
			return pkgerrors.New(pkgerrors.CodeValidation, "medication requires a prescription")
		}

		purchase, err = s.spendStock(ctx, repo, medication, patientID, req.Quantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveDuration(purchaseKindOTC, time.Since(start))
	s.metrics.IncCompleted(purchaseKindOTC, purchase.Quantity)
	return purchaseFromModel(purchase), nil
}

func (s *service) RedeemPrescription(ctx context.Context, patientID, hospitalID, prescriptionID uuid.UUID) (*PurchaseDTO, error) {
	if prescriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prescription id is required")
	}

	start := time.Now()
	var purchase *models.Purchase
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		prescription, err := repo.FindPrescription(ctx, prescriptionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load prescription")
		}
		// Ownership failures look identical to a missing prescription.
		if prescription.PatientID != patientID || !prescription.IsActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
		}

		medication, err := s.lockScopedMedication(ctx, repo, prescription.MedicationID, hospitalID)
		if err != nil {
			return err
		}

		affected, err := repo.DeactivatePrescription(ctx, prescription.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate prescription")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
		}

		purchase, err = s.spendStock(ctx, repo, medication, patientID, prescription.Quantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveDuration(purchaseKindPrescription, time.Since(start))
	s.metrics.IncCompleted(purchaseKindPrescription, purchase.Quantity)
	return purchaseFromModel(purchase), nil
}

// lockScopedMedication re-reads the medication under a row lock and hides
// rows outside the caller's hospital.
func (s *service) lockScopedMedication(ctx context.Context, repo *Repository, medicationID, hospitalID uuid.UUID) (*models.Medication, error) {
	medication, err := repo.FindMedicationForUpdate(ctx, medicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medication not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medication")
	}
	if medication.HospitalID == nil || *medication.HospitalID != hospitalID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medication not found")
	}
	return medication, nil
}

// spendStock performs the stock check, the guarded decrement, the ledger
// insert, and the low stock alert, all on the supplied transaction.
func (s *service) spendStock(ctx context.Context, repo *Repository, medication *models.Medication, patientID uuid.UUID, quantity int) (*models.Purchase, error) {
	if medication.Quantity < quantity {
		s.metrics.IncDenied()
		return nil, insufficientStock(medication.Quantity, quantity)
	}

	affected, err := repo.DecrementStock(ctx, medication.ID, quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
	}
	if affected == 0 {
		s.metrics.IncDenied()
		return nil, insufficientStock(medication.Quantity, quantity)
	}

	unitPrice := medication.Price
	purchase, err := repo.CreatePurchase(ctx, &models.Purchase{
		PatientID:    patientID,
		MedicationID: medication.ID,
		HospitalID:   medication.HospitalID,
		Quantity:     quantity,
		UnitPrice:    unitPrice,
		TotalPrice:   unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record purchase")
	}

	if remaining := medication.Quantity - quantity; remaining <= s.lowStockThreshold {
		alert := &models.StockAlert{
			HospitalID:   medication.HospitalID,
			MedicationID: medication.ID,
			Quantity:     remaining,
		}
		if err := repo.CreateStockAlert(ctx, alert); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock alert")
		}
	}

	return purchase, nil
}

func (s *service) IssuePrescription(ctx context.Context, prescribedBy uuid.UUID, actorHospital *uuid.UUID, req IssuePrescriptionRequest) (*PrescriptionDTO, error) {
	if req.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	patient, err := s.patients.FindByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "patient not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load patient")
	}
	if patient.Role != enums.UserRolePatient || !patient.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "patient not found")
	}

	medication, err := s.repo.FindMedication(ctx, req.MedicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medication not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load medication")
	}
	if medication.HospitalID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medication not found")
	}
	// Staff operate within their own hospital; admins pass a nil scope.
	if actorHospital != nil && *medication.HospitalID != *actorHospital {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medication not found")
	}
	if patient.HospitalID == nil || *patient.HospitalID != *medication.HospitalID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "patient and medication belong to different hospitals")
	}
	if !medication.PrescriptionRequired {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medication does not require a prescription")
	}
	if medication.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medication is out of stock")
	}

	prescription, err := s.repo.CreatePrescription(ctx, &models.Prescription{
		PatientID:    req.PatientID,
		MedicationID: req.MedicationID,
		PrescribedBy: prescribedBy,
		Quantity:     req.Quantity,
		IsActive:     true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create prescription")
	}
	return prescriptionFromModel(prescription), nil
}

func (s *service) ListPrescriptionsForPatient(ctx context.Context, patientID uuid.UUID) ([]PrescriptionDTO, error) {
	rows, err := s.repo.ListPrescriptionsByPatient(ctx, patientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list prescriptions")
	}
	return prescriptionDTOs(rows), nil
}

func (s *service) ListPrescriptionsForHospital(ctx context.Context, hospitalID uuid.UUID) ([]PrescriptionDTO, error) {
	rows, err := s.repo.ListPrescriptionsByHospital(ctx, hospitalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list prescriptions")
	}
	return prescriptionDTOs(rows), nil
}

func (s *service) Catalog(ctx context.Context, params CatalogParams) (*CatalogPage, error) {
	cursor, err := pkgpagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListCatalog(ctx, catalogQuery{
		hospitalID: params.HospitalID,
		limit:      pkgpagination.LimitWithBuffer(params.Limit),
		cursor:     cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list catalog")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pkgpagination.EncodeCursor(pkgpagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	items := make([]CatalogItem, 0, len(rows))
	for i := range rows {
		items = append(items, catalogItemFromModel(&rows[i]))
	}
	return &CatalogPage{Items: items, Cursor: next}, nil
}

func (s *service) PurchaseHistory(ctx context.Context, patientID uuid.UUID) ([]PurchaseDTO, error) {
	rows, err := s.repo.ListPurchasesByPatient(ctx, patientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list purchases")
	}
	out := make([]PurchaseDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *purchaseFromModel(&rows[i]))
	}
	return out, nil
}

func prescriptionDTOs(rows []models.Prescription) []PrescriptionDTO {
	out := make([]PrescriptionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *prescriptionFromModel(&rows[i]))
	}
	return out
}

func insufficientStock(available, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"available": available,
			"requested": requested,
		})
}
