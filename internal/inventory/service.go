package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
	pkgpagination "github.com/avalonhealth/carehub-backend/pkg/pagination"
)

// CreateMedicationRequest is the payload for adding a medication.
type CreateMedicationRequest struct {
	Name                 string          `json:"name" validate:"required"`
	Description          *string         `json:"description,omitempty"`
	Quantity             int             `json:"quantity" validate:"gte=0"`
	Unit                 string          `json:"unit,omitempty"`
	Price                decimal.Decimal `json:"price" validate:"required"`
	PrescriptionRequired bool            `json:"prescription_required"`
}

// UpdateMedicationRequest carries the mutable medication fields.
type UpdateMedicationRequest struct {
	Name                 *string          `json:"name,omitempty"`
	Description          *string          `json:"description,omitempty"`
	Quantity             *int             `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Unit                 *string          `json:"unit,omitempty"`
	Price                *decimal.Decimal `json:"price,omitempty"`
	PrescriptionRequired *bool            `json:"prescription_required,omitempty"`
}

// CreateSupplyRequest is the payload for adding a medical supply.
type CreateSupplyRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	Unit        string  `json:"unit,omitempty"`
}

// UpdateSupplyRequest carries the mutable supply fields.
type UpdateSupplyRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Quantity    *int    `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Unit        *string `json:"unit,omitempty"`
}

// CreateEquipmentRequest is the payload for adding equipment.
type CreateEquipmentRequest struct {
	Name        string                `json:"name" validate:"required"`
	Description *string               `json:"description,omitempty"`
	Quantity    int                   `json:"quantity" validate:"gte=0"`
	Status      enums.EquipmentStatus `json:"status,omitempty"`
}

// UpdateEquipmentRequest carries the mutable equipment fields.
type UpdateEquipmentRequest struct {
	Name        *string                `json:"name,omitempty"`
	Description *string                `json:"description,omitempty"`
	Quantity    *int                   `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Status      *enums.EquipmentStatus `json:"status,omitempty"`
}

// Service defines hospital-scoped inventory management.
type Service interface {
	CreateMedication(ctx context.Context, hospitalID uuid.UUID, req CreateMedicationRequest) (*MedicationDTO, error)
	GetMedication(ctx context.Context, hospitalID, id uuid.UUID) (*MedicationDTO, error)
	ListMedications(ctx context.Context, params ListParams) (*MedicationList, error)
	UpdateMedication(ctx context.Context, hospitalID, id uuid.UUID, req UpdateMedicationRequest) (*MedicationDTO, error)
	DeleteMedication(ctx context.Context, hospitalID, id uuid.UUID) error

	CreateSupply(ctx context.Context, hospitalID uuid.UUID, req CreateSupplyRequest) (*SupplyDTO, error)
	GetSupply(ctx context.Context, hospitalID, id uuid.UUID) (*SupplyDTO, error)
	ListSupplies(ctx context.Context, params ListParams) (*SupplyList, error)
	UpdateSupply(ctx context.Context, hospitalID, id uuid.UUID, req UpdateSupplyRequest) (*SupplyDTO, error)
	DeleteSupply(ctx context.Context, hospitalID, id uuid.UUID) error

	CreateEquipment(ctx context.Context, hospitalID uuid.UUID, req CreateEquipmentRequest) (*EquipmentDTO, error)
	GetEquipment(ctx context.Context, hospitalID, id uuid.UUID) (*EquipmentDTO, error)
	ListEquipment(ctx context.Context, params ListParams) (*EquipmentList, error)
	UpdateEquipment(ctx context.Context, hospitalID, id uuid.UUID, req UpdateEquipmentRequest) (*EquipmentDTO, error)
	DeleteEquipment(ctx context.Context, hospitalID, id uuid.UUID) error

	ListAlerts(ctx context.Context, hospitalID uuid.UUID) ([]AlertDTO, error)
	MarkAlertRead(ctx context.Context, hospitalID, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

// NewService constructs the inventory service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateMedication(ctx context.Context, hospitalID uuid.UUID, req CreateMedicationRequest) (*MedicationDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if req.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if req.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = "pcs"
	}

	medication, err := s.repo.CreateMedication(ctx, &models.Medication{
		HospitalID:           &hospitalID,
		Name:                 name,
		Description:          req.Description,
		Quantity:             req.Quantity,
		Unit:                 unit,
		Price:                req.Price,
		PrescriptionRequired: req.PrescriptionRequired,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create medication")
	}
	return medicationFromModel(medication), nil
}

func (s *service) GetMedication(ctx context.Context, hospitalID, id uuid.UUID) (*MedicationDTO, error) {
	medication, err := s.repo.FindMedication(ctx, hospitalID, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "medication")
	}
	return medicationFromModel(medication), nil
}

func (s *service) ListMedications(ctx context.Context, params ListParams) (*MedicationList, error) {
	opts, err := buildListQuery(params)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMedications(ctx, opts)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list medications")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pkgpagination.EncodeCursor(pkgpagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	items := make([]MedicationDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *medicationFromModel(&rows[i]))
	}
	return &MedicationList{Items: items, Cursor: next}, nil
}

func (s *service) UpdateMedication(ctx context.Context, hospitalID, id uuid.UUID, req UpdateMedicationRequest) (*MedicationDTO, error) {
	if _, err := s.repo.FindMedication(ctx, hospitalID, id); err != nil {
		return nil, notFoundOrInternal(err, "medication")
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		fields["quantity"] = *req.Quantity
	}
	if req.Unit != nil {
		fields["unit"] = strings.TrimSpace(*req.Unit)
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		fields["price"] = *req.Price
	}
	if req.PrescriptionRequired != nil {
		fields["prescription_required"] = *req.PrescriptionRequired
	}

	if err := s.repo.UpdateMedicationFields(ctx, hospitalID, id, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update medication")
	}
	updated, err := s.repo.FindMedication(ctx, hospitalID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload medication")
	}
	return medicationFromModel(updated), nil
}

func (s *service) DeleteMedication(ctx context.Context, hospitalID, id uuid.UUID) error {
	if _, err := s.repo.FindMedication(ctx, hospitalID, id); err != nil {
		return notFoundOrInternal(err, "medication")
	}
	if err := s.repo.DeleteMedication(ctx, hospitalID, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete medication")
	}
	return nil
}

func (s *service) CreateSupply(ctx context.Context, hospitalID uuid.UUID, req CreateSupplyRequest) (*SupplyDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if req.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = "pcs"
	}
	supply, err := s.repo.CreateSupply(ctx, &models.MedicalSupply{
		HospitalID:  &hospitalID,
		Name:        name,
		Description: req.Description,
		Quantity:    req.Quantity,
		Unit:        unit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create supply")
	}
	return supplyFromModel(supply), nil
}

func (s *service) GetSupply(ctx context.Context, hospitalID, id uuid.UUID) (*SupplyDTO, error) {
	supply, err := s.repo.FindSupply(ctx, hospitalID, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "supply")
	}
	return supplyFromModel(supply), nil
}

func (s *service) ListSupplies(ctx context.Context, params ListParams) (*SupplyList, error) {
	opts, err := buildListQuery(params)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListSupplies(ctx, opts)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list supplies")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pkgpagination.EncodeCursor(pkgpagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	items := make([]SupplyDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *supplyFromModel(&rows[i]))
	}
	return &SupplyList{Items: items, Cursor: next}, nil
}

func (s *service) UpdateSupply(ctx context.Context, hospitalID, id uuid.UUID, req UpdateSupplyRequest) (*SupplyDTO, error) {
	if _, err := s.repo.FindSupply(ctx, hospitalID, id); err != nil {
		return nil, notFoundOrInternal(err, "supply")
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		fields["quantity"] = *req.Quantity
	}
	if req.Unit != nil {
		fields["unit"] = strings.TrimSpace(*req.Unit)
	}

	if err := s.repo.UpdateSupplyFields(ctx, hospitalID, id, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update supply")
	}
	updated, err := s.repo.FindSupply(ctx, hospitalID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload supply")
	}
	return supplyFromModel(updated), nil
}

func (s *service) DeleteSupply(ctx context.Context, hospitalID, id uuid.UUID) error {
	if _, err := s.repo.FindSupply(ctx, hospitalID, id); err != nil {
		return notFoundOrInternal(err, "supply")
	}
	if err := s.repo.DeleteSupply(ctx, hospitalID, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete supply")
	}
	return nil
}

func (s *service) CreateEquipment(ctx context.Context, hospitalID uuid.UUID, req CreateEquipmentRequest) (*EquipmentDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if req.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	status := req.Status
	if status == "" {
		status = enums.EquipmentStatusWorking
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid equipment status")
	}
	equipment, err := s.repo.CreateEquipment(ctx, &models.Equipment{
		HospitalID:  &hospitalID,
		Name:        name,
		Description: req.Description,
		Quantity:    req.Quantity,
		Status:      status,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create equipment")
	}
	return equipmentFromModel(equipment), nil
}

func (s *service) GetEquipment(ctx context.Context, hospitalID, id uuid.UUID) (*EquipmentDTO, error) {
	equipment, err := s.repo.FindEquipment(ctx, hospitalID, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "equipment")
	}
	return equipmentFromModel(equipment), nil
}

func (s *service) ListEquipment(ctx context.Context, params ListParams) (*EquipmentList, error) {
	opts, err := buildListQuery(params)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListEquipment(ctx, opts)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list equipment")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pkgpagination.EncodeCursor(pkgpagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	items := make([]EquipmentDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *equipmentFromModel(&rows[i]))
	}
	return &EquipmentList{Items: items, Cursor: next}, nil
}

func (s *service) UpdateEquipment(ctx context.Context, hospitalID, id uuid.UUID, req UpdateEquipmentRequest) (*EquipmentDTO, error) {
	if _, err := s.repo.FindEquipment(ctx, hospitalID, id); err != nil {
		return nil, notFoundOrInternal(err, "equipment")
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		fields["quantity"] = *req.Quantity
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid equipment status")
		}
		fields["status"] = *req.Status
	}

	if err := s.repo.UpdateEquipmentFields(ctx, hospitalID, id, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update equipment")
	}
	updated, err := s.repo.FindEquipment(ctx, hospitalID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload equipment")
	}
	return equipmentFromModel(updated), nil
}

func (s *service) DeleteEquipment(ctx context.Context, hospitalID, id uuid.UUID) error {
	if _, err := s.repo.FindEquipment(ctx, hospitalID, id); err != nil {
		return notFoundOrInternal(err, "equipment")
	}
	if err := s.repo.DeleteEquipment(ctx, hospitalID, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete equipment")
	}
	return nil
}

func (s *service) ListAlerts(ctx context.Context, hospitalID uuid.UUID) ([]AlertDTO, error) {
	rows, err := s.repo.ListAlerts(ctx, hospitalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list alerts")
	}
	out := make([]AlertDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *alertFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) MarkAlertRead(ctx context.Context, hospitalID, id uuid.UUID) error {
	affected, err := s.repo.MarkAlertRead(ctx, hospitalID, id, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark alert read")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")
	}
	return nil
}

func buildListQuery(params ListParams) (listQuery, error) {
	cursor, err := pkgpagination.ParseCursor(params.Cursor)
	if err != nil {
		return listQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return listQuery{
		hospitalID: params.HospitalID,
		limit:      pkgpagination.LimitWithBuffer(params.Limit),
		cursor:     cursor,
	}, nil
}

func notFoundOrInternal(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load "+entity)
}
