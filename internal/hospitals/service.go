package hospitals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/internal/users"
	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
)

// CreateHospitalRequest is the admin payload for onboarding a hospital.
type CreateHospitalRequest struct {
	Name          string  `json:"name" validate:"required"`
	Address       *string `json:"address,omitempty"`
	ContactNumber *string `json:"contact_number,omitempty"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Description   *string `json:"description,omitempty"`
}

// UpdateHospitalRequest carries the mutable hospital fields.
type UpdateHospitalRequest struct {
	Name          *string `json:"name,omitempty"`
	Address       *string `json:"address,omitempty"`
	ContactNumber *string `json:"contact_number,omitempty"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Description   *string `json:"description,omitempty"`
}

// DepartmentRequest covers department create and update payloads.
type DepartmentRequest struct {
	Name string  `json:"name" validate:"required"`
	Head *string `json:"head,omitempty"`
}

// Service defines the hospital management operations.
type Service interface {
	Create(ctx context.Context, req CreateHospitalRequest) (*HospitalDTO, error)
	List(ctx context.Context) ([]HospitalDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*HospitalDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateHospitalRequest) (*HospitalDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetOverview(ctx context.Context, id uuid.UUID) (*Overview, error)
	CreateDepartment(ctx context.Context, hospitalID uuid.UUID, req DepartmentRequest) (*DepartmentDTO, error)
	ListDepartments(ctx context.Context, hospitalID uuid.UUID) ([]DepartmentDTO, error)
	UpdateDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID, req DepartmentRequest) (*DepartmentDTO, error)
	DeleteDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID) error
}

type repository interface {
	Create(ctx context.Context, hospital *models.Hospital) (*models.Hospital, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Hospital, error)
	List(ctx context.Context) ([]models.Hospital, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateDepartment(ctx context.Context, department *models.Department) (*models.Department, error)
	ListDepartments(ctx context.Context, hospitalID uuid.UUID) ([]models.Department, error)
	FindDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID) (*models.Department, error)
	UpdateDepartmentFields(ctx context.Context, hospitalID, departmentID uuid.UUID, fields map[string]any) error
	DeleteDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID) error
}

type userCounter interface {
	CountByHospital(ctx context.Context, hospitalID uuid.UUID, role enums.UserRole) (int64, error)
	LatestByHospital(ctx context.Context, hospitalID uuid.UUID, role enums.UserRole, limit int) ([]models.User, error)
}

type inventoryCounter interface {
	CountMedications(ctx context.Context, hospitalID uuid.UUID) (int64, error)
	CountLowStock(ctx context.Context, hospitalID uuid.UUID, threshold int) (int64, error)
}

// ServiceParams bundles the dependencies required to build a hospitals service.
type ServiceParams struct {
	Repo              repository
	Users             userCounter
	Inventory         inventoryCounter
	LowStockThreshold int
}

type service struct {
	repo              repository
	users             userCounter
	inventory         inventoryCounter
	lowStockThreshold int
}

// NewService constructs the hospital management service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("hospitals repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users counter is required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory counter is required")
	}
	threshold := params.LowStockThreshold
	if threshold <= 0 {
		threshold = 10
	}
	return &service{
		repo:              params.Repo,
		users:             params.Users,
		inventory:         params.Inventory,
		lowStockThreshold: threshold,
	}, nil
}

func (s *service) Create(ctx context.Context, req CreateHospitalRequest) (*HospitalDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	hospital, err := s.repo.Create(ctx, &models.Hospital{
		Name:          name,
		Address:       req.Address,
		ContactNumber: req.ContactNumber,
		Email:         req.Email,
		Description:   req.Description,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create hospital")
	}
	return fromModel(hospital), nil
}

func (s *service) List(ctx context.Context) ([]HospitalDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list hospitals")
	}
	out := make([]HospitalDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *fromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*HospitalDTO, error) {
	hospital, err := s.findHospital(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromModel(hospital), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateHospitalRequest) (*HospitalDTO, error) {
	if _, err := s.findHospital(ctx, id); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		fields["name"] = name
	}
	if req.Address != nil {
		fields["address"] = *req.Address
	}
	if req.ContactNumber != nil {
		fields["contact_number"] = *req.ContactNumber
	}
	if req.Email != nil {
		fields["email"] = *req.Email
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update hospital")
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload hospital")
	}
	return fromModel(updated), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.findHospital(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete hospital")
	}
	return nil
}

func (s *service) GetOverview(ctx context.Context, id uuid.UUID) (*Overview, error) {
	hospital, err := s.findHospital(ctx, id)
	if err != nil {
		return nil, err
	}

	staffCount, err := s.users.CountByHospital(ctx, id, enums.UserRoleStaff)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count staff")
	}
	patientCount, err := s.users.CountByHospital(ctx, id, enums.UserRolePatient)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count patients")
	}
	departments, err := s.repo.ListDepartments(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list departments")
	}
	medicationCount, err := s.inventory.CountMedications(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count medications")
	}
	lowStockCount, err := s.inventory.CountLowStock(ctx, id, s.lowStockThreshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count low stock")
	}
	latest, err := s.users.LatestByHospital(ctx, id, enums.UserRolePatient, 5)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load latest patients")
	}

	latestDTOs := make([]users.UserDTO, 0, len(latest))
	for i := range latest {
		latestDTOs = append(latestDTOs, *users.FromModel(&latest[i]))
	}

	return &Overview{
		Hospital:        *fromModel(hospital),
		StaffCount:      staffCount,
		PatientCount:    patientCount,
		DepartmentCount: int64(len(departments)),
		MedicationCount: medicationCount,
		LowStockCount:   lowStockCount,
		LatestPatients:  latestDTOs,
	}, nil
}

func (s *service) CreateDepartment(ctx context.Context, hospitalID uuid.UUID, req DepartmentRequest) (*DepartmentDTO, error) {
	if _, err := s.findHospital(ctx, hospitalID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	department, err := s.repo.CreateDepartment(ctx, &models.Department{
		HospitalID: hospitalID,
		Name:       name,
		Head:       req.Head,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create department")
	}
	return departmentFromModel(department), nil
}

func (s *service) ListDepartments(ctx context.Context, hospitalID uuid.UUID) ([]DepartmentDTO, error) {
	if _, err := s.findHospital(ctx, hospitalID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListDepartments(ctx, hospitalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list departments")
	}
	out := make([]DepartmentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *departmentFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID, req DepartmentRequest) (*DepartmentDTO, error) {
	if _, err := s.repo.FindDepartment(ctx, hospitalID, departmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "department not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load department")
	}

	fields := map[string]any{}
	if name := strings.TrimSpace(req.Name); name != "" {
		fields["name"] = name
	}
	if req.Head != nil {
		fields["head"] = *req.Head
	}
	if err := s.repo.UpdateDepartmentFields(ctx, hospitalID, departmentID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update department")
	}

	updated, err := s.repo.FindDepartment(ctx, hospitalID, departmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload department")
	}
	return departmentFromModel(updated), nil
}

func (s *service) DeleteDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID) error {
	if _, err := s.repo.FindDepartment(ctx, hospitalID, departmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "department not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load department")
	}
	if err := s.repo.DeleteDepartment(ctx, hospitalID, departmentID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete department")
	}
	return nil
}

func (s *service) findHospital(ctx context.Context, id uuid.UUID) (*models.Hospital, error) {
	hospital, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "hospital not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load hospital")
	}
	return hospital, nil
}
