package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/config"
	"github.com/avalonhealth/carehub-backend/pkg/db"
	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
	"github.com/avalonhealth/carehub-backend/pkg/security"
)

// CreateRequest is the admin payload for provisioning a user of any role.
type CreateRequest struct {
	Email      string         `json:"email" validate:"required,email"`
	Password   string         `json:"password" validate:"required,min=8"`
	FirstName  string         `json:"first_name" validate:"required"`
	LastName   string         `json:"last_name" validate:"required"`
	Phone      *string        `json:"phone,omitempty"`
	Role       enums.UserRole `json:"role" validate:"required"`
	HospitalID *uuid.UUID     `json:"hospital_id,omitempty"`
}

// UpdateRequest carries the mutable user fields for the admin PATCH surface.
type UpdateRequest struct {
	FirstName  *string    `json:"first_name,omitempty"`
	LastName   *string    `json:"last_name,omitempty"`
	Phone      *string    `json:"phone,omitempty"`
	HospitalID *uuid.UUID `json:"hospital_id,omitempty"`
	IsActive   *bool      `json:"is_active,omitempty"`
}

// ListFilter narrows the admin user listing.
type ListFilter struct {
	HospitalID *uuid.UUID
	Role       *enums.UserRole
}

// Service defines the admin-facing user management operations.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*UserDTO, error)
	List(ctx context.Context, filter ListFilter) ([]UserDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*UserDTO, error)
}

type repository interface {
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, hospitalID *uuid.UUID, role *enums.UserRole) ([]models.User, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

type hospitalChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	Repo           repository
	Hospitals      hospitalChecker
	PasswordConfig config.PasswordConfig
}

type service struct {
	repo        repository
	hospitals   hospitalChecker
	passwordCfg config.PasswordConfig
}

// NewService constructs the user management service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	if params.Hospitals == nil {
		return nil, fmt.Errorf("hospital checker is required")
	}
	return &service{
		repo:        params.Repo,
		hospitals:   params.Hospitals,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !req.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	// Staff and patients always belong to a hospital; admins never do.
	if req.Role == enums.UserRoleAdmin && req.HospitalID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin users cannot be scoped to a hospital")
	}
	if req.Role != enums.UserRoleAdmin {
		if req.HospitalID == nil || *req.HospitalID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "hospital_id is required for staff and patient users")
		}
		ok, err := s.hospitals.Exists(ctx, *req.HospitalID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check hospital")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "hospital not found")
		}
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        req.Phone,
		Role:         req.Role,
		HospitalID:   req.HospitalID,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]UserDTO, error) {
	rows, err := s.repo.List(ctx, filter.HospitalID, filter.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	fields := map[string]any{}
	if req.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		fields["phone"] = *req.Phone
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if req.HospitalID != nil {
		if user.Role == enums.UserRoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin users cannot be scoped to a hospital")
		}
		ok, err := s.hospitals.Exists(ctx, *req.HospitalID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check hospital")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "hospital not found")
		}
		fields["hospital_id"] = *req.HospitalID
	}

	if len(fields) == 0 {
		return FromModel(user), nil
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
	}
	return FromModel(updated), nil
}
