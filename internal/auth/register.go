package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/internal/hospitals"
	"github.com/avalonhealth/carehub-backend/internal/users"
	"github.com/avalonhealth/carehub-backend/pkg/config"
	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
	"github.com/avalonhealth/carehub-backend/pkg/security"
)

// RegisterService handles the patient self-registration transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

type registerTxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registerUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

type registerHospitalRepository interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
// The repo factories rebind repositories to the registration transaction.
type RegisterServiceParams struct {
	TxRunner            registerTxRunner
	UserRepoFactory     func(tx *gorm.DB) registerUserRepository
	HospitalRepoFactory func(tx *gorm.DB) registerHospitalRepository
	PasswordConfig      config.PasswordConfig
}

type registerService struct {
	db           registerTxRunner
	userRepo     func(tx *gorm.DB) registerUserRepository
	hospitalRepo func(tx *gorm.DB) registerHospitalRepository
	passwordCfg  config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.UserRepoFactory == nil {
		params.UserRepoFactory = func(tx *gorm.DB) registerUserRepository {
			return users.NewRepository(tx)
		}
	}
	if params.HospitalRepoFactory == nil {
		params.HospitalRepoFactory = func(tx *gorm.DB) registerHospitalRepository {
			return hospitals.NewRepository(tx)
		}
	}
	return &registerService{
		db:           params.TxRunner,
		userRepo:     params.UserRepoFactory,
		hospitalRepo: params.HospitalRepoFactory,
		passwordCfg:  params.PasswordConfig,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if req.HospitalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hospital_id is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.userRepo(tx)
		hospitalRepo := s.hospitalRepo(tx)

		exists, err := hospitalRepo.Exists(ctx, req.HospitalID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check hospital")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeValidation, "hospital not found")
		}

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		hospitalID := req.HospitalID
		created, err = userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Phone:        req.Phone,
			Role:         enums.UserRolePatient,
			HospitalID:   &hospitalID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return users.FromModel(created), nil
}
