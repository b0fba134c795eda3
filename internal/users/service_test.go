package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/config"
	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
	"github.com/avalonhealth/carehub-backend/pkg/security"
)

type stubUserRepo struct {
	byID    map[uuid.UUID]*models.User
	byEmail map[string]*models.User
	updates map[uuid.UUID]map[string]any
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byID:    map[uuid.UUID]*models.User{},
		byEmail: map[string]*models.User{},
		updates: map[uuid.UUID]map[string]any{},
	}
}

func (s *stubUserRepo) add(user *models.User) {
	s.byID[user.ID] = user
	s.byEmail[user.Email] = user
}

func (s *stubUserRepo) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.ID = uuid.New()
	s.add(user)
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) List(ctx context.Context, hospitalID *uuid.UUID, role *enums.UserRole) ([]models.User, error) {
	out := []models.User{}
	for _, user := range s.byID {
		if hospitalID != nil && (user.HospitalID == nil || *user.HospitalID != *hospitalID) {
			continue
		}
		if role != nil && user.Role != *role {
			continue
		}
		out = append(out, *user)
	}
	return out, nil
}

func (s *stubUserRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	s.updates[id] = fields
	return nil
}

type stubHospitalChecker struct {
	known map[uuid.UUID]bool
}

func (s *stubHospitalChecker) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.known[id], nil
}

type usersTestSetup struct {
	service    Service
	repo       *stubUserRepo
	hospitalID uuid.UUID
}

func newUsersTestSetup(t *testing.T) *usersTestSetup {
	t.Helper()
	repo := newStubUserRepo()
	hospitalID := uuid.New()
	svc, err := NewService(ServiceParams{
		Repo:           repo,
		Hospitals:      &stubHospitalChecker{known: map[uuid.UUID]bool{hospitalID: true}},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &usersTestSetup{service: svc, repo: repo, hospitalID: hospitalID}
}

func sampleCreateRequest(email string, role enums.UserRole, hospitalID *uuid.UUID) CreateRequest {
	return CreateRequest{
		Email:      email,
		Password:   "s3cretpass",
		FirstName:  "Jamie",
		LastName:   "Rivera",
		Role:       role,
		HospitalID: hospitalID,
	}
}

func TestCreateNormalizesEmailAndHashesPassword(t *testing.T) {
	t.Parallel()

	setup := newUsersTestSetup(t)
	ctx := context.Background()

	dto, err := setup.service.Create(ctx, sampleCreateRequest("  Jamie@Example.COM ", enums.UserRoleStaff, &setup.hospitalID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dto.Email != "jamie@example.com" {
		t.Fatalf("expected lowercased email, got %q", dto.Email)
	}

	stored, ok := setup.repo.byEmail["jamie@example.com"]
	if !ok {
		t.Fatal("user not persisted under normalized email")
	}
	if stored.PasswordHash == "s3cretpass" {
		t.Fatal("password stored in plaintext")
	}
	match, err := security.VerifyPassword("s3cretpass", stored.PasswordHash)
	if err != nil || !match {
		t.Fatalf("stored hash does not verify: match=%v err=%v", match, err)
	}
}

func TestCreateStaffRequiresHospital(t *testing.T) {
	t.Parallel()

	setup := newUsersTestSetup(t)
	_, err := setup.service.Create(context.Background(), sampleCreateRequest("staff@example.com", enums.UserRoleStaff, nil))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateAdminRejectsHospitalScope(t *testing.T) {
	t.Parallel()

	setup := newUsersTestSetup(t)
	_, err := setup.service.Create(context.Background(), sampleCreateRequest("admin@example.com", enums.UserRoleAdmin, &setup.hospitalID))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateUnknownHospital(t *testing.T) {
	t.Parallel()

	setup := newUsersTestSetup(t)
	missing := uuid.New()
	_, err := setup.service.Create(context.Background(), sampleCreateRequest("patient@example.com", enums.UserRolePatient, &missing))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	t.Parallel()

	setup := newUsersTestSetup(t)
	ctx := context.Background()
	if _, err := setup.service.Create(ctx, sampleCreateRequest("dupe@example.com", enums.UserRoleStaff, &setup.hospitalID)); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := setup.service.Create(ctx, sampleCreateRequest("DUPE@example.com", enums.UserRolePatient, &setup.hospitalID))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestUpdateAdminCannotGainHospital(t *testing.T) {
	t.Parallel()

	setup := newUsersTestSetup(t)
	admin := &models.User{
		ID:           uuid.New(),
		Email:        "root@example.com",
		PasswordHash: "x",
		FirstName:    "Root",
		LastName:     "Admin",
		Role:         enums.UserRoleAdmin,
		IsActive:     true,
	}
	setup.repo.add(admin)

	_, err := setup.service.Update(context.Background(), admin.ID, UpdateRequest{HospitalID: &setup.hospitalID})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateMissingUser(t *testing.T) {
	t.Parallel()

	setup := newUsersTestSetup(t)
	name := "Robin"
	_, err := setup.service.Update(context.Background(), uuid.New(), UpdateRequest{FirstName: &name})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestListFiltersByRole(t *testing.T) {
	t.Parallel()

	setup := newUsersTestSetup(t)
	staff := &models.User{
		ID:         uuid.New(),
		Email:      "nurse@example.com",
		FirstName:  "Noa",
		LastName:   "Lane",
		Role:       enums.UserRoleStaff,
		HospitalID: &setup.hospitalID,
	}
	patient := &models.User{
		ID:         uuid.New(),
		Email:      "pat@example.com",
		FirstName:  "Pat",
		LastName:   "Ent",
		Role:       enums.UserRolePatient,
		HospitalID: &setup.hospitalID,
	}
	setup.repo.add(staff)
	setup.repo.add(patient)

	role := enums.UserRoleStaff
	out, err := setup.service.List(context.Background(), ListFilter{Role: &role})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].Email != "nurse@example.com" {
		t.Fatalf("expected only staff user, got %+v", out)
	}
}
