package records

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
)

type dbUserDirectory struct {
	db *gorm.DB
}

func (d dbUserDirectory) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type fixture struct {
	db         *gorm.DB
	svc        Service
	hospitalID uuid.UUID
	patientID  uuid.UUID
	staff      Actor
	admin      Actor
	patient    Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:records_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Hospital{},
		&models.PatientProfile{},
		&models.MedicalRecord{},
		&models.Comment{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

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
		Repo:  NewRepository(db),
		Users: dbUserDirectory{db: db},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &fixture{
		db:         db,
		svc:        svc,
		hospitalID: hospital.ID,
		patientID:  patient.ID,
		staff:      Actor{UserID: staff.ID, HospitalID: &hospital.ID, Role: enums.UserRoleStaff},
		admin:      Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin},
		patient:    Actor{UserID: patient.ID, HospitalID: &hospital.ID, Role: enums.UserRolePatient},
	}
}

func (f *fixture) createProfile(t *testing.T) *ProfileDTO {
	t.Helper()
	profile, err := f.svc.CreateProfile(context.Background(), f.staff, CreateProfileRequest{
		UserID:      f.patientID,
		DateOfBirth: time.Date(1990, 6, 1, 0, 0, 0, 0, time.UTC),
		Gender:      enums.GenderFemale,
	})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return profile
}

func TestCreateProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	profile := f.createProfile(t)

	if profile.UserID != f.patientID {
		t.Fatal("profile must attach to the patient user")
	}

	// A second profile for the same user must be refused.
	_, err := f.svc.CreateProfile(context.Background(), f.staff, CreateProfileRequest{
		UserID:      f.patientID,
		DateOfBirth: time.Date(1990, 6, 1, 0, 0, 0, 0, time.UTC),
		Gender:      enums.GenderFemale,
	})
	if err == nil {
		t.Fatal("expected duplicate profile to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestCreateProfileRejectsNonPatient(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.CreateProfile(context.Background(), f.staff, CreateProfileRequest{
		UserID:      f.staff.UserID,
		DateOfBirth: time.Date(1990, 6, 1, 0, 0, 0, 0, time.UTC),
		Gender:      enums.GenderMale,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestStaffScopedToOwnHospital(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	otherHospital := uuid.New()
	foreignStaff := Actor{UserID: uuid.New(), HospitalID: &otherHospital, Role: enums.UserRoleStaff}

	_, err := f.svc.CreateProfile(context.Background(), foreignStaff, CreateProfileRequest{
		UserID:      f.patientID,
		DateOfBirth: time.Date(1990, 6, 1, 0, 0, 0, 0, time.UTC),
		Gender:      enums.GenderOther,
	})
	if err == nil {
		t.Fatal("expected scope failure")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("scope failures must read as NOT_FOUND, got %v", err)
	}
}

func TestPatientReadsOwnProfileOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	profile := f.createProfile(t)

	own, err := f.svc.GetOwnProfile(context.Background(), f.patient)
	if err != nil {
		t.Fatalf("get own profile: %v", err)
	}
	if own.ID != profile.ID {
		t.Fatal("expected own profile")
	}

	stranger := Actor{UserID: uuid.New(), HospitalID: &f.hospitalID, Role: enums.UserRolePatient}
	_, err = f.svc.GetProfile(context.Background(), stranger, profile.ID)
	if err == nil {
		t.Fatal("expected foreign patient to be refused")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	// Patients cannot mutate clinical profiles.
	phone := "555-0101"
	_, err = f.svc.UpdateProfile(context.Background(), f.patient, profile.ID, UpdateProfileRequest{PhoneNumber: &phone})
	if err == nil {
		t.Fatal("expected patient update to be refused")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	profile := f.createProfile(t)

	allergies := "penicillin"
	bloodType := enums.BloodTypeOPos
	updated, err := f.svc.UpdateProfile(context.Background(), f.staff, profile.ID, UpdateProfileRequest{
		Allergies: &allergies,
		BloodType: &bloodType,
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Allergies == nil || *updated.Allergies != "penicillin" {
		t.Fatal("expected allergies to be set")
	}
	if updated.BloodType == nil || *updated.BloodType != enums.BloodTypeOPos {
		t.Fatal("expected blood type to be set")
	}
	if updated.Gender != profile.Gender {
		t.Fatal("untouched fields must survive a partial update")
	}
}

func TestRecordLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	profile := f.createProfile(t)
	ctx := context.Background()

	record, err := f.svc.CreateRecord(ctx, f.staff, CreateRecordRequest{
		ProfileID:   profile.ID,
		Description: "annual checkup",
	})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	if record.RecordDate.IsZero() {
		t.Fatal("record date must default to now")
	}

	desc := "annual checkup, bloodwork ordered"
	updated, err := f.svc.UpdateRecord(ctx, f.staff, record.ID, UpdateRecordRequest{Description: &desc})
	if err != nil {
		t.Fatalf("update record: %v", err)
	}
	if updated.Description != desc {
		t.Fatal("expected updated description")
	}

	rows, err := f.svc.ListRecords(ctx, f.patient, profile.ID)
	if err != nil {
		t.Fatalf("patient list records: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one record, got %d", len(rows))
	}

	if err := f.svc.DeleteRecord(ctx, f.staff, record.ID); err != nil {
		t.Fatalf("delete record: %v", err)
	}
	rows, err = f.svc.ListRecords(ctx, f.staff, profile.ID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no records after delete, got %d", len(rows))
	}
}

func TestComments(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	profile := f.createProfile(t)
	ctx := context.Background()

	record, err := f.svc.CreateRecord(ctx, f.staff, CreateRecordRequest{
		ProfileID:   profile.ID,
		Description: "follow up",
	})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	// Both the treating staff and the patient may comment.
	if _, err := f.svc.AddComment(ctx, f.staff, record.ID, CreateCommentRequest{Content: "schedule imaging"}); err != nil {
		t.Fatalf("staff comment: %v", err)
	}
	if _, err := f.svc.AddComment(ctx, f.patient, record.ID, CreateCommentRequest{Content: "available mornings"}); err != nil {
		t.Fatalf("patient comment: %v", err)
	}

	comments, err := f.svc.ListComments(ctx, f.patient, record.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected two comments, got %d", len(comments))
	}
	if comments[0].Content != "schedule imaging" {
		t.Fatal("comments must come back oldest first")
	}

	stranger := Actor{UserID: uuid.New(), HospitalID: &f.hospitalID, Role: enums.UserRolePatient}
	if _, err := f.svc.AddComment(ctx, stranger, record.ID, CreateCommentRequest{Content: "nope"}); err == nil {
		t.Fatal("expected foreign patient comment to be refused")
	}
}
