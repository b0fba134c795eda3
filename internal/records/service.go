package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
)

// Actor identifies the caller for scope decisions.
type Actor struct {
	UserID     uuid.UUID
	HospitalID *uuid.UUID
	Role       enums.UserRole
}

// Service exposes patient profiles, medical records, and record comments.
type Service interface {
	CreateProfile(ctx context.Context, actor Actor, req CreateProfileRequest) (*ProfileDTO, error)
	GetProfile(ctx context.Context, actor Actor, profileID uuid.UUID) (*ProfileDTO, error)
	GetOwnProfile(ctx context.Context, actor Actor) (*ProfileDTO, error)
	ListProfiles(ctx context.Context, actor Actor, hospitalID uuid.UUID) ([]ProfileDTO, error)
	UpdateProfile(ctx context.Context, actor Actor, profileID uuid.UUID, req UpdateProfileRequest) (*ProfileDTO, error)

	CreateRecord(ctx context.Context, actor Actor, req CreateRecordRequest) (*RecordDTO, error)
	ListRecords(ctx context.Context, actor Actor, profileID uuid.UUID) ([]RecordDTO, error)
	UpdateRecord(ctx context.Context, actor Actor, recordID uuid.UUID, req UpdateRecordRequest) (*RecordDTO, error)
	DeleteRecord(ctx context.Context, actor Actor, recordID uuid.UUID) error

	AddComment(ctx context.Context, actor Actor, recordID uuid.UUID, req CreateCommentRequest) (*CommentDTO, error)
	ListComments(ctx context.Context, actor Actor, recordID uuid.UUID) ([]CommentDTO, error)
}

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	repo  *Repository
	users userDirectory
}

// ServiceParams bundles the dependencies for the records service.
type ServiceParams struct {
	Repo  *Repository
	Users userDirectory
}

// NewService constructs a records service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory is required")
	}
	return &service{repo: params.Repo, users: params.Users}, nil
}

func (s *service) CreateProfile(ctx context.Context, actor Actor, req CreateProfileRequest) (*ProfileDTO, error) {
	if !req.Gender.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid gender")
	}
	if req.BloodType != nil && !req.BloodType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid blood type")
	}
	if req.DateOfBirth.After(time.Now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date_of_birth must be in the past")
	}

	patient, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "patient not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup patient")
	}
	if patient.Role != enums.UserRolePatient {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profiles attach to patient users")
	}
	if err := s.requireHospitalScope(actor, patient.HospitalID); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindProfileByUserID(ctx, req.UserID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "profile already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check profile")
	}

	profile, err := s.repo.CreateProfile(ctx, &models.PatientProfile{
		UserID:                   req.UserID,
		DateOfBirth:              req.DateOfBirth,
		Gender:                   req.Gender,
		BloodType:                req.BloodType,
		PhoneNumber:              req.PhoneNumber,
		Address:                  req.Address,
		Allergies:                req.Allergies,
		ChronicConditions:        req.ChronicConditions,
		Medications:              req.Medications,
		EmergencyContactName:     req.EmergencyContactName,
		EmergencyContactNumber:   req.EmergencyContactNumber,
		EmergencyContactRelation: req.EmergencyContactRelation,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create profile")
	}
	return profileFromModel(profile), nil
}

func (s *service) GetProfile(ctx context.Context, actor Actor, profileID uuid.UUID) (*ProfileDTO, error) {
	profile, err := s.visibleProfile(ctx, actor, profileID)
	if err != nil {
		return nil, err
	}
	return profileFromModel(profile), nil
}

func (s *service) GetOwnProfile(ctx context.Context, actor Actor) (*ProfileDTO, error) {
	profile, err := s.repo.FindProfileByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
	}
	return profileFromModel(profile), nil
}

func (s *service) ListProfiles(ctx context.Context, actor Actor, hospitalID uuid.UUID) ([]ProfileDTO, error) {
	if err := s.requireHospitalScope(actor, &hospitalID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListProfilesByHospital(ctx, hospitalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list profiles")
	}
	out := make([]ProfileDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *profileFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateProfile(ctx context.Context, actor Actor, profileID uuid.UUID, req UpdateProfileRequest) (*ProfileDTO, error) {
	profile, err := s.findProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if err := s.requireProfileScope(ctx, actor, profile); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.DateOfBirth != nil {
		if req.DateOfBirth.After(time.Now()) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "date_of_birth must be in the past")
		}
		fields["date_of_birth"] = *req.DateOfBirth
	}
	if req.Gender != nil {
		if !req.Gender.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid gender")
		}
		fields["gender"] = *req.Gender
	}
	if req.BloodType != nil {
		if !req.BloodType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid blood type")
		}
		fields["blood_type"] = *req.BloodType
	}
	if req.PhoneNumber != nil {
		fields["phone_number"] = *req.PhoneNumber
	}
	if req.Address != nil {
		fields["address"] = *req.Address
	}
	if req.Allergies != nil {
		fields["allergies"] = *req.Allergies
	}
	if req.ChronicConditions != nil {
		fields["chronic_conditions"] = *req.ChronicConditions
	}
	if req.Medications != nil {
		fields["medications"] = *req.Medications
	}
	if req.EmergencyContactName != nil {
		fields["emergency_contact_name"] = *req.EmergencyContactName
	}
	if req.EmergencyContactNumber != nil {
		fields["emergency_contact_number"] = *req.EmergencyContactNumber
	}
	if req.EmergencyContactRelation != nil {
		fields["emergency_contact_relation"] = *req.EmergencyContactRelation
	}
	if len(fields) == 0 {
		return profileFromModel(profile), nil
	}

	if err := s.repo.UpdateProfileFields(ctx, profileID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	updated, err := s.findProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return profileFromModel(updated), nil
}

func (s *service) CreateRecord(ctx context.Context, actor Actor, req CreateRecordRequest) (*RecordDTO, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	profile, err := s.findProfile(ctx, req.ProfileID)
	if err != nil {
		return nil, err
	}
	if err := s.requireProfileScope(ctx, actor, profile); err != nil {
		return nil, err
	}

	recordDate := time.Now().UTC()
	if req.RecordDate != nil {
		recordDate = req.RecordDate.UTC()
	}
	record, err := s.repo.CreateRecord(ctx, &models.MedicalRecord{
		ProfileID:     req.ProfileID,
		Description:   req.Description,
		AttachmentURL: req.AttachmentURL,
		RecordDate:    recordDate,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create record")
	}
	return recordFromModel(record), nil
}

func (s *service) ListRecords(ctx context.Context, actor Actor, profileID uuid.UUID) ([]RecordDTO, error) {
	if _, err := s.visibleProfile(ctx, actor, profileID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListRecordsByProfile(ctx, profileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list records")
	}
	out := make([]RecordDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *recordFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateRecord(ctx context.Context, actor Actor, recordID uuid.UUID, req UpdateRecordRequest) (*RecordDTO, error) {
	record, profile, err := s.findRecordWithProfile(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := s.requireProfileScope(ctx, actor, profile); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
		}
		fields["description"] = *req.Description
	}
	if req.AttachmentURL != nil {
		fields["attachment_url"] = *req.AttachmentURL
	}
	if req.RecordDate != nil {
		fields["record_date"] = req.RecordDate.UTC()
	}
	if len(fields) == 0 {
		return recordFromModel(record), nil
	}

	if err := s.repo.UpdateRecordFields(ctx, recordID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update record")
	}
	updated, err := s.repo.FindRecord(ctx, recordID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload record")
	}
	return recordFromModel(updated), nil
}

func (s *service) DeleteRecord(ctx context.Context, actor Actor, recordID uuid.UUID) error {
	_, profile, err := s.findRecordWithProfile(ctx, recordID)
	if err != nil {
		return err
	}
	if err := s.requireProfileScope(ctx, actor, profile); err != nil {
		return err
	}
	if err := s.repo.DeleteRecord(ctx, recordID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "record not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete record")
	}
	return nil
}

func (s *service) AddComment(ctx context.Context, actor Actor, recordID uuid.UUID, req CreateCommentRequest) (*CommentDTO, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is required")
	}
	_, profile, err := s.findRecordWithProfile(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRecordVisibility(ctx, actor, profile); err != nil {
		return nil, err
	}

	comment, err := s.repo.CreateComment(ctx, &models.Comment{
		RecordID: recordID,
		AuthorID: actor.UserID,
		Content:  req.Content,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create comment")
	}
	return commentFromModel(comment), nil
}

func (s *service) ListComments(ctx context.Context, actor Actor, recordID uuid.UUID) ([]CommentDTO, error) {
	_, profile, err := s.findRecordWithProfile(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRecordVisibility(ctx, actor, profile); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListComments(ctx, recordID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list comments")
	}
	out := make([]CommentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *commentFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) findProfile(ctx context.Context, id uuid.UUID) (*models.PatientProfile, error) {
	profile, err := s.repo.FindProfile(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
	}
	return profile, nil
}

func (s *service) findRecordWithProfile(ctx context.Context, recordID uuid.UUID) (*models.MedicalRecord, *models.PatientProfile, error) {
	record, err := s.repo.FindRecord(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "record not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load record")
	}
	profile, err := s.findProfile(ctx, record.ProfileID)
	if err != nil {
		return nil, nil, err
	}
	return record, profile, nil
}

// visibleProfile loads a profile the actor may read. Patients see only
// their own profile; staff see patients of their hospital.
func (s *service) visibleProfile(ctx context.Context, actor Actor, profileID uuid.UUID) (*models.PatientProfile, error) {
	profile, err := s.findProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRecordVisibility(ctx, actor, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// requireProfileScope gates write access: admins anywhere, staff within
// their hospital, patients never.
func (s *service) requireProfileScope(ctx context.Context, actor Actor, profile *models.PatientProfile) error {
	if actor.Role == enums.UserRolePatient {
		return pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	owner, err := s.users.FindByID(ctx, profile.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup profile owner")
	}
	return s.requireHospitalScope(actor, owner.HospitalID)
}

// requireRecordVisibility additionally lets patients read their own data.
func (s *service) requireRecordVisibility(ctx context.Context, actor Actor, profile *models.PatientProfile) error {
	if actor.Role == enums.UserRolePatient {
		if profile.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "record not found")
		}
		return nil
	}
	owner, err := s.users.FindByID(ctx, profile.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup profile owner")
	}
	return s.requireHospitalScope(actor, owner.HospitalID)
}

func (s *service) requireHospitalScope(actor Actor, hospitalID *uuid.UUID) error {
	if actor.Role == enums.UserRoleAdmin {
		return nil
	}
	if actor.HospitalID == nil || hospitalID == nil || *actor.HospitalID != *hospitalID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "patient not found")
	}
	return nil
}
