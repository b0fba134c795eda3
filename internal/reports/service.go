package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
)

// Service exposes hospital-scoped report management and the purchase
// summary read surface.
type Service interface {
	Create(ctx context.Context, hospitalID, generatedBy uuid.UUID, req CreateRequest) (*ReportDTO, error)
	Get(ctx context.Context, hospitalID, id uuid.UUID) (*ReportDTO, error)
	List(ctx context.Context, hospitalID uuid.UUID) ([]ReportDTO, error)
	Update(ctx context.Context, hospitalID, id uuid.UUID, req UpdateRequest) (*ReportDTO, error)
	Delete(ctx context.Context, hospitalID, id uuid.UUID) error
	PurchaseSummaries(ctx context.Context, hospitalID uuid.UUID, limit int) ([]SummaryDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a reports service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, hospitalID, generatedBy uuid.UUID, req CreateRequest) (*ReportDTO, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	report, err := s.repo.Create(ctx, &models.Report{
		HospitalID:  hospitalID,
		Title:       req.Title,
		GeneratedBy: &generatedBy,
		Description: req.Description,
		FileURL:     req.FileURL,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create report")
	}
	return fromModel(report), nil
}

func (s *service) Get(ctx context.Context, hospitalID, id uuid.UUID) (*ReportDTO, error) {
	report, err := s.repo.Find(ctx, hospitalID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load report")
	}
	return fromModel(report), nil
}

func (s *service) List(ctx context.Context, hospitalID uuid.UUID) ([]ReportDTO, error) {
	rows, err := s.repo.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reports")
	}
	out := make([]ReportDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *fromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, hospitalID, id uuid.UUID, req UpdateRequest) (*ReportDTO, error) {
	fields := map[string]any{}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
		}
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.FileURL != nil {
		fields["file_url"] = *req.FileURL
	}
	if len(fields) == 0 {
		return s.Get(ctx, hospitalID, id)
	}

	if err := s.repo.UpdateFields(ctx, hospitalID, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update report")
	}
	return s.Get(ctx, hospitalID, id)
}

func (s *service) Delete(ctx context.Context, hospitalID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, hospitalID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete report")
	}
	return nil
}

func (s *service) PurchaseSummaries(ctx context.Context, hospitalID uuid.UUID, limit int) ([]SummaryDTO, error) {
	rows, err := s.repo.ListSummaries(ctx, hospitalID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list purchase summaries")
	}
	out := make([]SummaryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, summaryFromModel(&rows[i]))
	}
	return out, nil
}
