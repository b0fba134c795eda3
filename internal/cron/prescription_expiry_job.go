package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/avalonhealth/carehub-backend/pkg/logger"
)

const defaultPrescriptionTTL = 30 * 24 * time.Hour

type prescriptionExpirer interface {
	ExpirePrescriptions(ctx context.Context, cutoff time.Time) (int64, error)
}

// PrescriptionExpiryJobParams configure the prescription expiry job.
type PrescriptionExpiryJobParams struct {
	Logger *logger.Logger
	Repo   prescriptionExpirer
	TTL    time.Duration
}

// NewPrescriptionExpiryJob builds the job that deactivates prescriptions
// older than the configured TTL.
func NewPrescriptionExpiryJob(params PrescriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("pharmacy repository required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPrescriptionTTL
	}
	return &prescriptionExpiryJob{
		logg: params.Logger,
		repo: params.Repo,
		ttl:  ttl,
		now:  time.Now,
	}, nil
}

type prescriptionExpiryJob struct {
	logg *logger.Logger
	repo prescriptionExpirer
	ttl  time.Duration
	now  func() time.Time
}

func (j *prescriptionExpiryJob) Name() string { return "prescription-expiry" }

func (j *prescriptionExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	expired, err := j.repo.ExpirePrescriptions(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expire prescriptions: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": expired})
	j.logg.Info(logCtx, "prescription expiry loop complete")
	return nil
}
