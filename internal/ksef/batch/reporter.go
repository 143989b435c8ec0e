package batch

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/marlink/accountant/internal/submissions"
	"github.com/marlink/accountant/pkg/db/models"
	pkgerrors "github.com/marlink/accountant/pkg/errors"
	"github.com/marlink/accountant/pkg/logger"
	"github.com/marlink/accountant/pkg/metrics"
)

const (
	defaultFailThreshold = 0.2
	alertMessage         = "Przekroczony próg błędów"
)

// ReporterParams configure the run reporter.
type ReporterParams struct {
	Logger    *logger.Logger
	Repo      submissions.Repository
	Metrics   *metrics.BatchJobMetrics
	Job       string
	Threshold float64
}

// Reporter persists run aggregates and raises a threshold alert when the
// failure ratio crosses the configured line. Both writes are best effort:
// a reporting failure is logged and never changes the run outcome.
type Reporter struct {
	logg      *logger.Logger
	repo      submissions.Repository
	metrics   *metrics.BatchJobMetrics
	job       string
	threshold float64
}

// NewReporter builds the run reporter.
func NewReporter(params ReporterParams) (*Reporter, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	job := params.Job
	if job == "" {
		job = JobName
	}
	// Zero is a meaningful setting (any failure alerts); only a negative
	// value selects the default.
	threshold := params.Threshold
	if threshold < 0 {
		threshold = defaultFailThreshold
	}
	return &Reporter{
		logg:      params.Logger,
		repo:      params.Repo,
		metrics:   params.Metrics,
		job:       job,
		threshold: threshold,
	}, nil
}

// Report writes the run's metrics record and, when warranted, one alert.
func (r *Reporter) Report(ctx context.Context, run RunMetrics) {
	r.metrics.AddRun(r.job, run.Processed, run.Accepted, run.Failed)

	if err := r.repo.InsertJobMetric(ctx, &models.JobMetric{
		ID:        uuid.New(),
		Job:       r.job,
		Processed: run.Processed,
		Accepted:  run.Accepted,
		Failed:    run.Failed,
	}); err != nil {
		r.logg.Error(ctx, "failed to record run metrics",
			pkgerrors.Wrap(pkgerrors.CodeReporting, err, "inserting job metrics"))
	}

	if run.Processed == 0 {
		return
	}
	ratio := run.FailureRatio()
	if ratio <= r.threshold {
		return
	}

	r.metrics.IncAlert(r.job)
	if err := r.repo.InsertAlert(ctx, &models.Alert{
		ID:        uuid.New(),
		Job:       r.job,
		Ratio:     ratio,
		Processed: run.Processed,
		Failed:    run.Failed,
		Message:   alertMessage,
	}); err != nil {
		r.logg.Error(ctx, "failed to record failure alert",
			pkgerrors.Wrap(pkgerrors.CodeReporting, err, "inserting alert"))
	}
}
