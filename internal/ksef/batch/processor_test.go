package batch

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/marlink/accountant/internal/ksef/client"
	"github.com/marlink/accountant/internal/ksef/retry"
	"github.com/marlink/accountant/internal/submissions"
	"github.com/marlink/accountant/pkg/db/models"
	"github.com/marlink/accountant/pkg/enums"
	"github.com/marlink/accountant/pkg/logger"
)

type fakeRepo struct {
	pending  []models.KsefSubmission
	invoices map[uuid.UUID]*models.Invoice
	items    map[uuid.UUID][]models.InvoiceItem

	outcomes map[uuid.UUID]submissions.Outcome
	metrics  []*models.JobMetric
	alerts   []*models.Alert

	listErr   error
	recordErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		invoices: make(map[uuid.UUID]*models.Invoice),
		items:    make(map[uuid.UUID][]models.InvoiceItem),
		outcomes: make(map[uuid.UUID]submissions.Outcome),
	}
}

func (f *fakeRepo) ListPending(ctx context.Context, limit int) ([]models.KsefSubmission, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit < len(f.pending) {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeRepo) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.KsefSubmission, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) Create(ctx context.Context, submission *models.KsefSubmission) (*models.KsefSubmission, error) {
	return submission, nil
}

func (f *fakeRepo) Requeue(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeRepo) RecordOutcome(ctx context.Context, id uuid.UUID, outcome submissions.Outcome) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.outcomes[id] = outcome
	return nil
}

func (f *fakeRepo) FindInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, ok := f.invoices[invoiceID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return invoice, nil
}

func (f *fakeRepo) FindInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceItem, error) {
	return f.items[invoiceID], nil
}

func (f *fakeRepo) InsertJobMetric(ctx context.Context, metric *models.JobMetric) error {
	f.metrics = append(f.metrics, metric)
	return nil
}

func (f *fakeRepo) InsertAlert(ctx context.Context, alert *models.Alert) error {
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeRepo) addPending(t *testing.T) models.KsefSubmission {
	t.Helper()
	invoiceID := uuid.New()
	f.invoices[invoiceID] = &models.Invoice{
		ID:        invoiceID,
		Number:    "FV/2026/03/007",
		IssueDate: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
		Currency:  "PLN",
	}
	f.items[invoiceID] = []models.InvoiceItem{{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		Name:      "Usługa",
	}}
	submission := models.KsefSubmission{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		Status:    enums.SubmissionStatusQueued,
	}
	f.pending = append(f.pending, submission)
	return submission
}

type fakeSubmitter struct {
	fallback func(invoiceID string) (string, error)
	calls    int
}

func (f *fakeSubmitter) Submit(ctx context.Context, invoiceID string, document []byte) (string, error) {
	f.calls++
	if f.fallback != nil {
		return f.fallback(invoiceID)
	}
	return "KSEF-OK", nil
}

func newTestProcessor(t *testing.T, repo *fakeRepo, submitter Submitter) *Processor {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	reporter, err := NewReporter(ReporterParams{
		Logger:    logg,
		Repo:      repo,
		Threshold: 0.2,
	})
	require.NoError(t, err)
	processor, err := NewProcessor(ProcessorParams{
		Logger:    logg,
		Repo:      repo,
		Submitter: submitter,
		Retrier: retry.New(retry.WithSleep(func(context.Context, time.Duration) error {
			return nil
		})),
		Reporter: reporter,
		Now:      func() time.Time { return time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return processor
}

func TestRunRejectsAfterExhaustedAttempts(t *testing.T) {
	repo := newFakeRepo()
	submission := repo.addPending(t)
	submitter := &fakeSubmitter{fallback: func(string) (string, error) {
		return "", &client.StatusError{Code: 500}
	}}
	processor := newTestProcessor(t, repo, submitter)

	run, err := processor.Run(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, RunMetrics{Processed: 1, Accepted: 0, Failed: 1}, run)
	assert.Equal(t, 3, submitter.calls)

	outcome := repo.outcomes[submission.ID]
	assert.Equal(t, enums.SubmissionStatusRejected, outcome.Status)
	require.NotNil(t, outcome.ErrorMessage)
	assert.Equal(t, "Błąd serwera KSeF", *outcome.ErrorMessage)
	assert.Nil(t, outcome.KsefID)
	assert.Equal(t, 3, outcome.RetryCount)
}

func TestRunAcceptsOnFirstAttempt(t *testing.T) {
	repo := newFakeRepo()
	submission := repo.addPending(t)
	submitter := &fakeSubmitter{fallback: func(string) (string, error) {
		return "X1", nil
	}}
	processor := newTestProcessor(t, repo, submitter)

	run, err := processor.Run(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, RunMetrics{Processed: 1, Accepted: 1, Failed: 0}, run)
	assert.Equal(t, 1, submitter.calls)

	outcome := repo.outcomes[submission.ID]
	assert.Equal(t, enums.SubmissionStatusAccepted, outcome.Status)
	require.NotNil(t, outcome.KsefID)
	assert.Equal(t, "X1", *outcome.KsefID)
	assert.Nil(t, outcome.ErrorMessage)
	assert.Equal(t, 1, outcome.RetryCount)
	assert.Equal(t, IdempotencyKey(submission.InvoiceID.String()), outcome.IdempotencyKey)
}

func TestRunAlertsWhenFailureRatioCrossesThreshold(t *testing.T) {
	repo := newFakeRepo()
	failing := make(map[string]bool)
	for i := 0; i < 10; i++ {
		submission := repo.addPending(t)
		if i < 3 {
			failing[submission.InvoiceID.String()] = true
		}
	}
	submitter := &fakeSubmitter{fallback: func(invoiceID string) (string, error) {
		if failing[invoiceID] {
			return "", &client.StatusError{Code: 503}
		}
		return "KSEF-" + invoiceID, nil
	}}
	processor := newTestProcessor(t, repo, submitter)

	run, err := processor.Run(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, RunMetrics{Processed: 10, Accepted: 7, Failed: 3}, run)

	require.Len(t, repo.metrics, 1)
	assert.Equal(t, JobName, repo.metrics[0].Job)
	assert.Equal(t, 10, repo.metrics[0].Processed)
	assert.Equal(t, 7, repo.metrics[0].Accepted)
	assert.Equal(t, 3, repo.metrics[0].Failed)

	require.Len(t, repo.alerts, 1)
	assert.InDelta(t, 0.3, repo.alerts[0].Ratio, 1e-9)
	assert.Equal(t, "Przekroczony próg błędów", repo.alerts[0].Message)
}

func TestRunNoAlertBelowThreshold(t *testing.T) {
	repo := newFakeRepo()
	for i := 0; i < 10; i++ {
		repo.addPending(t)
	}
	submitter := &fakeSubmitter{fallback: func(invoiceID string) (string, error) {
		return "KSEF-" + invoiceID, nil
	}}
	processor := newTestProcessor(t, repo, submitter)

	run, err := processor.Run(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, 10, run.Accepted)
	require.Len(t, repo.metrics, 1)
	assert.Empty(t, repo.alerts)
}

func TestReporterZeroThresholdAlertsOnAnyFailure(t *testing.T) {
	repo := newFakeRepo()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	reporter, err := NewReporter(ReporterParams{
		Logger:    logg,
		Repo:      repo,
		Threshold: 0,
	})
	require.NoError(t, err)

	reporter.Report(context.Background(), RunMetrics{Processed: 10, Accepted: 9, Failed: 1})

	require.Len(t, repo.alerts, 1)
	assert.InDelta(t, 0.1, repo.alerts[0].Ratio, 1e-9)
}

func TestReporterNegativeThresholdUsesDefault(t *testing.T) {
	repo := newFakeRepo()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	reporter, err := NewReporter(ReporterParams{
		Logger:    logg,
		Repo:      repo,
		Threshold: -1,
	})
	require.NoError(t, err)

	reporter.Report(context.Background(), RunMetrics{Processed: 10, Accepted: 9, Failed: 1})

	assert.Empty(t, repo.alerts)
}

func TestRunEmptyQueueEmitsMetricsWithoutAlert(t *testing.T) {
	repo := newFakeRepo()
	processor := newTestProcessor(t, repo, &fakeSubmitter{})

	run, err := processor.Run(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, RunMetrics{}, run)
	require.Len(t, repo.metrics, 1)
	assert.Empty(t, repo.alerts)
}

func TestRunMissingInvoiceRejectsWithoutTransport(t *testing.T) {
	repo := newFakeRepo()
	submission := models.KsefSubmission{
		ID:        uuid.New(),
		InvoiceID: uuid.New(),
		Status:    enums.SubmissionStatusQueued,
	}
	repo.pending = append(repo.pending, submission)
	submitter := &fakeSubmitter{}
	processor := newTestProcessor(t, repo, submitter)

	run, err := processor.Run(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, RunMetrics{Processed: 1, Failed: 1}, run)
	assert.Zero(t, submitter.calls)

	outcome := repo.outcomes[submission.ID]
	assert.Equal(t, enums.SubmissionStatusRejected, outcome.Status)
	require.NotNil(t, outcome.ErrorMessage)
	assert.Equal(t, "Brak danych faktury", *outcome.ErrorMessage)
	assert.Equal(t, 1, outcome.RetryCount)
}

func TestRunMissingItemsRejectsWithoutTransport(t *testing.T) {
	repo := newFakeRepo()
	submission := repo.addPending(t)
	repo.items[submission.InvoiceID] = nil
	submitter := &fakeSubmitter{}
	processor := newTestProcessor(t, repo, submitter)

	run, err := processor.Run(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, RunMetrics{Processed: 1, Failed: 1}, run)
	assert.Zero(t, submitter.calls)

	outcome := repo.outcomes[submission.ID]
	require.NotNil(t, outcome.ErrorMessage)
	assert.Equal(t, "Brak pozycji faktury", *outcome.ErrorMessage)
}

func TestRunAbortsWhenListingFails(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("store unavailable")
	processor := newTestProcessor(t, repo, &fakeSubmitter{})

	_, err := processor.Run(context.Background(), 25)
	require.Error(t, err)
	assert.Empty(t, repo.metrics)
	assert.Empty(t, repo.alerts)
}

func TestRunCountsPersistFailureAsFailed(t *testing.T) {
	repo := newFakeRepo()
	repo.addPending(t)
	repo.recordErr = errors.New("write refused")
	submitter := &fakeSubmitter{fallback: func(string) (string, error) {
		return "X9", nil
	}}
	processor := newTestProcessor(t, repo, submitter)

	run, err := processor.Run(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, RunMetrics{Processed: 1, Accepted: 0, Failed: 1}, run)
}

func TestIdempotencyKeyIsStable(t *testing.T) {
	id := uuid.New().String()
	first := IdempotencyKey(id)
	second := IdempotencyKey(id)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	assert.NotEqual(t, first, IdempotencyKey(id+"x"))
}
