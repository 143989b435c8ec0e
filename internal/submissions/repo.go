// Package submissions owns the KSeF submission queue records.
package submissions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marlink/accountant/internal/repo"
	"github.com/marlink/accountant/pkg/db/models"
	"github.com/marlink/accountant/pkg/enums"
)

// Outcome is everything persisted back onto a submission after a batch
// processed it: one update, exactly as computed.
type Outcome struct {
	Status         enums.SubmissionStatus
	KsefID         *string
	ErrorMessage   *string
	LastAttemptAt  time.Time
	RetryCount     int
	IdempotencyKey string
}

// Repository is the persistence surface of the submission pipeline.
type Repository interface {
	ListPending(ctx context.Context, limit int) ([]models.KsefSubmission, error)
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.KsefSubmission, error)
	Create(ctx context.Context, submission *models.KsefSubmission) (*models.KsefSubmission, error)
	Requeue(ctx context.Context, id uuid.UUID) error
	RecordOutcome(ctx context.Context, id uuid.UUID, outcome Outcome) error

	FindInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
	FindInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceItem, error)

	InsertJobMetric(ctx context.Context, metric *models.JobMetric) error
	InsertAlert(ctx context.Context, alert *models.Alert) error
}

type repository struct {
	repo.Base
}

// NewRepository builds a submissions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) ListPending(ctx context.Context, limit int) ([]models.KsefSubmission, error) {
	var pending []models.KsefSubmission
	err := r.DB(ctx).
		Where("status = ?", enums.SubmissionStatusQueued).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&pending).Error
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *repository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.KsefSubmission, error) {
	var submission models.KsefSubmission
	err := r.DB(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at DESC").
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *repository) Create(ctx context.Context, submission *models.KsefSubmission) (*models.KsefSubmission, error) {
	if err := r.DB(ctx).Create(submission).Error; err != nil {
		return nil, err
	}
	return submission, nil
}

func (r *repository) Requeue(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).
		Model(&models.KsefSubmission{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.SubmissionStatusQueued,
			"error_message": nil,
		}).Error
}

func (r *repository) RecordOutcome(ctx context.Context, id uuid.UUID, outcome Outcome) error {
	return r.DB(ctx).
		Model(&models.KsefSubmission{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          outcome.Status,
			"ksef_id":         outcome.KsefID,
			"error_message":   outcome.ErrorMessage,
			"last_attempt_at": outcome.LastAttemptAt,
			"retry_count":     outcome.RetryCount,
			"idempotency_key": outcome.IdempotencyKey,
		}).Error
}

func (r *repository) FindInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.DB(ctx).
		Where("id = ?", invoiceID).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceItem, error) {
	var items []models.InvoiceItem
	err := r.DB(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) InsertJobMetric(ctx context.Context, metric *models.JobMetric) error {
	return r.DB(ctx).Create(metric).Error
}

func (r *repository) InsertAlert(ctx context.Context, alert *models.Alert) error {
	return r.DB(ctx).Create(alert).Error
}
