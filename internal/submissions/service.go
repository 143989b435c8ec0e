package submissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marlink/accountant/pkg/db/models"
	"github.com/marlink/accountant/pkg/enums"
	pkgerrors "github.com/marlink/accountant/pkg/errors"
)

// Service exposes the queueing surface used by the API controllers.
type Service interface {
	QueueForSend(ctx context.Context, invoiceID uuid.UUID) (*models.KsefSubmission, error)
	GetForInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.KsefSubmission, error)
}

// ServiceParams configure the submissions service.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService builds the queueing service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	return &service{repo: params.Repo}, nil
}

// QueueForSend queues an invoice for the next batch run. An invoice that
// already reached the accepted status can never be re-queued; an invoice
// already waiting stays queued; a rejected one is re-queued in place.
func (s *service) QueueForSend(ctx context.Context, invoiceID uuid.UUID) (*models.KsefSubmission, error) {
	if _, err := s.repo.FindInvoice(ctx, invoiceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeFetch, err, "loading invoice")
	}

	existing, err := s.repo.FindByInvoice(ctx, invoiceID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeFetch, err, "loading submission")
	}

	if existing != nil {
		switch existing.Status {
		case enums.SubmissionStatusAccepted:
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice already submitted to KSeF")
		case enums.SubmissionStatusQueued:
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice is already queued for submission")
		}
		if err := s.repo.Requeue(ctx, existing.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "requeueing submission")
		}
		existing.Status = enums.SubmissionStatusQueued
		existing.ErrorMessage = nil
		return existing, nil
	}

	created, err := s.repo.Create(ctx, &models.KsefSubmission{
		InvoiceID: invoiceID,
		Status:    enums.SubmissionStatusQueued,
	})
	if err != nil {
		// The unique index on invoice_id catches the race where two
		// callers both miss FindByInvoice and both insert.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice is already queued for submission")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "creating submission")
	}
	return created, nil
}

// GetForInvoice returns the latest submission for an invoice.
func (s *service) GetForInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.KsefSubmission, error) {
	submission, err := s.repo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no submission for invoice")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeFetch, err, "loading submission")
	}
	return submission, nil
}
