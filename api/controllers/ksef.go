package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marlink/accountant/api/responses"
	"github.com/marlink/accountant/api/validators"
	"github.com/marlink/accountant/internal/ksef/batch"
	"github.com/marlink/accountant/internal/submissions"
	"github.com/marlink/accountant/pkg/config"
	"github.com/marlink/accountant/pkg/db/models"
	pkgerrors "github.com/marlink/accountant/pkg/errors"
	"github.com/marlink/accountant/pkg/logger"
	"github.com/marlink/accountant/pkg/metrics"
)

// BatchRunner is the slice of the batch processor the trigger needs.
type BatchRunner interface {
	Run(ctx context.Context, limit int) (batch.RunMetrics, error)
}

type runRequest struct {
	Limit *int `json:"limit" validate:"omitempty,min=1"`
}

// KsefStatus is the no-side-effect probe: it reports whether certificate
// material is configured and how large it is.
func KsefStatus(cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		certSize, err := requireKsefConfig(cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"ok":        true,
			"certSize":  certSize,
			"ksefReady": cfg.KSeF.CertPEMB64 != "" && cfg.KSeF.KeyPEMB64 != "",
		})
	}
}

// KsefRun triggers one batch run. The limit comes from the query string or
// an optional JSON body; configuration is rejected before any work starts.
func KsefRun(cfg *config.Config, logg *logger.Logger, processor BatchRunner, batchMetrics *metrics.BatchJobMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		certSize, err := requireKsefConfig(cfg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := resolveRunLimit(r, cfg.Job)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		start := time.Now()
		run, err := processor.Run(ctx, limit)
		batchMetrics.ObserveDuration(batch.JobName, time.Since(start))
		if err != nil {
			batchMetrics.IncFailure(batch.JobName)
			responses.WriteError(ctx, logg, w, err)
			return
		}
		batchMetrics.IncSuccess(batch.JobName)

		responses.WriteSuccess(w, map[string]any{
			"ok":        true,
			"certSize":  certSize,
			"processed": run.Processed,
			"accepted":  run.Accepted,
			"failed":    run.Failed,
		})
	}
}

// InvoiceKsefSend queues one invoice for the next batch run.
func InvoiceKsefSend(service submissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		invoiceID, err := parseInvoiceID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		submission, err := service.QueueForSend(ctx, invoiceID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, submissionView(submission))
	}
}

// InvoiceKsefStatus reads the latest submission state for an invoice.
func InvoiceKsefStatus(service submissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		invoiceID, err := parseInvoiceID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		submission, err := service.GetForInvoice(ctx, invoiceID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, submissionView(submission))
	}
}

func requireKsefConfig(cfg *config.Config) (int, error) {
	if !cfg.KSeF.Configured() {
		return 0, pkgerrors.New(pkgerrors.CodeConfiguration, "ksef submission is not configured")
	}
	certSize, err := cfg.KSeF.CertSize()
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "invalid certificate material")
	}
	return certSize, nil
}

func resolveRunLimit(r *http.Request, job config.JobConfig) (int, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") && r.ContentLength > 0 {
		var req runRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return 0, err
		}
		if req.Limit != nil {
			if *req.Limit > job.MaxLimit {
				return 0, pkgerrors.New(pkgerrors.CodeValidation, "limit out of range").
					WithDetails(map[string]any{"field": "limit", "max": job.MaxLimit})
			}
			return *req.Limit, nil
		}
	}
	return validators.ParseQueryInt(r, "limit", job.DefaultLimit, 1, job.MaxLimit)
}

func parseInvoiceID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "invoiceID")
	invoiceID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid invoice id").
			WithDetails(map[string]any{"field": "invoiceID"})
	}
	return invoiceID, nil
}

func submissionView(submission *models.KsefSubmission) map[string]any {
	view := map[string]any{
		"id":         submission.ID,
		"invoiceId":  submission.InvoiceID,
		"status":     submission.Status,
		"retryCount": submission.RetryCount,
	}
	if submission.KsefID != nil {
		view["ksefId"] = *submission.KsefID
	}
	if submission.ErrorMessage != nil {
		view["errorMessage"] = *submission.ErrorMessage
	}
	if submission.LastAttemptAt != nil {
		view["lastAttemptAt"] = submission.LastAttemptAt.UTC().Format(time.RFC3339)
	}
	return view
}
