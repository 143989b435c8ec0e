// Package batch drives queued KSeF submissions through render, submit and
// persist, then reports each run's aggregate outcome.
package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marlink/accountant/internal/ksef/client"
	"github.com/marlink/accountant/internal/ksef/fa"
	"github.com/marlink/accountant/internal/ksef/retry"
	"github.com/marlink/accountant/internal/submissions"
	"github.com/marlink/accountant/pkg/enums"
	pkgerrors "github.com/marlink/accountant/pkg/errors"
	"github.com/marlink/accountant/pkg/logger"
)

// JobName labels everything a run emits: log fields, metric rows, alerts.
const JobName = "ksef-batch"

const (
	missingInvoiceMessage = "Brak danych faktury"
	missingItemsMessage   = "Brak pozycji faktury"
)

// Submitter posts one rendered document and returns the remote identifier.
type Submitter interface {
	Submit(ctx context.Context, invoiceID string, document []byte) (string, error)
}

// RunMetrics are the aggregate counters of one batch run.
type RunMetrics struct {
	Processed int `json:"processed"`
	Accepted  int `json:"accepted"`
	Failed    int `json:"failed"`
}

// FailureRatio is failed over processed; zero when nothing was processed.
func (m RunMetrics) FailureRatio() float64 {
	if m.Processed == 0 {
		return 0
	}
	return float64(m.Failed) / float64(m.Processed)
}

// ProcessorParams configure the batch processor.
type ProcessorParams struct {
	Logger    *logger.Logger
	Repo      submissions.Repository
	Submitter Submitter
	Retrier   *retry.Retrier
	Reporter  *Reporter
	Now       func() time.Time
}

// Processor walks the pending queue one submission at a time. Items stay
// sequential to bound outbound load on the remote endpoint.
type Processor struct {
	logg      *logger.Logger
	repo      submissions.Repository
	submitter Submitter
	retrier   *retry.Retrier
	reporter  *Reporter
	now       func() time.Time
}

// NewProcessor builds the batch processor.
func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.Submitter == nil {
		return nil, fmt.Errorf("submitter required")
	}
	if params.Reporter == nil {
		return nil, fmt.Errorf("reporter required")
	}
	retrier := params.Retrier
	if retrier == nil {
		retrier = retry.New()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Processor{
		logg:      params.Logger,
		repo:      params.Repo,
		submitter: params.Submitter,
		retrier:   retrier,
		reporter:  params.Reporter,
		now:       now,
	}, nil
}

// Run processes up to limit queued submissions and reports the run. A
// failure to list the queue aborts the run before anything is processed;
// per-item failures are folded into the counters and never escape.
func (p *Processor) Run(ctx context.Context, limit int) (RunMetrics, error) {
	pending, err := p.repo.ListPending(ctx, limit)
	if err != nil {
		return RunMetrics{}, pkgerrors.Wrap(pkgerrors.CodeFetch, err, "listing pending submissions")
	}

	var run RunMetrics
	for _, submission := range pending {
		itemCtx := p.logg.WithSubmissionID(ctx, submission.ID.String())
		itemCtx = p.logg.WithInvoiceID(itemCtx, submission.InvoiceID.String())

		outcome := p.processItem(itemCtx, submission.InvoiceID)

		persisted := true
		if err := p.repo.RecordOutcome(itemCtx, submission.ID, outcome); err != nil {
			persisted = false
			p.logg.Error(itemCtx, "failed to persist submission outcome",
				pkgerrors.Wrap(pkgerrors.CodePersistence, err, "updating submission"))
		}

		run.Processed++
		if outcome.Status == enums.SubmissionStatusAccepted && persisted {
			run.Accepted++
		} else {
			run.Failed++
		}
	}

	p.reporter.Report(ctx, run)
	return run, nil
}

// processItem resolves one submission to its terminal outcome. Missing
// invoice data rejects immediately without touching the transport; transport
// failures go through the retry budget.
func (p *Processor) processItem(ctx context.Context, invoiceID uuid.UUID) submissions.Outcome {
	key := IdempotencyKey(invoiceID.String())

	invoice, err := p.repo.FindInvoice(ctx, invoiceID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			p.logg.Error(ctx, "failed to load invoice", err)
		}
		return p.rejected(missingInvoiceMessage, 1, key)
	}
	items, err := p.repo.FindInvoiceItems(ctx, invoiceID)
	if err != nil {
		p.logg.Error(ctx, "failed to load invoice items", err)
		return p.rejected(missingItemsMessage, 1, key)
	}
	if len(items) == 0 {
		return p.rejected(missingItemsMessage, 1, key)
	}
	invoice.Items = items

	document := fa.Render(*invoice)
	result := p.retrier.Do(ctx, func(ctx context.Context) (string, error) {
		return p.submitter.Submit(ctx, invoiceID.String(), document)
	})
	if !result.Success {
		p.logg.Warn(p.logg.WithField(ctx, "attempts", result.Attempts), "submission rejected")
		return p.rejected(client.FailureMessage(result.Err), result.Attempts, key)
	}

	remoteID := result.RemoteID
	return submissions.Outcome{
		Status:         enums.SubmissionStatusAccepted,
		KsefID:         &remoteID,
		LastAttemptAt:  p.now().UTC(),
		RetryCount:     result.Attempts,
		IdempotencyKey: key,
	}
}

func (p *Processor) rejected(message string, attempts int, key string) submissions.Outcome {
	return submissions.Outcome{
		Status:         enums.SubmissionStatusRejected,
		ErrorMessage:   &message,
		LastAttemptAt:  p.now().UTC(),
		RetryCount:     attempts,
		IdempotencyKey: key,
	}
}

// IdempotencyKey derives the stable per-invoice key recorded with every
// outcome; identical input always yields the identical hex digest.
func IdempotencyKey(invoiceID string) string {
	sum := sha256.Sum256([]byte(invoiceID))
	return hex.EncodeToString(sum[:])
}
