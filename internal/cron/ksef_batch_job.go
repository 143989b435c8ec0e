package cron

import (
	"context"
	"fmt"

	"github.com/marlink/accountant/internal/ksef/batch"
)

// batchRunner is the slice of the batch processor the job needs.
type batchRunner interface {
	Run(ctx context.Context, limit int) (batch.RunMetrics, error)
}

// KsefBatchJobParams configure the scheduled submission job.
type KsefBatchJobParams struct {
	Processor batchRunner
	Limit     int
}

type ksefBatchJob struct {
	processor batchRunner
	limit     int
}

// NewKsefBatchJob wraps the batch processor as a scheduled job.
func NewKsefBatchJob(params KsefBatchJobParams) (Job, error) {
	if params.Processor == nil {
		return nil, fmt.Errorf("batch processor required")
	}
	if params.Limit <= 0 {
		return nil, fmt.Errorf("positive batch limit required")
	}
	return &ksefBatchJob{
		processor: params.Processor,
		limit:     params.Limit,
	}, nil
}

func (j *ksefBatchJob) Name() string { return batch.JobName }

func (j *ksefBatchJob) Run(ctx context.Context) error {
	_, err := j.processor.Run(ctx, j.limit)
	return err
}
