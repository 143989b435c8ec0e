package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/marlink/accountant/pkg/enums"
)

// KsefSubmission is one queued unit of work for the batch pipeline.
// One row per invoice: the unique index on invoice_id backs the queueing
// service's at-most-one-submission guarantee, so a re-queue updates the
// existing row instead of creating a second one.
type KsefSubmission struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID      uuid.UUID              `gorm:"column:invoice_id;type:uuid;not null;uniqueIndex"`
	Status         enums.SubmissionStatus `gorm:"column:status;not null"`
	KsefID         *string                `gorm:"column:ksef_id"`
	ErrorMessage   *string                `gorm:"column:error_message"`
	LastAttemptAt  *time.Time             `gorm:"column:last_attempt_at"`
	RetryCount     int                    `gorm:"column:retry_count;not null;default:0"`
	IdempotencyKey *string                `gorm:"column:idempotency_key"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (KsefSubmission) TableName() string { return "ksef_submissions" }
