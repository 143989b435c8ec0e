package models

import (
	"time"

	"github.com/google/uuid"
)

// JobMetric aggregates the counters of one completed batch run.
type JobMetric struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Job       string    `gorm:"column:job;not null"`
	Processed int       `gorm:"column:processed;not null"`
	Accepted  int       `gorm:"column:accepted;not null"`
	Failed    int       `gorm:"column:failed;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (JobMetric) TableName() string { return "job_metrics" }
