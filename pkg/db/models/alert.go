package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert is a one-shot notification raised when a run's failure ratio
// crosses the configured threshold. It is never queue state.
type Alert struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Job       string    `gorm:"column:job;not null"`
	Ratio     float64   `gorm:"column:ratio;not null"`
	Processed int       `gorm:"column:processed;not null"`
	Failed    int       `gorm:"column:failed;not null"`
	Message   string    `gorm:"column:message"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Alert) TableName() string { return "alerts" }
