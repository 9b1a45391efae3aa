package models

import (
	"time"

	"gorm.io/datatypes"
)

// Run statuses.
const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusEmpty     = "empty"
)

// IngestRun is the audit row written after each pipeline run.
type IngestRun struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement"`
	Family        string     `gorm:"type:text;index;not null"`
	PeriodTable   string     `gorm:"type:text;not null"`
	Status        string     `gorm:"type:text;not null"`
	Rollover      string     `gorm:"type:text"`
	RowsFetched   int        `gorm:"not null;default:0"`
	RowsCarried   int        `gorm:"not null;default:0"`
	RowsLoaded    int        `gorm:"not null;default:0"`
	RowsReconciled int       `gorm:"not null;default:0"`
	LastError     *string    `gorm:"type:text"`
	StatsJSON     datatypes.JSON `gorm:"type:jsonb"`
	StartedAt     time.Time  `gorm:"type:timestamptz;not null"`
	FinishedAt    *time.Time `gorm:"type:timestamptz"`
}

func (IngestRun) TableName() string {
	return "ingest_runs"
}
