package models

import (
	"time"
	"veeniu/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobTask is the durable backing row for a one-shot scheduled action. Pending
// rows are re-armed on boot so a process restart never loses an expiry.
type JobTask struct {
	ID      uuid.UUID   `gorm:"primarykey;type:uuid" json:"id"`
	Name    string      `json:"-"`
	JobType string      `json:"-"`
	RunsAt  time.Time   `gorm:"index" json:"-"`
	Payload types.JSONB `json:"-"`
	Status  string      `gorm:"default:'pending'" json:"-"`
	Topic   string      `json:"-"`

	types.Timestamps
}

func (j *JobTask) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
