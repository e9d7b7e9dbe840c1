package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusSuccess    TaskStatus = "SUCCESS"
	TaskStatusFailed     TaskStatus = "FAILED"
)

var taskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusProcessing,
	TaskStatusSuccess,
	TaskStatusFailed,
}

func TaskStatuses() []TaskStatus {
	out := make([]TaskStatus, len(taskStatuses))
	copy(out, taskStatuses)
	return out
}

func (s TaskStatus) Valid() bool {
	for _, status := range taskStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ParseTaskStatus accepts the exact upper-case status name.
func ParseTaskStatus(value string) (TaskStatus, bool) {
	status := TaskStatus(value)
	return status, status.Valid()
}

// Task is one requested scrape. Nothing guards status transitions: any status
// may be written over any other.
type Task struct {
	ID           uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	URL          string     `json:"url" gorm:"size:2048;not null;index"`
	Status       TaskStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	ErrorMessage *string    `json:"error_message" gorm:"type:text"`
	ResultID     *uuid.UUID `json:"result_id" gorm:"type:uuid"`
	CreatedAt    time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"not null"`
}

func (Task) TableName() string {
	return "tasks"
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		t.ID = id
	}
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	return nil
}
