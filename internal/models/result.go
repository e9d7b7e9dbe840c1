package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Result holds the output of a finished scrape. A task has at most one.
type Result struct {
	ID          uuid.UUID                   `json:"id" gorm:"primaryKey;type:uuid"`
	TaskID      uuid.UUID                   `json:"task_id" gorm:"type:uuid;not null;uniqueIndex"`
	Task        *Task                       `json:"-" gorm:"foreignKey:TaskID;references:ID"`
	Title       *string                     `json:"title" gorm:"size:500"`
	Description *string                     `json:"description" gorm:"type:text"`
	Links       datatypes.JSONSlice[string] `json:"links"`
	TextContent *string                     `json:"text_content" gorm:"type:text"`
	ExtraData   datatypes.JSONMap           `json:"extra_data"`
	ScrapedAt   time.Time                   `json:"scraped_at" gorm:"not null"`
	CreatedAt   time.Time                   `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time                   `json:"updated_at" gorm:"not null"`
}

func (Result) TableName() string {
	return "results"
}

func (r *Result) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		r.ID = id
	}
	if r.ScrapedAt.IsZero() {
		r.ScrapedAt = tx.NowFunc()
	}
	if r.Links == nil {
		r.Links = datatypes.JSONSlice[string]{}
	}
	if r.ExtraData == nil {
		r.ExtraData = datatypes.JSONMap{}
	}
	return nil
}
