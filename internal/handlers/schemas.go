package handlers

import (
	"time"

	"webprobe/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/datatypes"
)

type TaskCreate struct {
	URL string `json:"url" binding:"required,max=2048,httpurl"`
}

type TaskListQuery struct {
	Skip         int    `form:"skip,default=0" binding:"gte=0"`
	Limit        int    `form:"limit,default=10" binding:"gte=0"`
	StatusFilter string `form:"status_filter" binding:"omitempty,oneof=PENDING PROCESSING SUCCESS FAILED"`
}

type TaskListResponse struct {
	Tasks    []models.Task `json:"tasks"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

type ResultResponse struct {
	ID          uuid.UUID                   `json:"id"`
	TaskID      uuid.UUID                   `json:"task_id"`
	Title       *string                     `json:"title"`
	Description *string                     `json:"description"`
	Links       datatypes.JSONSlice[string] `json:"links"`
	TextContent *string                     `json:"text_content"`
	ExtraData   datatypes.JSONMap           `json:"extra_data"`
	ScrapedAt   time.Time                   `json:"scraped_at"`
	CreatedAt   time.Time                   `json:"created_at"`
}

func NewResultResponse(result *models.Result) ResultResponse {
	links := result.Links
	if links == nil {
		links = datatypes.JSONSlice[string]{}
	}
	extra := result.ExtraData
	if extra == nil {
		extra = datatypes.JSONMap{}
	}

	return ResultResponse{
		ID:          result.ID,
		TaskID:      result.TaskID,
		Title:       result.Title,
		Description: result.Description,
		Links:       links,
		TextContent: result.TextContent,
		ExtraData:   extra,
		ScrapedAt:   result.ScrapedAt,
		CreatedAt:   result.CreatedAt,
	}
}

// pageNumber is the 1-based page that skip falls on.
func pageNumber(skip, limit int) int {
	if limit <= 0 {
		return 1
	}
	return skip/limit + 1
}
