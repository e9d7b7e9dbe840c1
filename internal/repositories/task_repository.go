package repositories

import (
	"context"
	"errors"
	"fmt"

	"webprobe/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskRepository struct {
	*Repository[models.Task]
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{Repository: NewRepository[models.Task](db)}
}

// GetByURL returns the oldest task for url, or nil.
func (r *TaskRepository) GetByURL(ctx context.Context, url string) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Where("url = ?", url).Order("created_at ASC").Take(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task by url: %w", mapError(err))
	}
	return &task, nil
}

func (r *TaskRepository) GetByStatus(ctx context.Context, status models.TaskStatus, skip, limit int) ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Offset(skip).
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("get tasks by status: %w", mapError(err))
	}
	return tasks, nil
}

func (r *TaskRepository) CountByStatus(ctx context.Context, status models.TaskStatus) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).Where("status = ?", status).Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("count tasks by status: %w", mapError(err))
	}
	return total, nil
}

// UpdateStatus is a no-op returning (nil, nil) when the task does not exist.
// errorMessage is only written when non-empty.
func (r *TaskRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus, errorMessage string) (*models.Task, error) {
	task, err := r.GetByID(ctx, id)
	if err != nil || task == nil {
		return nil, err
	}

	fields := map[string]interface{}{"status": status}
	if errorMessage != "" {
		fields["error_message"] = &errorMessage
	}
	return r.Update(ctx, task, fields)
}

// GetRecent returns up to limit tasks, newest first.
func (r *TaskRepository) GetRecent(ctx context.Context, limit int) ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("get recent tasks: %w", mapError(err))
	}
	return tasks, nil
}
