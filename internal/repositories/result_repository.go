package repositories

import (
	"context"
	"errors"
	"fmt"

	"webprobe/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type ResultRepository struct {
	*Repository[models.Result]
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{Repository: NewRepository[models.Result](db)}
}

func (r *ResultRepository) GetByTaskID(ctx context.Context, taskID uuid.UUID) (*models.Result, error) {
	var result models.Result
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Take(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result by task: %w", mapError(err))
	}
	return &result, nil
}
