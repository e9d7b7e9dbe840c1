package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Repository is the CRUD contract shared by every entity keyed by a UUID "id"
// column. Each mutating call is committed on its own.
type Repository[T any] struct {
	db *gorm.DB
}

func NewRepository[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

// Create persists entity and returns it with its id and timestamps populated.
func (r *Repository[T]) Create(ctx context.Context, entity *T) (*T, error) {
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return nil, fmt.Errorf("create: %w", mapError(err))
	}
	return entity, nil
}

// GetByID returns (nil, nil) when no row has the given id.
func (r *Repository[T]) GetByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by id: %w", mapError(err))
	}
	return &entity, nil
}

func (r *Repository[T]) GetAll(ctx context.Context, skip, limit int) ([]T, error) {
	entities := make([]T, 0)
	if err := r.db.WithContext(ctx).Offset(skip).Limit(limit).Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("get all: %w", mapError(err))
	}
	return entities, nil
}

func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(new(T)).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count: %w", mapError(err))
	}
	return total, nil
}

// Update applies a partial update keyed by column name and writes the new
// values back into entity.
func (r *Repository[T]) Update(ctx context.Context, entity *T, fields map[string]interface{}) (*T, error) {
	if err := r.db.WithContext(ctx).Model(entity).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("update: %w", mapError(err))
	}
	return entity, nil
}

func (r *Repository[T]) Delete(ctx context.Context, entity *T) error {
	if err := r.db.WithContext(ctx).Delete(entity).Error; err != nil {
		return fmt.Errorf("delete: %w", mapError(err))
	}
	return nil
}
