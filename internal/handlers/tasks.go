package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"webprobe/internal/middleware"
	"webprobe/internal/models"
	"webprobe/internal/repositories"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// TaskStore is the subset of the task repository the endpoints use.
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetAll(ctx context.Context, skip, limit int) ([]models.Task, error)
	Count(ctx context.Context) (int64, error)
	GetByStatus(ctx context.Context, status models.TaskStatus, skip, limit int) ([]models.Task, error)
	CountByStatus(ctx context.Context, status models.TaskStatus) (int64, error)
}

// StoreFactory builds a store bound to the request's database session.
type StoreFactory func(db *gorm.DB) TaskStore

func NewRepositoryStore(db *gorm.DB) TaskStore {
	return repositories.NewTaskRepository(db)
}

type TaskHandler struct {
	newStore StoreFactory
}

func NewTaskHandler(newStore StoreFactory) *TaskHandler {
	if newStore == nil {
		newStore = NewRepositoryStore
	}
	return &TaskHandler{newStore: newStore}
}

func (h *TaskHandler) store(c *gin.Context) (TaskStore, bool) {
	db, ok := middleware.GetDB(c)
	if !ok {
		slog.Error("database session missing from request context", "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, false
	}
	return h.newStore(db), true
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var input TaskCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		validationError(c, "invalid task payload", err)
		return
	}

	normalized, err := NormalizeURL(input.URL)
	if err != nil {
		validationError(c, "invalid task payload", err)
		return
	}

	store, ok := h.store(c)
	if !ok {
		return
	}

	task, err := store.Create(c.Request.Context(), &models.Task{
		URL:    normalized,
		Status: models.TaskStatusPending,
	})
	if err != nil {
		slog.Error("failed to create task", "url", normalized, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}

	slog.Info("task created", "task_id", task.ID.String(), "url", task.URL)
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	idStr := c.Param("task_id")
	id, err := uuid.FromString(idStr)
	if err != nil {
		validationError(c, "invalid task id", err)
		return
	}

	store, ok := h.store(c)
	if !ok {
		return
	}

	task, err := store.GetByID(c.Request.Context(), id)
	if err != nil {
		slog.Error("failed to fetch task", "task_id", idStr, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process task request"})
		return
	}
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Task %s not found", id)})
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	var query TaskListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		validationError(c, "invalid query parameters", err)
		return
	}

	store, ok := h.store(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var (
		tasks []models.Task
		total int64
		err   error
	)

	if query.StatusFilter != "" {
		status, _ := models.ParseTaskStatus(query.StatusFilter)
		tasks, err = store.GetByStatus(ctx, status, query.Skip, query.Limit)
		if err == nil {
			total, err = store.CountByStatus(ctx, status)
		}
	} else {
		tasks, err = store.GetAll(ctx, query.Skip, query.Limit)
		if err == nil {
			total, err = store.Count(ctx)
		}
	}
	if err != nil {
		slog.Error("failed to list tasks", "status_filter", query.StatusFilter, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process task request"})
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	c.JSON(http.StatusOK, TaskListResponse{
		Tasks:    tasks,
		Total:    total,
		Page:     pageNumber(query.Skip, query.Limit),
		PageSize: query.Limit,
	})
}

func validationError(c *gin.Context, message string, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":   message,
		"details": describeBindingError(err),
	})
}
