package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"webprobe/internal/handlers"
	"webprobe/internal/middleware"
	"webprobe/internal/models"
	"webprobe/internal/repositories"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errStoreDown = errors.New("pq: connection refused to 10.0.0.5")

// MockTaskStore fails every call and records how often it was reached.
type MockTaskStore struct {
	calls int
}

func (m *MockTaskStore) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	m.calls++
	return nil, errStoreDown
}

func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	m.calls++
	return nil, errStoreDown
}

func (m *MockTaskStore) GetAll(ctx context.Context, skip, limit int) ([]models.Task, error) {
	m.calls++
	return nil, errStoreDown
}

func (m *MockTaskStore) Count(ctx context.Context) (int64, error) {
	m.calls++
	return 0, errStoreDown
}

func (m *MockTaskStore) GetByStatus(ctx context.Context, status models.TaskStatus, skip, limit int) ([]models.Task, error) {
	m.calls++
	return nil, errStoreDown
}

func (m *MockTaskStore) CountByStatus(ctx context.Context, status models.TaskStatus) (int64, error) {
	m.calls++
	return 0, errStoreDown
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Task{}, &models.Result{}))
	return db
}

func setupTaskRouter(t *testing.T, db *gorm.DB, factory handlers.StoreFactory) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, handlers.RegisterValidators())

	handler := handlers.NewTaskHandler(factory)
	router := gin.New()
	router.Use(middleware.DBSession(db))
	api := router.Group("/api/v1")
	api.POST("/tasks", handler.CreateTask)
	api.GET("/tasks", handler.ListTasks)
	api.GET("/tasks/:task_id", handler.GetTask)
	return router
}

func postTask(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/api/v1/tasks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedTask(t *testing.T, db *gorm.DB, url string, status models.TaskStatus) *models.Task {
	t.Helper()
	task, err := repositories.NewTaskRepository(db).Create(context.Background(), &models.Task{URL: url, Status: status})
	require.NoError(t, err)
	return task
}

func TestCreateTask(t *testing.T) {
	db := setupTestDB(t)
	router := setupTaskRouter(t, db, nil)

	w := postTask(router, `{"url": "https://example.com/page"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var task models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))
	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, "https://example.com/page", task.URL)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Nil(t, task.StartedAt)
	assert.Nil(t, task.ResultID)

	stored, err := repositories.NewTaskRepository(db).GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.TaskStatusPending, stored.Status)
}

func TestCreateTask_NormalizesURL(t *testing.T) {
	router := setupTaskRouter(t, setupTestDB(t), nil)

	w := postTask(router, `{"url": "HTTPS://Example.COM"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var task models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))
	assert.Equal(t, "https://example.com/", task.URL)
}

func TestCreateTask_SameURLTwice(t *testing.T) {
	router := setupTaskRouter(t, setupTestDB(t), nil)

	first := postTask(router, `{"url": "https://example.com/"}`)
	second := postTask(router, `{"url": "https://example.com/"}`)
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)

	var a, b models.Task
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateTask_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not a url", `{"url": "not-a-url"}`},
		{"unsupported scheme", `{"url": "ftp://example.com/file"}`},
		{"missing host", `{"url": "http://"}`},
		{"missing url", `{}`},
		{"empty url", `{"url": ""}`},
		{"wrong type", `{"url": 42}`},
		{"invalid json", `invalid json`},
		{"too long", fmt.Sprintf(`{"url": "https://example.com/%s"}`, strings.Repeat("a", 2048))},
		{"too long once encoded", fmt.Sprintf(`{"url": "https://example.com/%s"}`, strings.Repeat("é", 2000))},
		{"host only at limit gains a slash", fmt.Sprintf(`{"url": "https://%s.com"}`, strings.Repeat("a", 2036))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockTaskStore{}
			router := setupTaskRouter(t, setupTestDB(t), func(*gorm.DB) handlers.TaskStore { return store })

			w := postTask(router, tt.body)

			if w.Code != http.StatusUnprocessableEntity {
				t.Errorf("Expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
			}
			if store.calls != 0 {
				t.Errorf("Expected invalid input to be rejected before the store, got %d calls", store.calls)
			}

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Contains(t, response, "error")
			assert.Contains(t, response, "details")
		})
	}
}

func TestCreateTask_URLAtLengthLimit(t *testing.T) {
	db := setupTestDB(t)
	router := setupTaskRouter(t, db, nil)

	url := "https://example.com/" + strings.Repeat("a", handlers.MaxURLLength-len("https://example.com/"))
	require.Len(t, url, handlers.MaxURLLength)

	w := postTask(router, fmt.Sprintf(`{"url": %q}`, url))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var task models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))
	stored, err := repositories.NewTaskRepository(db).GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.URL, handlers.MaxURLLength)
}

func TestCreateTask_StoreFailure(t *testing.T) {
	store := &MockTaskStore{}
	router := setupTaskRouter(t, setupTestDB(t), func(*gorm.DB) handlers.TaskStore { return store })

	w := postTask(router, `{"url": "https://example.com/"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, store.calls)
	assert.JSONEq(t, `{"error":"failed to create task"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestGetTask(t *testing.T) {
	db := setupTestDB(t)
	router := setupTaskRouter(t, db, nil)
	seeded := seedTask(t, db, "https://example.com/", models.TaskStatusProcessing)

	w := get(router, "/api/v1/tasks/"+seeded.ID.String())
	require.Equal(t, http.StatusOK, w.Code)

	var task models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))
	assert.Equal(t, seeded.ID, task.ID)
	assert.Equal(t, models.TaskStatusProcessing, task.Status)
}

func TestGetTask_NotFound(t *testing.T) {
	router := setupTaskRouter(t, setupTestDB(t), nil)
	id := uuid.Must(uuid.NewV4())

	w := get(router, "/api/v1/tasks/"+id.String())

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"error":"Task %s not found"}`, id), w.Body.String())
}

func TestGetTask_MalformedID(t *testing.T) {
	store := &MockTaskStore{}
	router := setupTaskRouter(t, setupTestDB(t), func(*gorm.DB) handlers.TaskStore { return store })

	w := get(router, "/api/v1/tasks/not-a-uuid")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 0, store.calls)
}

func TestGetTask_StoreFailure(t *testing.T) {
	store := &MockTaskStore{}
	router := setupTaskRouter(t, setupTestDB(t), func(*gorm.DB) handlers.TaskStore { return store })

	w := get(router, "/api/v1/tasks/"+uuid.Must(uuid.NewV4()).String())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) handlers.TaskListResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var response handlers.TaskListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestListTasks_StatusFilter(t *testing.T) {
	db := setupTestDB(t)
	router := setupTaskRouter(t, db, nil)

	for i := 0; i < 3; i++ {
		seedTask(t, db, fmt.Sprintf("https://example.com/ok/%d", i), models.TaskStatusSuccess)
	}
	seedTask(t, db, "https://example.com/pending", models.TaskStatusPending)
	seedTask(t, db, "https://example.com/failed", models.TaskStatusFailed)

	response := decodeList(t, get(router, "/api/v1/tasks?status_filter=SUCCESS&limit=2"))

	assert.Len(t, response.Tasks, 2)
	assert.Equal(t, int64(3), response.Total)
	for _, task := range response.Tasks {
		assert.Equal(t, models.TaskStatusSuccess, task.Status)
	}
}

func TestListTasks_UnfilteredTotalIsRowCount(t *testing.T) {
	db := setupTestDB(t)
	router := setupTaskRouter(t, db, nil)

	for i := 0; i < 12; i++ {
		seedTask(t, db, fmt.Sprintf("https://example.com/%d", i), models.TaskStatusPending)
	}

	response := decodeList(t, get(router, "/api/v1/tasks"))

	assert.Len(t, response.Tasks, 10)
	assert.Equal(t, int64(12), response.Total)
	assert.Equal(t, 1, response.Page)
	assert.Equal(t, 10, response.PageSize)
}

func TestListTasks_Pagination(t *testing.T) {
	tests := []struct {
		query    string
		page     int
		pageSize int
	}{
		{"skip=0&limit=10", 1, 10},
		{"skip=10&limit=10", 2, 10},
		{"skip=25&limit=10", 3, 10},
		{"skip=5&limit=0", 1, 0},
		{"", 1, 10},
	}

	db := setupTestDB(t)
	router := setupTaskRouter(t, db, nil)

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			response := decodeList(t, get(router, "/api/v1/tasks?"+tt.query))
			assert.Equal(t, tt.page, response.Page)
			assert.Equal(t, tt.pageSize, response.PageSize)
			assert.NotNil(t, response.Tasks)
		})
	}
}

func TestListTasks_EmptyReturnsArray(t *testing.T) {
	router := setupTaskRouter(t, setupTestDB(t), nil)

	w := get(router, "/api/v1/tasks")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tasks":[],"total":0,"page":1,"page_size":10}`, w.Body.String())
}

func TestListTasks_InvalidQuery(t *testing.T) {
	tests := []string{
		"skip=-1",
		"limit=-5",
		"limit=ten",
		"status_filter=DONE",
		"status_filter=success",
	}

	for _, query := range tests {
		t.Run(query, func(t *testing.T) {
			store := &MockTaskStore{}
			router := setupTaskRouter(t, setupTestDB(t), func(*gorm.DB) handlers.TaskStore { return store })

			w := get(router, "/api/v1/tasks?"+query)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Equal(t, 0, store.calls)
		})
	}
}

func TestListTasks_StoreFailure(t *testing.T) {
	store := &MockTaskStore{}
	router := setupTaskRouter(t, setupTestDB(t), func(*gorm.DB) handlers.TaskStore { return store })

	w := get(router, "/api/v1/tasks?status_filter=FAILED")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"failed to process task request"}`, w.Body.String())
}

func TestTaskHandler_MissingSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, handlers.RegisterValidators())

	handler := handlers.NewTaskHandler(nil)
	router := gin.New()
	router.POST("/api/v1/tasks", handler.CreateTask)

	w := postTask(router, `{"url": "https://example.com/"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
