package server

import (
	"webprobe/internal/config"
	"webprobe/internal/database"
	"webprobe/internal/handlers"
	"webprobe/internal/middleware"
	"webprobe/internal/monitoring"

	"github.com/gin-gonic/gin"
)

const APIPrefix = "/api/v1"

type statsReporter interface {
	Stats() map[string]interface{}
}

type Dependencies struct {
	Config  *config.Config
	Pool    *database.DatabasePool
	Broker  handlers.BrokerStatus
	Metrics *monitoring.Collector
	// Stores overrides the repository-backed task store, mainly for tests.
	Stores handlers.StoreFactory
}

func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config.App.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = monitoring.NewCollector()
	}

	router := gin.New()
	router.Use(middleware.RecoveryWithLog())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS())
	router.Use(metrics.Middleware())
	router.Use(middleware.DBSession(deps.Pool.DB))

	taskHandler := handlers.NewTaskHandler(deps.Stores)
	healthHandler := handlers.NewHealthHandler(deps.Config.App.Name, deps.Broker)

	router.GET("/", handlers.Root(deps.Config.App.Name))

	api := router.Group(APIPrefix)
	{
		api.GET("/health", healthHandler.Health)
		api.GET("/metrics", metrics.Handler(func() map[string]interface{} {
			extra := map[string]interface{}{"database": deps.Pool.Stats()}
			if reporter, ok := deps.Broker.(statsReporter); ok {
				extra["broker"] = reporter.Stats()
			}
			return extra
		}))

		tasks := api.Group("/tasks")
		tasks.POST("", taskHandler.CreateTask)
		tasks.GET("", taskHandler.ListTasks)
		tasks.GET("/:task_id", taskHandler.GetTask)
	}

	return router, nil
}
