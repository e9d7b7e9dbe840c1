package monitoring

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Snapshot is a point-in-time copy of the request counters.
type Snapshot struct {
	RequestCount     int64            `json:"request_count"`
	AvgRequestMillis float64          `json:"avg_request_duration_ms"`
	ActiveRequests   int64            `json:"active_requests"`
	ErrorCount       int64            `json:"error_count"`
	StatusCodes      map[string]int64 `json:"status_codes"`
	Endpoints        map[string]int64 `json:"endpoint_calls"`
	TasksCreated     int64            `json:"tasks_created"`
	StartTime        time.Time        `json:"start_time"`
	LastRequest      time.Time        `json:"last_request"`
}

type Collector struct {
	mu             sync.RWMutex
	requestCount   int64
	activeRequests int64
	errorCount     int64
	tasksCreated   int64
	totalDuration  time.Duration
	statusCodes    map[string]int64
	endpoints      map[string]int64
	startTime      time.Time
	lastRequest    time.Time
}

func NewCollector() *Collector {
	return &Collector{
		statusCodes: make(map[string]int64),
		endpoints:   make(map[string]int64),
		startTime:   time.Now(),
	}
}

// Middleware records every request, including ones whose handler panics;
// those are counted as 500 before the panic continues to the recovery handler.
func (m *Collector) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		m.mu.Lock()
		m.activeRequests++
		m.mu.Unlock()

		defer func() {
			statusCode := c.Writer.Status()
			recovered := recover()
			if recovered != nil {
				statusCode = http.StatusInternalServerError
			}

			m.record(c, statusCode, time.Since(start))

			if recovered != nil {
				panic(recovered)
			}
		}()

		c.Next()
	}
}

func (m *Collector) record(c *gin.Context, statusCode int, duration time.Duration) {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	endpoint := c.Request.Method + " " + route

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requestCount++
	m.activeRequests--
	m.totalDuration += duration
	m.lastRequest = time.Now()

	if statusCode >= 400 {
		m.errorCount++
	}
	if statusCode == http.StatusCreated && route == "/api/v1/tasks" {
		m.tasksCreated++
	}
	m.statusCodes[strconv.Itoa(statusCode)]++
	m.endpoints[endpoint]++
}

func (m *Collector) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		RequestCount:   m.requestCount,
		ActiveRequests: m.activeRequests,
		ErrorCount:     m.errorCount,
		TasksCreated:   m.tasksCreated,
		StatusCodes:    make(map[string]int64, len(m.statusCodes)),
		Endpoints:      make(map[string]int64, len(m.endpoints)),
		StartTime:      m.startTime,
		LastRequest:    m.lastRequest,
	}
	if m.requestCount > 0 {
		snap.AvgRequestMillis = float64(m.totalDuration.Microseconds()) / float64(m.requestCount) / 1000
	}

	for k, v := range m.statusCodes {
		snap.StatusCodes[k] = v
	}
	for k, v := range m.endpoints {
		snap.Endpoints[k] = v
	}

	return snap
}

type SystemMetrics struct {
	Uptime         string      `json:"uptime"`
	MemoryUsage    MemoryStats `json:"memory"`
	GoroutineCount int         `json:"goroutine_count"`
	CPUCount       int         `json:"cpu_count"`
	GoVersion      string      `json:"go_version"`
}

type MemoryStats struct {
	Alloc        uint64 `json:"alloc_mb"`
	TotalAlloc   uint64 `json:"total_alloc_mb"`
	Sys          uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	NextGC       uint64 `json:"next_gc_mb"`
	GCPauseTotal string `json:"gc_pause_total"`
}

func (m *Collector) SystemMetrics() SystemMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return SystemMetrics{
		Uptime: time.Since(m.startTime).Round(time.Second).String(),
		MemoryUsage: MemoryStats{
			Alloc:        bToMb(mem.Alloc),
			TotalAlloc:   bToMb(mem.TotalAlloc),
			Sys:          bToMb(mem.Sys),
			NumGC:        mem.NumGC,
			NextGC:       bToMb(mem.NextGC),
			GCPauseTotal: time.Duration(mem.PauseTotalNs).String(),
		},
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
	}
}

// Handler serves the request counters together with runtime stats. extra is
// merged into the response, e.g. database pool stats.
func (m *Collector) Handler(extra func() map[string]interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := gin.H{
			"application": m.Snapshot(),
			"system":      m.SystemMetrics(),
			"timestamp":   time.Now().UTC(),
		}
		if extra != nil {
			for k, v := range extra() {
				response[k] = v
			}
		}

		c.JSON(http.StatusOK, response)
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
