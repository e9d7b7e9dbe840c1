package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusConnected     = "connected"
	StatusUnavailable   = "unavailable"
	StatusNotConfigured = "not_configured"
)

var ErrBrokerDown = errors.New("broker unavailable")

// RedisProbe reports whether the Redis instance that will back the task
// broker is reachable. It never reads or writes keys.
type RedisProbe struct {
	client      *redis.Client
	pingTimeout time.Duration
	statusTTL   time.Duration

	mu        sync.Mutex
	status    string
	checkedAt time.Time
}

type ProbeConfig struct {
	// URL wins over Addr when set, e.g. redis://:password@host:6379/0.
	URL          string
	Addr         string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingTimeout  time.Duration
	StatusTTL    time.Duration // reuse window for Status, zero pings every call
}

func DefaultProbeConfig() *ProbeConfig {
	return &ProbeConfig{
		Addr:         "localhost:6379",
		MaxRetries:   1,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PingTimeout:  2 * time.Second,
		StatusTTL:    15 * time.Second,
	}
}

func NewRedisProbe(config *ProbeConfig) (*RedisProbe, error) {
	if config == nil {
		config = DefaultProbeConfig()
	}

	options := &redis.Options{Addr: config.Addr}
	if config.URL != "" {
		parsed, err := redis.ParseURL(config.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		options = parsed
	}
	options.MaxRetries = config.MaxRetries
	options.DialTimeout = config.DialTimeout
	options.ReadTimeout = config.ReadTimeout
	options.WriteTimeout = config.WriteTimeout
	options.PoolSize = 2

	pingTimeout := config.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 2 * time.Second
	}

	return &RedisProbe{
		client:      redis.NewClient(options),
		pingTimeout: pingTimeout,
		statusTTL:   config.StatusTTL,
	}, nil
}

func (r *RedisProbe) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.pingTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerDown, err)
	}
	return nil
}

// Status maps Health onto the values reported by the health endpoint. The
// answer is reused for StatusTTL so an unreachable broker does not stall every
// health check; concurrent callers wait for a single ping.
func (r *RedisProbe) Status(ctx context.Context) string {
	if r == nil {
		return StatusNotConfigured
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != "" && r.statusTTL > 0 && time.Since(r.checkedAt) < r.statusTTL {
		return r.status
	}

	r.status = StatusConnected
	if err := r.Health(ctx); err != nil {
		r.status = StatusUnavailable
	}
	r.checkedAt = time.Now()
	return r.status
}

func (r *RedisProbe) Stats() map[string]interface{} {
	if r == nil {
		return map[string]interface{}{"status": StatusNotConfigured}
	}

	poolStats := r.client.PoolStats()

	return map[string]interface{}{
		"addr":          r.client.Options().Addr,
		"pool_hits":     poolStats.Hits,
		"pool_misses":   poolStats.Misses,
		"pool_timeouts": poolStats.Timeouts,
		"pool_total":    poolStats.TotalConns,
		"pool_idle":     poolStats.IdleConns,
		"pool_stale":    poolStats.StaleConns,
	}
}

func (r *RedisProbe) Close() error {
	if r == nil {
		return nil
	}
	return r.client.Close()
}
