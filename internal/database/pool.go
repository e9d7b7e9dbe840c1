package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"webprobe/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	sqliteScheme = "sqlite://"
	pingDeadline = 5 * time.Second
)

var (
	ErrEmptyDSN       = errors.New("database DSN is empty")
	ErrUnsupportedDSN = errors.New("unsupported database DSN")
	ErrInvalidPool    = errors.New("invalid pool configuration")
	ErrNoConnection   = errors.New("database connection not initialized")
)

type PoolConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	LogLevel        logger.LogLevel
}

// DefaultPoolConfig mirrors a pool of 10 kept connections with 20 overflow.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxOpenConns:    30,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		LogLevel:        logger.Warn,
	}
}

type DatabasePool struct {
	DB     *gorm.DB
	config *PoolConfig
}

func NewDatabasePool(config *PoolConfig) (*DatabasePool, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	dialector, inMemory, err := OpenDialector(config.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(config.LogLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Every connection to ":memory:" is its own database, so keep exactly one alive.
	if inMemory {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}

	pool := &DatabasePool{DB: db, config: config}

	ctx, cancel := context.WithTimeout(context.Background(), pingDeadline)
	defer cancel()
	if err := pool.Health(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return pool, nil
}

// OpenDialector picks the gorm driver for a DSN. "sqlite://<path>" opens SQLite,
// postgres URLs and key=value DSNs open PostgreSQL.
func OpenDialector(dsn string) (gorm.Dialector, bool, error) {
	switch {
	case strings.HasPrefix(dsn, sqliteScheme):
		path := strings.TrimPrefix(dsn, sqliteScheme)
		if path == "" {
			return nil, false, fmt.Errorf("%w: missing sqlite path", ErrUnsupportedDSN)
		}
		return sqlite.Open(path), path == ":memory:", nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn), false, nil
	case strings.Contains(dsn, "=") && !strings.Contains(dsn, "://"):
		return postgres.Open(dsn), false, nil
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrUnsupportedDSN, redactDSN(dsn))
	}
}

func (c *PoolConfig) validate() error {
	if c.DSN == "" {
		return ErrEmptyDSN
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("%w: max open connections must be positive", ErrInvalidPool)
	}
	if c.MaxIdleConns < 0 || c.ConnMaxLifetime < 0 || c.ConnMaxIdleTime < 0 {
		return fmt.Errorf("%w: negative values are not allowed", ErrInvalidPool)
	}
	return nil
}

// Health runs a trivial query so that a dead connection surfaces as an error.
func (p *DatabasePool) Health(ctx context.Context) error {
	if p.DB == nil {
		return ErrNoConnection
	}
	return Ping(ctx, p.DB)
}

// Ping executes SELECT 1 on the given handle.
func Ping(ctx context.Context, db *gorm.DB) error {
	var one int
	if err := db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (p *DatabasePool) Migrate(ctx context.Context) error {
	if p.DB == nil {
		return ErrNoConnection
	}
	if err := p.DB.WithContext(ctx).AutoMigrate(&models.Task{}, &models.Result{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (p *DatabasePool) Stats() map[string]interface{} {
	if p.DB == nil {
		return map[string]interface{}{"error": ErrNoConnection.Error()}
	}

	sqlDB, err := p.DB.DB()
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	stats := sqlDB.Stats()
	return map[string]interface{}{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}
}

func (p *DatabasePool) Close() error {
	if p.DB == nil {
		return nil
	}
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func redactDSN(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i+3] + "..."
	}
	return "..."
}
