package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/resilience"
)

// DB wraps a GORM database with structured logging.
type DB struct {
	GormDB *gorm.DB
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// Dialector returns the GORM dialector for driver.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// New opens a database connection with retry logic and connection pooling.
// The context allows cancellation of connection attempts during retries.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	d, err := Dialector(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return Open(ctx, d, cfg, log)
}

// Open connects through an explicit dialector.
func Open(ctx context.Context, d gorm.Dialector, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("database")

	gormCfg := &gorm.Config{
		Logger: newGormLogger(log, cfg.SlowQueryThreshold, parseLogLevel(cfg.LogLevel)),
	}

	attempt := 0
	retry := resilience.RetryConfig{
		MaxAttempts:    max(cfg.ConnectAttempts, 1),
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2,
		RetryIf:        func(error) bool { return ctx.Err() == nil },
		OnRetry: func(n int, err error, backoff time.Duration) {
			log.Warn("Database connection attempt failed, retrying", logger.Fields(
				"attempt", n,
				logger.FieldError, err.Error(),
				"backoff", backoff.String(),
			))
		},
	}
	db, err := resilience.Retry(ctx, retry, func() (*gorm.DB, error) {
		attempt++
		db, err := gorm.Open(d, gormCfg)
		if err != nil {
			return nil, err
		}
		if err := configurePool(ctx, db, cfg); err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, err
		}
		return db, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("database connection canceled: %w", err)
		}
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempt, err)
	}

	log.Info("Database connection established", logger.Fields(
		"driver", cfg.Driver,
		"attempt", attempt,
	))
	return &DB{GormDB: db, log: log, cfg: cfg}, nil
}

func configurePool(ctx context.Context, db *gorm.DB, cfg Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	maxOpen := cfg.Pool.MaxOpen
	if cfg.Driver == DriverSQLite {
		// One writer keeps sqlite from returning "database is locked".
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(min(cfg.Pool.MaxIdle, maxOpen))
	sqlDB.SetConnMaxLifetime(cfg.Pool.MaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.Pool.MaxIdleTime)
	return nil
}

// Close closes the underlying sql.DB connection pool. Safe to call multiple times.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	d.log.Info("Closing database connection")
	d.closed = true
	return sqlDB.Close()
}

// PingContext verifies the database connection is alive.
func (d *DB) PingContext(ctx context.Context) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return fmt.Errorf("database is closed")
	}
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithContext returns a GORM session scoped to the given context.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// AutoMigrate runs GORM auto-migration for the given models.
func (d *DB) AutoMigrate(models ...any) error {
	d.log.Info("Running auto-migration", logger.Fields("models", len(models)))
	for _, model := range models {
		if err := d.GormDB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	return nil
}

// TransactionFunc defines a function that runs within a transaction.
type TransactionFunc func(tx *gorm.DB) error

// WithTransaction executes fn within a transaction with panic recovery.
func (d *DB) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	tx := d.GormDB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			d.log.Error("Transaction rolled back due to panic", logger.Fields("panic", fmt.Sprintf("%v", r)))
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Stats reports pool usage.
type Stats struct {
	MaxOpen    int   `json:"max_open_connections"`
	OpenConns  int   `json:"open_connections"`
	InUseConns int   `json:"in_use_connections"`
	IdleConns  int   `json:"idle_connections"`
	WaitCount  int64 `json:"wait_count"`
}

// Stats returns the current pool statistics.
func (d *DB) Stats() Stats {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return Stats{}
	}
	s := sqlDB.Stats()
	return Stats{
		MaxOpen:    s.MaxOpenConnections,
		OpenConns:  s.OpenConnections,
		InUseConns: s.InUse,
		IdleConns:  s.Idle,
		WaitCount:  s.WaitCount,
	}
}
