package aclkit

import (
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
)

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxOpenConnections    int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
	ConnectionMaxIdleTime time.Duration
}

// DefaultPoolConfig returns sensible defaults for the connection pool.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections:    25,
		MaxIdleConnections:    5,
		ConnectionMaxLifetime: 30 * time.Minute,
		ConnectionMaxIdleTime: 5 * time.Minute,
	}
}

// PoolService provides connection pool management functionality as an extension to Service
type PoolService struct {
	*Service
}

// NewPoolService creates a new pool service extension
func NewPoolService(service *Service) *PoolService {
	return &PoolService{Service: service}
}

// ConfigureConnectionPool updates the database connection pool settings.
func (ps *PoolService) ConfigureConnectionPool(config PoolConfig) error {
	db, ok := ps.db.(*dbkit.DBKit)
	if !ok {
		return fmt.Errorf("connection pool configuration requires a dbkit.DBKit instance")
	}

	bunDB := db.Bun()
	if bunDB == nil {
		return fmt.Errorf("database instance not available")
	}

	bunDB.SetMaxOpenConns(config.MaxOpenConnections)
	bunDB.SetMaxIdleConns(config.MaxIdleConnections)
	bunDB.SetConnMaxLifetime(config.ConnectionMaxLifetime)
	bunDB.SetConnMaxIdleTime(config.ConnectionMaxIdleTime)

	ps.log.V(1).Info("connection pool configured",
		"max_open", config.MaxOpenConnections,
		"max_idle", config.MaxIdleConnections,
		"max_lifetime", config.ConnectionMaxLifetime,
		"max_idle_time", config.ConnectionMaxIdleTime)
	return nil
}

// GetConnectionPoolConfig returns the current connection pool configuration.
func (ps *PoolService) GetConnectionPoolConfig() (*PoolConfig, error) {
	db, ok := ps.db.(*dbkit.DBKit)
	if !ok {
		return nil, fmt.Errorf("connection pool configuration requires a dbkit.DBKit instance")
	}

	bunDB := db.Bun()
	if bunDB == nil {
		return nil, fmt.Errorf("database instance not available")
	}

	stats := bunDB.Stats()
	return &PoolConfig{
		MaxOpenConnections: stats.MaxOpenConnections,
		MaxIdleConnections: stats.MaxOpenConnections,
	}, nil
}

// OptimizeConnectionPool automatically adjusts pool settings based on current usage.
func (ps *PoolService) OptimizeConnectionPool() error {
	db, ok := ps.db.(*dbkit.DBKit)
	if !ok {
		return fmt.Errorf("connection pool configuration requires a dbkit.DBKit instance")
	}
	stats := dbkit.PoolStatsFromSQL(db.Stats())

	config, err := ps.GetConnectionPoolConfig()
	if err != nil {
		return fmt.Errorf("failed to get current pool config: %w", err)
	}

	newConfig := *config

	// Mostly busy pool, grow it
	if stats.InUse > 0 && float64(stats.InUse)/float64(stats.MaxOpenConnections) > 0.8 {
		newConfig.MaxOpenConnections = int(float64(config.MaxOpenConnections) * 1.5)
		newConfig.MaxIdleConnections = int(float64(config.MaxIdleConnections) * 1.5)
	}

	// Mostly idle pool, shrink it
	if stats.Idle > 0 && float64(stats.Idle)/float64(stats.MaxOpenConnections) > 0.8 {
		newConfig.MaxOpenConnections = int(float64(config.MaxOpenConnections) * 0.75)
		newConfig.MaxIdleConnections = int(float64(config.MaxIdleConnections) * 0.75)
	}

	if newConfig.MaxOpenConnections < 5 {
		newConfig.MaxOpenConnections = 5
	}
	if newConfig.MaxIdleConnections < 2 {
		newConfig.MaxIdleConnections = 2
	}

	return ps.ConfigureConnectionPool(newConfig)
}

// ResetConnectionPool resets the connection pool to default settings.
func (ps *PoolService) ResetConnectionPool() error {
	return ps.ConfigureConnectionPool(DefaultPoolConfig())
}
