package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vinylstore-be/internal/config"
	"vinylstore-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Postgres error codes the repositories react to.
const (
	PgUniqueViolation      = "23505"
	PgForeignKeyViolation  = "23503"
	PgCheckViolation       = "23514"
	PgSerializationFailure = "40001"
	PgDeadlockDetected     = "40P01"
)

const defaultMaxOpenConns = 25

func buildDSN(cfg *config.Config) string {
	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, sslMode,
	)
}

// NewDatabase opens and pings a Postgres pool.
func NewDatabase(cfg *config.Config) (*sql.DB, error) {
	return newDatabaseWithDriver(cfg, "postgres")
}

func newDatabaseWithDriver(cfg *config.Config, driver string) (*sql.DB, error) {
	db, err := sql.Open(driver, buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	maxOpen := cfg.DBMaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(max(1, maxOpen/5))
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

// InitDB is NewDatabase for process startup: failure is fatal.
func InitDB(cfg *config.Config) *sql.DB {
	log := logger.L().With(zap.String("db_host", cfg.DBHost), zap.String("db_name", cfg.DBName))

	db, err := NewDatabase(cfg)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}

	log.Info("database connection established", zap.Int("max_open_conns", db.Stats().MaxOpenConnections))
	return db
}

// IsPgError reports whether err wraps a Postgres error with any of the codes.
func IsPgError(err error, codes ...string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	for _, code := range codes {
		if string(pqErr.Code) == code {
			return true
		}
	}
	return false
}
