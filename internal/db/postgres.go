package db

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pagechat-org/pagechat-backend/internal/logger"
	"github.com/pagechat-org/pagechat-backend/internal/utils"
)

const (
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 2
)

// PostgresService owns the process-wide connection pool. It is constructed
// once, injected into the repos, and closed on shutdown; a later
// NewPostgresService call builds a fresh pool.
type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	//1) Resolve the connection string and pool bounds
	log.Info("Attempting to load environment variables for Postgres now...")
	dsn := utils.GetEnv("DATABASE_URL", "", log)
	if dsn == "" {
		log.Error("DATABASE_URL is not set :(")
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	maxOpen := utils.GetEnvAsInt("POSTGRES_MAX_OPEN_CONNS", defaultMaxOpenConns, log)
	maxIdle := utils.GetEnvAsInt("POSTGRES_MAX_IDLE_CONNS", defaultMaxIdleConns, log)
	dsn = withDSNDefaults(dsn)
	log.Info("Environment variables loaded for Postgres :)")

	//2) Attempt DB Connection
	log.Info("Attempting to connect to Postgres DB now...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Error("Failed to connect to Postgres DB :(", "error", err)
		return nil, fmt.Errorf("Failed to connect to Postgres DB: %w", err)
	}
	log.Info("Successfully Connected to Postgres DB :)")

	//3) Bound the connection pool
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Error("Failed to access underlying connection pool :(", "error", err)
		return nil, fmt.Errorf("Failed to access underlying connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	log.Info("Connection pool bounds applied :)", "maxOpenConns", maxOpen, "maxIdleConns", maxIdle)

	//4) Enable required extensions
	log.Debug("Attempting to enable required Postgres extensions now...")
	for _, ext := range []string{"vector", "uuid-ossp"} {
		if err := gdb.Exec(fmt.Sprintf(`CREATE EXTENSION IF NOT EXISTS %q;`, ext)).Error; err != nil {
			log.Error("Failed to enable extension :(", "extension", ext, "error", err)
			return nil, fmt.Errorf("Failed to enable %s extension: %w", ext, err)
		}
	}
	log.Info("vector and uuid-ossp extensions enabled or already exist :)")

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

// DB returns the shared gorm handle backed by the pool.
func (s *PostgresService) DB() *gorm.DB {
	return s.db
}

// Ping verifies the store is reachable on a pooled connection.
func (s *PostgresService) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("Failed to access underlying connection pool: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Version reports the server version string.
func (s *PostgresService) Version(ctx context.Context) (string, error) {
	var version string
	if err := s.db.WithContext(ctx).Raw(`SELECT version()`).Scan(&version).Error; err != nil {
		return "", fmt.Errorf("Failed querying Postgres version: %w", err)
	}
	return version, nil
}

// Close releases every pooled connection. The service is unusable
// afterwards.
func (s *PostgresService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("Failed to access underlying connection pool: %w", err)
	}
	s.log.Info("Closing Postgres connection pool now...")
	return sqlDB.Close()
}

// NewMigrationDB opens a dedicated single-connection handle for applying
// migration scripts. Migration files carry several statements per file,
// which the pgx extended protocol rejects, so this connection forces the
// simple protocol. The caller owns the handle and closes it when done.
func NewMigrationDB(log *logger.Logger) (*gorm.DB, error) {
	dsn := utils.GetEnv("DATABASE_URL", "", log)
	if dsn == "" {
		log.Error("DATABASE_URL is not set :(")
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	dsn = withDSNParam(withDSNDefaults(dsn), "default_query_exec_mode", "simple_protocol")

	log.Info("Attempting to connect to Postgres DB for migrations now...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Error("Failed to connect to Postgres DB for migrations :(", "error", err)
		return nil, fmt.Errorf("Failed to connect to Postgres DB for migrations: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("Failed to access underlying connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	log.Info("Successfully Connected to Postgres DB for migrations :)")
	return gdb, nil
}

// withDSNDefaults applies the connect and statement timeout budgets unless
// the DSN already sets them. connect_timeout is in seconds and is honored
// by the driver at dial time; statement_timeout is in milliseconds and is
// forwarded to the server as a session parameter.
func withDSNDefaults(dsn string) string {
	dsn = withDSNParam(dsn, "connect_timeout", "30")
	dsn = withDSNParam(dsn, "statement_timeout", "60000")
	return dsn
}

// withDSNParam returns dsn with key=value appended unless dsn already
// mentions key. Both URL DSNs (postgres://...) and keyword/value DSNs
// (host=... user=...) are handled.
func withDSNParam(dsn, key, value string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	if strings.Contains(dsn, "://") {
		if strings.Contains(dsn, "?") {
			return dsn + "&" + key + "=" + value
		}
		return dsn + "?" + key + "=" + value
	}
	if dsn == "" {
		return key + "=" + value
	}
	return dsn + " " + key + "=" + value
}
