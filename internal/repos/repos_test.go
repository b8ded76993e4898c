package repos

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagechat-org/pagechat-backend/internal/db"
	"github.com/pagechat-org/pagechat-backend/internal/logger"
	"github.com/pagechat-org/pagechat-backend/internal/migrations"
)

var migrateOnce sync.Once

// setupTestDB connects to the database named by TEST_DATABASE_URL and
// makes sure the schema is applied, skipping the test when the variable
// is unset. It goes through the real service constructors so the pool
// setup is exercised too.
func setupTestDB(t *testing.T) (*gorm.DB, *logger.Logger) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}
	t.Setenv("DATABASE_URL", dsn)

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("building logger: %v", err)
	}

	migrateOnce.Do(func() {
		mdb, err := db.NewMigrationDB(log)
		if err != nil {
			t.Fatalf("opening migration connection: %v", err)
		}
		defer func() {
			if sqlDB, err := mdb.DB(); err == nil {
				sqlDB.Close()
			}
		}()
		runner := migrations.NewRunner(mdb, "../../migrations", log)
		if _, err := runner.Apply(context.Background()); err != nil {
			t.Fatalf("applying migrations: %v", err)
		}
	})

	svc, err := db.NewPostgresService(log)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc.DB(), log
}

// cleanupSession removes a test session after the test; messages and
// selections cascade with it.
func cleanupSession(t *testing.T, gdb *gorm.DB, id uuid.UUID) {
	t.Helper()
	t.Cleanup(func() {
		gdb.Exec(`DELETE FROM chat_sessions WHERE session_id = ?`, id)
	})
}

// cleanupSource removes any embeddings a test left under a source pair.
func cleanupSource(t *testing.T, gdb *gorm.DB, sourceType, sourceID string) {
	t.Helper()
	t.Cleanup(func() {
		gdb.Exec(`DELETE FROM document_embeddings WHERE source_type = ? AND source_id = ?`, sourceType, sourceID)
	})
}

// uniqueSourceType isolates a test's embedding rows from everything else
// in the shared database.
func uniqueSourceType() string {
	return "it-" + uuid.NewString()[:8]
}
