package migrations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/pagechat-org/pagechat-backend/internal/logger"
)

// Result records the outcome of one migration file.
type Result struct {
	File string
	Err  error
}

// Runner applies ordered schema files from a directory. Give it a handle
// from db.NewMigrationDB; migration files hold several statements each,
// which only run under the simple protocol.
type Runner struct {
	db  *gorm.DB
	dir string
	log *logger.Logger
}

func NewRunner(db *gorm.DB, dir string, baseLog *logger.Logger) *Runner {
	return &Runner{
		db:  db,
		dir: dir,
		log: baseLog.With("tool", "MigrationRunner"),
	}
}

// Discover lists the .sql files in the runner's directory sorted by name.
// Zero-padded numeric prefixes (001_..., 002_...) give the apply order.
func (r *Runner) Discover() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("Failed reading migrations directory %s: %w", r.dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// Apply executes every discovered file in order on the runner's
// connection, halting at the first failure. The returned results cover
// each attempted file in order; on failure the final result's Err matches
// the returned error.
func (r *Runner) Apply(ctx context.Context) ([]Result, error) {
	files, err := r.Discover()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		r.log.Warn("No migration files found", "dir", r.dir)
		return []Result{}, nil
	}
	results := make([]Result, 0, len(files))
	for _, f := range files {
		r.log.Info("Applying migration now...", "file", f)
		sqlBytes, err := os.ReadFile(filepath.Join(r.dir, f))
		if err != nil {
			err = fmt.Errorf("Failed reading migration %s: %w", f, err)
			results = append(results, Result{File: f, Err: err})
			return results, err
		}
		if err := r.db.WithContext(ctx).Exec(string(sqlBytes)).Error; err != nil {
			err = fmt.Errorf("Failed applying migration %s: %w", f, err)
			r.log.Error("Migration failed, halting :(", "file", f, "error", err)
			results = append(results, Result{File: f, Err: err})
			return results, err
		}
		r.log.Info("Migration applied :)", "file", f)
		results = append(results, Result{File: f})
	}
	return results, nil
}

// SchemaInventory is a snapshot of the schema objects the data layer
// cares about.
type SchemaInventory struct {
	Tables        []string
	VectorVersion string
	Indexes       []string
}

// Inventory reports the public tables, the vector extension version
// (empty when absent) and the idx_-prefixed indexes.
func (r *Runner) Inventory(ctx context.Context) (*SchemaInventory, error) {
	inv := &SchemaInventory{}
	if err := r.db.WithContext(ctx).
		Raw(`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name`).
		Scan(&inv.Tables).Error; err != nil {
		return nil, fmt.Errorf("Failed listing tables: %w", err)
	}
	if err := r.db.WithContext(ctx).
		Raw(`SELECT extversion FROM pg_extension WHERE extname = 'vector'`).
		Scan(&inv.VectorVersion).Error; err != nil {
		return nil, fmt.Errorf("Failed checking vector extension: %w", err)
	}
	if err := r.db.WithContext(ctx).
		Raw(`SELECT indexname FROM pg_indexes WHERE schemaname = 'public' AND indexname LIKE 'idx_%' ORDER BY indexname`).
		Scan(&inv.Indexes).Error; err != nil {
		return nil, fmt.Errorf("Failed listing indexes: %w", err)
	}
	return inv, nil
}
