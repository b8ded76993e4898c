package migrations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pagechat-org/pagechat-backend/internal/logger"
)

var requiredTables = []string{
	"chat_sessions",
	"chat_messages",
	"document_embeddings",
	"user_text_selections",
}

const (
	minIndexes      = 8
	vectorIndexName = "idx_document_embeddings_vector"

	// chat_sessions carries session_id, created_at, updated_at,
	// user_agent, current_page and metadata.
	minSessionColumns = 6
)

// Check is the outcome of one verification step.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Report aggregates verification checks.
type Report struct {
	Checks []Check
}

func (r *Report) add(name string, ok bool, detail string) {
	r.Checks = append(r.Checks, Check{Name: name, OK: ok, Detail: detail})
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// Failed counts the checks that did not pass.
func (r *Report) Failed() int {
	n := 0
	for _, c := range r.Checks {
		if !c.OK {
			n++
		}
	}
	return n
}

// Verifier runs read-only diagnostics confirming the schema the data
// layer expects: extension, tables, indexes and column shapes. It never
// writes.
type Verifier struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVerifier(db *gorm.DB, baseLog *logger.Logger) *Verifier {
	return &Verifier{
		db:  db,
		log: baseLog.With("tool", "SchemaVerifier"),
	}
}

// Run executes every check and reports the outcomes. A connectivity
// failure short-circuits the rest; any other failing check still lets the
// remaining checks run.
func (v *Verifier) Run(ctx context.Context) *Report {
	rep := &Report{}

	//1) Connectivity and server version
	var version string
	if err := v.db.WithContext(ctx).Raw(`SELECT version()`).Scan(&version).Error; err != nil {
		v.log.Error("Connectivity check failed :(", "error", err)
		rep.add("connectivity", false, err.Error())
		return rep
	}
	rep.add("connectivity", true, version)

	//2) vector extension
	var vecVersion string
	if err := v.db.WithContext(ctx).
		Raw(`SELECT extversion FROM pg_extension WHERE extname = 'vector'`).
		Scan(&vecVersion).Error; err != nil {
		rep.add("vector extension", false, err.Error())
	} else if vecVersion == "" {
		rep.add("vector extension", false, "extension not installed")
	} else {
		rep.add("vector extension", true, "version "+vecVersion)
	}

	//3) Required tables
	var tables []string
	if err := v.db.WithContext(ctx).
		Raw(`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`).
		Scan(&tables).Error; err != nil {
		rep.add("tables", false, err.Error())
	} else {
		present := make(map[string]bool, len(tables))
		for _, t := range tables {
			present[t] = true
		}
		for _, want := range requiredTables {
			if present[want] {
				rep.add("table "+want, true, "")
			} else {
				rep.add("table "+want, false, "table missing")
			}
		}
	}

	//4) Lookup indexes and the nearest-neighbor index
	var indexes []string
	if err := v.db.WithContext(ctx).
		Raw(`SELECT indexname FROM pg_indexes WHERE schemaname = 'public' AND indexname LIKE 'idx_%'`).
		Scan(&indexes).Error; err != nil {
		rep.add("indexes", false, err.Error())
	} else {
		if len(indexes) >= minIndexes {
			rep.add("indexes", true, fmt.Sprintf("%d idx_ indexes", len(indexes)))
		} else {
			rep.add("indexes", false, fmt.Sprintf("found %d idx_ indexes, want at least %d", len(indexes), minIndexes))
		}
		hasVectorIdx := false
		for _, idx := range indexes {
			if idx == vectorIndexName {
				hasVectorIdx = true
				break
			}
		}
		if hasVectorIdx {
			rep.add("index "+vectorIndexName, true, "")
		} else {
			rep.add("index "+vectorIndexName, false, "index missing")
		}
	}

	//5) chat_sessions column count
	var sessionColumns int
	if err := v.db.WithContext(ctx).
		Raw(`SELECT count(*) FROM information_schema.columns WHERE table_schema = 'public' AND table_name = 'chat_sessions'`).
		Scan(&sessionColumns).Error; err != nil {
		rep.add("chat_sessions columns", false, err.Error())
	} else if sessionColumns >= minSessionColumns {
		rep.add("chat_sessions columns", true, fmt.Sprintf("%d columns", sessionColumns))
	} else {
		rep.add("chat_sessions columns", false, fmt.Sprintf("found %d columns, want at least %d", sessionColumns, minSessionColumns))
	}

	//6) Embedding column is the vector type
	var embeddingType string
	if err := v.db.WithContext(ctx).
		Raw(`SELECT data_type FROM information_schema.columns WHERE table_schema = 'public' AND table_name = 'document_embeddings' AND column_name = 'embedding'`).
		Scan(&embeddingType).Error; err != nil {
		rep.add("embedding column type", false, err.Error())
	} else if embeddingType == "USER-DEFINED" {
		rep.add("embedding column type", true, "vector")
	} else {
		rep.add("embedding column type", false, fmt.Sprintf("data_type is %q, want USER-DEFINED", embeddingType))
	}

	v.log.Info("Schema verification complete", "checks", len(rep.Checks), "failed", rep.Failed())
	return rep
}
