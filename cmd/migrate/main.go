package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/pagechat-org/pagechat-backend/internal/db"
	"github.com/pagechat-org/pagechat-backend/internal/logger"
	"github.com/pagechat-org/pagechat-backend/internal/migrations"
	"github.com/pagechat-org/pagechat-backend/internal/repos"
	"github.com/pagechat-org/pagechat-backend/internal/types"
	"github.com/pagechat-org/pagechat-backend/internal/utils"
)

func main() {
	dirFlag := flag.String("dir", "", "migrations directory (default $MIGRATIONS_DIR, then ./migrations)")
	smoke := flag.Bool("smoke", false, "run a data round trip through the repos after applying")
	flag.Parse()

	// Environment + Logger Setup
	_ = godotenv.Load()
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dir := *dirFlag
	if dir == "" {
		dir = utils.GetEnv("MIGRATIONS_DIR", "migrations", log)
	}
	ctx := context.Background()

	// Migration Connection Setup
	log.Info("Setting Up Migration Connection now...")
	mdb, err := db.NewMigrationDB(log)
	if err != nil {
		log.Error("Failed to open migration connection :(", "error", err)
		os.Exit(1)
	}
	defer func() {
		if sqlDB, err := mdb.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	log.Info("Migration Connection Set Up Successful :)")

	// Apply Migrations
	runner := migrations.NewRunner(mdb, dir, log)
	results, applyErr := runner.Apply(ctx)
	for _, res := range results {
		if res.Err != nil {
			log.Error("Migration failed :(", "file", res.File, "error", res.Err)
		}
	}
	if applyErr != nil {
		log.Error("Migration run halted :(", "error", applyErr)
	} else {
		log.Info("All migrations applied :)", "count", len(results))
	}

	// Schema Inventory
	// A failed statement does not kill the connection, so the inventory is
	// reported for halted runs too.
	inv, err := runner.Inventory(ctx)
	if err != nil {
		log.Error("Failed to inventory schema :(", "error", err)
		os.Exit(1)
	}
	log.Info("Schema inventory",
		"tables", inv.Tables,
		"vectorVersion", inv.VectorVersion,
		"indexes", len(inv.Indexes),
	)
	if applyErr != nil {
		os.Exit(1)
	}

	if *smoke {
		if err := runSmoke(ctx, log); err != nil {
			log.Error("Smoke round trip failed :(", "error", err)
			os.Exit(1)
		}
		log.Info("Smoke round trip successful :)")
	}
}

// runSmoke drives one round trip through every repo: session, message,
// history, embedding batch, similarity search, selection, delete. It
// cleans up after itself.
func runSmoke(ctx context.Context, log *logger.Logger) error {
	// Postgres Setup
	log.Info("Setting Up Postgres for the smoke round trip now...")
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		return err
	}
	defer postgresService.Close()
	thePG := postgresService.DB()

	// Repositories Setup
	sessionRepo := repos.NewChatSessionRepo(thePG, log)
	messageRepo := repos.NewChatMessageRepo(thePG, log, sessionRepo)
	embeddingRepo := repos.NewEmbeddingRepo(thePG, log)
	selectionRepo := repos.NewTextSelectionRepo(thePG, log)

	// 1) Session round trip
	ua := "pagechat-migrate/smoke"
	page := "https://example.com/docs"
	session, err := sessionRepo.Create(ctx, nil, &types.ChatSession{UserAgent: &ua, CurrentPage: &page})
	if err != nil {
		return err
	}
	log.Info("smoke: session created", "sessionID", session.SessionID)
	got, err := sessionRepo.GetByID(ctx, nil, session.SessionID)
	if err != nil {
		return err
	}
	if got == nil {
		return fmt.Errorf("smoke: created session %s not found", session.SessionID)
	}

	// 2) Message insert + history
	if _, err := messageRepo.Insert(ctx, nil, &types.ChatMessage{
		SessionID: session.SessionID,
		Role:      types.RoleUser,
		Content:   "smoke test message",
	}); err != nil {
		return err
	}
	history, err := messageRepo.GetHistory(ctx, nil, session.SessionID, 0, 0)
	if err != nil {
		return err
	}
	log.Info("smoke: history fetched", "messages", len(history))

	// 3) Embedding batch + similarity search
	vec := make([]float32, types.EmbeddingDim)
	vec[0] = 1
	ids, err := embeddingRepo.BatchInsert(ctx, nil, []types.EmbeddingInput{{
		SourceType:   "smoke",
		SourceID:     session.SessionID.String(),
		ContentChunk: "smoke test chunk",
		Embedding:    vec,
	}})
	if err != nil {
		return err
	}
	log.Info("smoke: embeddings inserted", "count", len(ids))
	hits, err := embeddingRepo.SearchSimilar(ctx, nil, vec, types.SearchOptions{SourceType: "smoke", Limit: 1})
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		return fmt.Errorf("smoke: similarity search returned no rows")
	}
	log.Info("smoke: similarity search ok", "topSimilarity", hits[0].Similarity)

	// 4) Selection round trip
	if _, err := selectionRepo.Insert(ctx, nil, &types.TextSelection{
		SessionID:    session.SessionID,
		SelectedText: "smoke selected text",
		PageURL:      page,
	}); err != nil {
		return err
	}
	sels, err := selectionRepo.GetBySessionID(ctx, nil, session.SessionID, 0)
	if err != nil {
		return err
	}
	log.Info("smoke: selections fetched", "count", len(sels))

	// 5) Cleanup. Messages and selections cascade with the session row.
	deleted, err := embeddingRepo.DeleteBySource(ctx, nil, "smoke", session.SessionID.String())
	if err != nil {
		return err
	}
	log.Info("smoke: embeddings cleaned up", "deleted", deleted)
	if err := thePG.WithContext(ctx).Exec(`DELETE FROM chat_sessions WHERE session_id = ?`, session.SessionID).Error; err != nil {
		return err
	}
	return nil
}
