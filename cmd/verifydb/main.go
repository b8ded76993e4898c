package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/pagechat-org/pagechat-backend/internal/db"
	"github.com/pagechat-org/pagechat-backend/internal/logger"
	"github.com/pagechat-org/pagechat-backend/internal/migrations"
)

func main() {
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

	// Connection Setup. The maintenance handle runs no DDL, which keeps
	// the verification strictly read-only.
	vdb, err := db.NewMigrationDB(log)
	if err != nil {
		log.Error("Failed to connect to Postgres :(", "error", err)
		os.Exit(1)
	}
	defer func() {
		if sqlDB, err := vdb.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	// Verification
	report := migrations.NewVerifier(vdb, log).Run(context.Background())
	for _, c := range report.Checks {
		status := "PASS"
		if !c.OK {
			status = "FAIL"
		}
		if c.Detail != "" {
			fmt.Printf("[%s] %s: %s\n", status, c.Name, c.Detail)
		} else {
			fmt.Printf("[%s] %s\n", status, c.Name)
		}
	}
	if !report.OK() {
		fmt.Printf("%d of %d checks failed\n", report.Failed(), len(report.Checks))
		os.Exit(1)
	}
	fmt.Printf("all %d checks passed\n", len(report.Checks))
}
