package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/opencode-ai/lspbridge/internal/logging"
)

//go:embed migrations/*.sql
var FS embed.FS

// Connect opens the database in dataDir and brings its schema up to date.
func Connect(ctx context.Context, dataDir string) (*sql.DB, error) {
	return ConnectProvider(ctx, NewSQLiteProvider(dataDir))
}

func ConnectProvider(ctx context.Context, provider Provider) (*sql.DB, error) {
	db, err := provider.Connect()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	goose.SetBaseFS(FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(provider.Dialect()); err != nil {
		logging.Error("Failed to set dialect", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		logging.Error("Failed to apply migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return db, nil
}
